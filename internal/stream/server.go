package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// writeWait bounds a single frame write so one stalled client cannot block
// the broadcast loop
const writeWait = 5 * time.Second

// Morph is one channel weight on the wire
type Morph struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Frame is a state snapshot pushed to every connected renderer
type Frame struct {
	Session   string  `json:"session,omitempty"`
	ClockMs   float64 `json:"clockMs"`
	Viseme    string  `json:"viseme"`
	MeshCount int     `json:"meshCount"`
	Morphs    []Morph `json:"morphs"`
}

// Server streams morph weight frames to websocket clients. It is one-way:
// clients only receive. Broadcast must be called from a single goroutine.
type Server struct {
	log      zerolog.Logger
	addr     string
	path     string
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[string]*websocket.Conn
	server *http.Server
	stopCh chan struct{}
}

// NewServer creates a broadcaster listening on addr at path
func NewServer(addr, path string, log zerolog.Logger) *Server {
	return &Server{
		log:  log,
		addr: addr,
		path: path,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:  make(map[string]*websocket.Conn),
		stopCh: make(chan struct{}),
	}
}

// Start serves in the background until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.wsHandler)
	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Str("addr", s.addr).Msg("stream server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.server.Shutdown(context.Background())
		close(s.stopCh)
		s.closeAll()
	}()

	s.log.Info().Str("addr", s.addr).Str("path", s.path).Msg("stream server listening")
	return nil
}

// Broadcast sends a frame to every connected client and drops clients whose
// writes fail. Returns the number of clients reached.
func (s *Server) Broadcast(frame Frame) int {
	data, err := sonic.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Msg("frame marshal failed")
		return 0
	}

	var dead []string
	sent := 0

	s.mu.RLock()
	for id, conn := range s.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			dead = append(dead, id)
			continue
		}
		sent++
	}
	s.mu.RUnlock()

	if len(dead) > 0 {
		s.mu.Lock()
		for _, id := range dead {
			if conn, ok := s.conns[id]; ok {
				conn.Close()
				delete(s.conns, id)
			}
		}
		s.mu.Unlock()
		s.log.Debug().Int("dropped", len(dead)).Msg("dropped stalled stream clients")
	}

	return sent
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) wsHandler(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()
	s.log.Debug().Str("client", id).Str("remote", r.RemoteAddr).Msg("stream client connected")

	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
		s.log.Debug().Str("client", id).Msg("stream client disconnected")
	}()

	// Drain reads so close frames are processed; clients have nothing to say
	for {
		select {
		case <-s.stopCh:
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.conns {
		conn.Close()
		delete(s.conns, id)
	}
}
