package stream

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client consumes frames from a Server, reconnecting with backoff when the
// connection drops. Frames are delivered on the read goroutine.
type Client struct {
	url     string
	onFrame func(Frame)
	log     zerolog.Logger

	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
}

// NewClient creates a frame consumer for the given websocket URL
func NewClient(url string, onFrame func(Frame), log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		onFrame: onFrame,
		log:     log.With().Str("component", "stream-client").Logger(),
	}
}

// Connect starts consuming in the background until ctx is cancelled or
// Disconnect is called
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.connectLoop(ctx)
	return nil
}

// Disconnect stops the consumer
func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.setConnected(false)
}

// IsConnected reports whether a connection is live
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// connectLoop maintains the connection with exponential backoff. After a few
// consecutive failures the endpoint is assumed absent and logging drops to
// debug so a headless engine does not spam.
func (c *Client) connectLoop(ctx context.Context) {
	backoff := 3 * time.Second
	maxBackoff := 60 * time.Second
	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := c.readFrames(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			consecutiveFailures++
			switch {
			case consecutiveFailures == 3:
				c.log.Warn().
					Err(err).
					Int("failures", consecutiveFailures).
					Msg("stream endpoint not available, will retry less frequently")
				backoff = maxBackoff
			case consecutiveFailures > 3:
				c.log.Debug().Int("failures", consecutiveFailures).Msg("stream still unavailable")
				backoff = maxBackoff
			default:
				c.log.Warn().Err(err).Msg("stream connection lost, reconnecting")
			}
		} else {
			backoff = 3 * time.Second
			consecutiveFailures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func (c *Client) readFrames(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.setConnected(true)
	c.log.Info().Str("url", c.url).Msg("connected to frame stream")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var frame Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}
