// Command visemeplay drives a lip-sync engine against a glTF avatar model.
// It plays viseme timelines from file, synthesizes them from raw text, or
// sweeps every viseme to verify rig coverage, optionally streaming weight
// frames to websocket clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/normanking/lipsync/internal/animator"
	"github.com/normanking/lipsync/internal/bus"
	"github.com/normanking/lipsync/internal/config"
	"github.com/normanking/lipsync/internal/gltfbridge"
	"github.com/normanking/lipsync/internal/logging"
	"github.com/normanking/lipsync/internal/registry"
	"github.com/normanking/lipsync/internal/stream"
	"github.com/normanking/lipsync/internal/viseme"
	"github.com/rs/zerolog"
)

const broadcastRate = 30

type Flags struct {
	Model       string
	Timeline    string
	Say         string
	SayDuration float64
	Sweep       bool
	Hold        int
	FPS         int
	Speed       float64
	Stream      bool
	Addr        string
	Calibration string
	Verbose     bool
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := &logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   logging.LogLevel(cfg.Logging.Level),
		Console: cfg.Logging.Console,
		File:    cfg.Logging.File,
	}
	if flags.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	log := logger.Component("visemeplay")

	modelPath := flags.Model
	if modelPath == "" {
		modelPath = cfg.Model.Path
	}
	if modelPath == "" {
		log.Fatal().Msg("no model given, use -model or set model.path in config")
	}
	if flags.Timeline == "" && flags.Say == "" && !flags.Sweep {
		log.Fatal().Msg("nothing to play, use -timeline, -say or -sweep")
	}

	model, err := gltfbridge.Load(modelPath)
	if err != nil {
		log.Fatal().Err(err).Str("model", modelPath).Msg("failed to load model")
	}
	log.Info().
		Str("model", model.Name).
		Int("meshes", len(model.Meshes)).
		Int("nodes", len(model.Nodes)).
		Msg("model loaded")

	calPath := flags.Calibration
	if calPath == "" {
		calPath = cfg.Calibration.File
	}
	var cal *viseme.Calibration
	if calPath != "" {
		cal, err = viseme.LoadCalibrationFile(calPath)
		if err != nil {
			log.Fatal().Err(err).Str("file", calPath).Msg("failed to load calibration preset")
		}
	} else {
		cal, err = viseme.Merge(cfg.Calibration.Damping, cfg.Calibration.Categories, cfg.Calibration.Visemes)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid calibration in config")
		}
	}

	events := bus.NewEventBus()
	resolver := viseme.NewResolver(cal)
	reg := registry.New(logger.Component("registry"))

	speed := cfg.Engine.TransitionSpeed
	if flags.Speed > 0 {
		speed = flags.Speed
	}
	sched := animator.NewScheduler(float32(speed), float32(cfg.Engine.SnapEpsilon))

	engine := animator.NewEngine(reg, resolver, sched, logger.Component("engine"))
	engine.SetEventBus(events)

	report := engine.AttachModel(model)
	log.Info().
		Int("meshes", report.Meshes).
		Int("morphMeshes", report.MorphMeshes).
		Int("channels", report.Channels).
		Msg("model attached")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if calPath != "" {
		watcher, err := viseme.WatchCalibration(calPath, func(c *viseme.Calibration) {
			resolver.SetCalibration(c)
			events.Publish(bus.Event{Type: bus.EventTypeCalibrationReloaded, Data: map[string]any{"file": calPath}})
		}, logger.Component("calibration"))
		if err != nil {
			log.Warn().Err(err).Msg("calibration hot-reload unavailable")
		} else {
			defer watcher.Close()
		}
	}

	if flags.Stream || cfg.Stream.Enabled {
		addr := flags.Addr
		if addr == "" {
			addr = cfg.Stream.Addr
		}
		srv := stream.NewServer(addr, cfg.Stream.Path, logger.Component("stream"))
		if err := srv.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("stream server failed to start")
		} else {
			go broadcastFrames(ctx, srv, engine)
		}
	}

	fps := flags.FPS
	if fps <= 0 {
		fps = cfg.Engine.TickRate
	}
	loop := animator.NewLoop(engine, fps)
	loop.Start()
	defer loop.Stop()

	switch {
	case flags.Sweep:
		runSweep(ctx, engine, flags.Hold, log)
	case flags.Say != "":
		tl := animator.SynthesizeTimeline(flags.Say, time.Duration(flags.SayDuration*float64(time.Second)))
		engine.PlayTimeline(tl)
		waitForPlayback(ctx, engine)
	default:
		data, err := os.ReadFile(flags.Timeline)
		if err != nil {
			log.Fatal().Err(err).Str("file", flags.Timeline).Msg("failed to read timeline")
		}
		tl, err := animator.DecodeTimeline(data)
		if err != nil {
			log.Fatal().Err(err).Str("file", flags.Timeline).Msg("failed to decode timeline")
		}
		engine.PlayTimeline(tl)
		waitForPlayback(ctx, engine)
	}

	drainToSilence(engine)
	log.Info().Msg("playback finished")
}

func runSweep(ctx context.Context, engine *animator.Engine, holdMs int, log zerolog.Logger) {
	results, err := engine.TestAllVisemes(ctx, time.Duration(holdMs)*time.Millisecond)
	if err != nil {
		log.Warn().Err(err).Msg("sweep interrupted")
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
		fmt.Printf("%-4s  success=%-5t morphs=%d  source=%-11s condition=%s\n",
			r.Viseme, r.Success, r.MorphsApplied, r.Source, r.Condition)
	}
	fmt.Printf("\n%d/%d visemes resolved\n", ok, len(results))
}

func waitForPlayback(ctx context.Context, engine *animator.Engine) {
	for engine.Playing() {
		select {
		case <-ctx.Done():
			engine.StopPlayback()
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// drainToSilence lets the scheduler decay active morphs before exit so
// streamed clients see the mouth close
func drainToSilence(engine *animator.Engine) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(engine.CurrentState().ActiveMorphs) == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func broadcastFrames(ctx context.Context, srv *stream.Server, engine *animator.Engine) {
	ticker := time.NewTicker(time.Second / broadcastRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if srv.ClientCount() == 0 {
				continue
			}
			st := engine.CurrentState()
			morphs := make([]stream.Morph, 0, len(st.ActiveMorphs))
			for _, m := range st.ActiveMorphs {
				morphs = append(morphs, stream.Morph{Name: m.Name, Weight: m.Weight})
			}
			srv.Broadcast(stream.Frame{
				Session:   engine.PlaybackSession(),
				ClockMs:   engine.PlaybackClockMs(),
				Viseme:    st.Viseme,
				MeshCount: st.MeshCount,
				Morphs:    morphs,
			})
		}
	}
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.Model, "model", "", "glTF/GLB model path (default: model.path from config)")
	flag.StringVar(&flags.Timeline, "timeline", "", "viseme timeline JSON to play")
	flag.StringVar(&flags.Say, "say", "", "text to synthesize a timeline from")
	flag.Float64Var(&flags.SayDuration, "duration", 0, "stretch -say output over this many seconds")
	flag.BoolVar(&flags.Sweep, "sweep", false, "apply every viseme in sequence and report coverage")
	flag.IntVar(&flags.Hold, "hold", 500, "ms to hold each viseme during -sweep")
	flag.IntVar(&flags.FPS, "fps", 0, "tick rate (default: engine.tick_rate from config)")
	flag.Float64Var(&flags.Speed, "speed", 0, "transition speed override in (0,1]")
	flag.BoolVar(&flags.Stream, "stream", false, "serve weight frames over websocket")
	flag.StringVar(&flags.Addr, "addr", "", "stream listen address (default: stream.addr from config)")
	flag.StringVar(&flags.Calibration, "calibration", "", "calibration preset file, hot-reloaded on change")
	flag.BoolVar(&flags.Verbose, "verbose", false, "debug logging")

	flag.Parse()

	return flags
}
