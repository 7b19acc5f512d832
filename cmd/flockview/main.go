package main

import (
	"context"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/scenario"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/service"
)

func main() {
	var (
		path     = flag.String("scenario", "", "scenario file (.json, .yaml); the relay scenario when empty")
		seed     = flag.Uint64("seed", 0, "noise seed, overrides the scenario")
		enemy    = flag.Bool("enemy", false, "let scripted adversaries move")
		enable3D = flag.Bool("3d", false, "flock in three dimensions")
		width    = flag.Int("width", 1024, "window width")
		height   = flag.Int("height", 768, "window height")
		zoom     = flag.Float64("zoom", 2, "pixels per meter")
		traces   = flag.String("trace", "", "also write traces: csv, csv.zst or sqlite")
	)
	flag.Parse()
	logger := log.New(log.InfoLevel, os.Stdout)

	cfg := scenario.DefaultConfig()
	if *path != "" {
		var err error
		if cfg, err = scenario.Load(*path); err != nil {
			fail(logger, err)
		}
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *enemy {
		cfg.SetEnemy(true)
	}
	if *enable3D {
		cfg.SetEnable3D(true)
	}
	cfg.Trace.Format = scenario.FormatNone
	if *traces != "" {
		cfg.Trace.Format = *traces
	}

	ctx := context.Background()
	system, err := actor.NewActorSystem("FlockView",
		actor.WithLogger(log.DiscardLogger),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		fail(logger, err)
	}
	if err := system.Start(ctx); err != nil {
		fail(logger, err)
	}
	defer system.Stop(ctx)

	sink, err := cfg.OpenSink()
	if err != nil {
		fail(logger, err)
	}
	snapshots := make(chan *service.Snapshot, 1)
	opts := []service.Option{service.WithSnapshots(snapshots)}
	if sink != nil {
		opts = append(opts, service.WithSink(sink))
		defer sink.Close()
	}
	pid, err := system.Spawn(ctx, "engine", service.NewEngineActor(cfg, opts...))
	if err != nil {
		fail(logger, err)
	}

	ebiten.SetWindowSize(*width, *height)
	ebiten.SetWindowTitle("Flock: " + cfg.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(NewGame(ctx, pid, snapshots, cfg, *width, *height, *zoom)); err != nil {
		logger.Errorf("flockview: %v", err)
	}
	// stop the engine before the deferred sink close
	_ = pid.Shutdown(ctx)
}

func fail(logger log.Logger, err error) {
	logger.Errorf("flockview: %v", err)
	os.Exit(1)
}
