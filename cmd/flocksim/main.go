package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/log"

	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/observe"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/scenario"
	"github.com/lao-tseu-is-alive/go-boids-mobility/internal/service"
)

type options struct {
	scenario        string
	seed            uint64
	stop            float64
	prefix          string
	format          string
	dir             string
	database        string
	enemy           bool
	enable3D        bool
	disableFlocking bool
	course          bool
	sweep           bool
	wsAddr          string
	step            time.Duration
	verbose         bool
}

func main() {
	var o options
	flag.StringVar(&o.scenario, "scenario", "", "scenario file (.json, .yaml); the relay scenario when empty")
	flag.Uint64Var(&o.seed, "seed", 0, "noise seed, overrides the scenario")
	flag.Float64Var(&o.stop, "stop", 0, "stop time in seconds, overrides the scenario")
	flag.StringVar(&o.prefix, "prefix", "", "trace file prefix, overrides the scenario")
	flag.StringVar(&o.format, "format", "", "trace format: none, csv, csv.zst or sqlite")
	flag.StringVar(&o.dir, "dir", "", "trace directory for csv formats")
	flag.StringVar(&o.database, "db", "", "database path for the sqlite format")
	flag.BoolVar(&o.enemy, "enemy", false, "let scripted adversaries move")
	flag.BoolVar(&o.enable3D, "3d", false, "flock in three dimensions")
	flag.BoolVar(&o.disableFlocking, "disableFlocking", false, "zero separation, alignment and cohesion weights")
	flag.BoolVar(&o.course, "course", false, "record every course change")
	flag.BoolVar(&o.sweep, "sweep", false, "run every separation/alignment/cohesion weight combination")
	flag.StringVar(&o.wsAddr, "ws", "", "serve live frames on this address, e.g. :8090")
	flag.DurationVar(&o.step, "step", time.Second, "simulated time advanced per request")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	level := log.InfoLevel
	if o.verbose {
		level = log.DebugLevel
	}
	logger := log.New(level, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Errorf("flocksim: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger log.Logger) error {
	base, err := load(o)
	if err != nil {
		return err
	}
	configs := []*scenario.Config{base}
	if o.sweep {
		configs = scenario.Sweep(base)
	}

	system, err := actor.NewActorSystem("FlockSim",
		actor.WithLogger(logger),
		actor.WithActorInitMaxRetries(1))
	if err != nil {
		return fmt.Errorf("create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("start actor system: %w", err)
	}
	defer func() {
		if err := system.Stop(context.Background()); err != nil {
			logger.Errorf("stop actor system: %v", err)
		}
	}()

	var hub *observe.Hub
	if o.wsAddr != "" {
		hub = observe.NewHub(logger)
		srv := &http.Server{Addr: o.wsAddr, Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("observer endpoint: %v", err)
			}
		}()
		defer srv.Close()
		logger.Infof("observers on ws://%s", o.wsAddr)
	}

	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("engine-%03d", i)
		if err := simulate(ctx, system, name, cfg, o.step, hub, logger); err != nil {
			return fmt.Errorf("run %s (%s): %w", name, cfg.Prefix, err)
		}
	}
	return nil
}

// load reads the scenario and applies the command line overrides.
func load(o options) (*scenario.Config, error) {
	cfg := scenario.DefaultConfig()
	if o.scenario != "" {
		var err error
		if cfg, err = scenario.Load(o.scenario); err != nil {
			return nil, err
		}
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	if o.stop > 0 {
		cfg.StopTime = o.stop
	}
	if o.prefix != "" {
		cfg.Prefix = o.prefix
	}
	if o.format != "" {
		cfg.Trace.Format = o.format
	}
	if o.dir != "" {
		cfg.Trace.Dir = o.dir
	}
	if o.database != "" {
		cfg.Trace.Database = o.database
	}
	if o.enemy {
		cfg.SetEnemy(true)
	}
	if o.enable3D {
		cfg.SetEnable3D(true)
	}
	if o.disableFlocking {
		cfg.DisableFlocking = true
	}
	if o.course {
		cfg.Trace.Course = true
	}
	return cfg, cfg.Validate()
}

func simulate(ctx context.Context, system actor.ActorSystem, name string, cfg *scenario.Config, step time.Duration,
	hub *observe.Hub, logger log.Logger) error {
	sink, err := cfg.OpenSink()
	if err != nil {
		return err
	}
	var opts []service.Option
	if sink != nil {
		opts = append(opts, service.WithSink(sink))
	}
	snapshots := make(chan *service.Snapshot, 16)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if hub != nil {
		opts = append(opts, service.WithSnapshots(snapshots))
		if cfg.Trace.Course {
			opts = append(opts, service.WithCourseObserver(hub))
		}
		go hub.Run(runCtx, snapshots)
	}

	start := time.Now()
	pid, err := system.Spawn(ctx, name, service.NewEngineActor(cfg, opts...))
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return err
	}
	end, driveErr := service.Drive(ctx, pid, cfg.StopDuration(), step, func(now time.Duration) {
		logger.Debugf("%s at %s", cfg.Prefix, now)
	})
	if err := pid.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown %s: %v", name, err)
	}
	var closeErr error
	if sink != nil {
		closeErr = sink.Close()
	}
	if driveErr != nil {
		return driveErr
	}
	logger.Infof("%s: simulated %s in %s", cfg.Prefix, end, time.Since(start).Round(time.Millisecond))
	return closeErr
}
