// Command simulate runs levels headless. By default it ticks a fixed number
// of steps and logs where every platform and body ends up; with -serve it
// runs in real time and streams snapshots to websocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/platformkit/common"
	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/system"
	"github.com/milk9111/platformkit/prefabs"
	"github.com/milk9111/platformkit/telemetry"
)

func main() {
	levels := flag.String("level", "sandbox.yaml", "comma separated level files in prefabs/")
	prefabsDir := flag.String("prefabs", "prefabs", "directory searched before the embedded prefabs")
	steps := flag.Int("steps", 600, "fixed steps to simulate")
	every := flag.Int("every", 60, "log positions every N steps (0 logs only the end)")
	events := flag.Bool("events", false, "log every platform event")
	watch := flag.Bool("watch", false, "rerun whenever a level or script changes")
	serve := flag.String("serve", "", "run the first level in real time and stream snapshots on ws://ADDR/ws")
	syncEvery := flag.Int("sync", defaultSync, "steps between snapshots in serve mode")
	logLevel := flag.String("log", "info", "log level (debug, info, warn, error)")
	dev := flag.Bool("dev", false, "human readable log output")
	flag.Parse()

	logger, err := common.InitLogger(*logLevel, *dev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	prefabs.SetDiskRoot(*prefabsDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := runOptions{levels: splitLevels(*levels), steps: *steps, every: *every, events: *events, sync: *syncEvery}
	if len(opts.levels) == 0 {
		logger.Fatal("no level given")
	}

	if *serve != "" {
		if err := serveLevel(ctx, logger, *serve, opts); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
		return
	}

	if err := runAll(ctx, logger, opts); err != nil && !*watch {
		logger.Fatal("simulate", zap.Error(err))
	}
	if !*watch {
		return
	}
	if err := watchAndRerun(ctx, logger, *prefabsDir, opts); err != nil {
		logger.Fatal("watch", zap.Error(err))
	}
}

type runOptions struct {
	levels []string
	steps  int
	every  int
	events bool
	// sync is the number of steps between snapshots in serve mode.
	sync int
}

const defaultSync = 12

func (o runOptions) syncEvery() int {
	if o.sync <= 0 {
		return defaultSync
	}
	return o.sync
}

func splitLevels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runAll simulates every level concurrently. Each level gets its own world
// and space, so runs share nothing but the logger.
func runAll(ctx context.Context, logger *zap.Logger, opts runOptions) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, level := range opts.levels {
		level := level
		g.Go(func() error {
			return run(ctx, logger, level, opts)
		})
	}
	return g.Wait()
}

func run(ctx context.Context, logger *zap.Logger, level string, opts runOptions) error {
	logger = logger.With(zap.String("run", uuid.NewString()), zap.String("level", level))
	sim, err := system.LoadSimulation(level, logger)
	if err != nil {
		return err
	}
	for i := 1; i <= opts.steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sim.Step()
		if opts.events {
			for _, ev := range sim.Events() {
				logger.Info("event",
					zap.Int("frame", sim.Frame()),
					zap.String("type", ev.Type),
					zap.String("platform", nameOf(sim, ev)),
					zap.Any("data", ev.Data),
				)
			}
		}
		if (opts.every > 0 && i%opts.every == 0) || i == opts.steps {
			report(logger, sim)
		}
	}
	return nil
}

func nameOf(sim *system.Simulation, ev ecs.Event) string {
	for name, e := range sim.Named {
		if e == ev.Entity {
			return name
		}
	}
	return ev.Entity.String()
}

func report(logger *zap.Logger, sim *system.Simulation) {
	names := make([]string, 0, len(sim.Named))
	for name := range sim.Named {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]zap.Field, 0, len(names)+2)
	fields = append(fields, zap.Int("frame", sim.Frame()), zap.Float64("t", sim.Time()))
	for _, name := range names {
		if p, ok := sim.Position(name); ok {
			fields = append(fields, zap.Float64s(name, []float64{round(p.X), round(p.Y)}))
		}
	}
	logger.Info("positions", fields...)
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func watchAndRerun(ctx context.Context, logger *zap.Logger, dir string, opts runOptions) error {
	w, err := prefabs.NewWatcher(logger.Named("watch"), dir, dir+"/scripts")
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching for changes", zap.String("dir", dir))
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-w.Events:
			if !ok {
				return nil
			}
			logger.Info("rerun", zap.String("changed", path))
			if err := runAll(ctx, logger, opts); err != nil {
				logger.Error("simulate", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// serveLevel ticks the first level at the fixed rate until ctx ends,
// broadcasting a snapshot every opts.sync steps and applying client
// commands between steps.
func serveLevel(ctx context.Context, logger *zap.Logger, addr string, opts runOptions) error {
	run := uuid.NewString()
	logger = logger.With(zap.String("run", run), zap.String("level", opts.levels[0]))
	sim, err := system.LoadSimulation(opts.levels[0], logger)
	if err != nil {
		return err
	}
	syncEvery := opts.syncEvery()

	hub := telemetry.NewHub(logger.Named("telemetry"))
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		hub.Close()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	g.Go(func() error {
		ticker := time.NewTicker(common.FixedStep)
		defer ticker.Stop()
		var pending []ecs.Event
		for {
			select {
			case <-ctx.Done():
				return nil
			case cmd := <-hub.Commands():
				if !telemetry.Apply(sim, cmd) {
					logger.Warn("command rejected", zap.String("type", cmd.Type), zap.String("platform", cmd.Platform))
				}
			case <-ticker.C:
				sim.Step()
				pending = append(pending, sim.Events()...)
				if sim.Frame()%syncEvery != 0 {
					continue
				}
				if err := hub.Broadcast(telemetry.Capture(sim, run, pending)); err != nil {
					logger.Error("broadcast", zap.Error(err))
				}
				pending = pending[:0]
			}
		}
	})
	return g.Wait()
}
