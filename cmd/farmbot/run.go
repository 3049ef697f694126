package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hoardfarm.ai/internal/config"
	"hoardfarm.ai/internal/farm"
	"hoardfarm.ai/internal/farm/events"
	"hoardfarm.ai/internal/farm/telemetry"
	"hoardfarm.ai/internal/persistence/runlog"
	"hoardfarm.ai/internal/persistence/statsdb"
	"hoardfarm.ai/internal/transport/hostws"
)

const (
	statsFile  = "stats.sqlite"
	journalDir = "journal"

	shutdownGrace = 5 * time.Second
)

func newRunCmd() *cobra.Command {
	var (
		noEnable bool
		commands bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the host bridge and farm until stopped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var in io.Reader
			if commands {
				in = cmd.InOrStdin()
			}
			return runFarm(cmd.Context(), logger, !noEnable, in)
		},
	}
	cmd.Flags().BoolVar(&noEnable, "no-enable", false, "connect without enabling farm mode")
	cmd.Flags().BoolVar(&commands, "commands", false, "read toggle/finish/status commands from stdin")
	return cmd
}

func runFarm(parent context.Context, logger *zap.Logger, enable bool, commands io.Reader) error {
	store, err := config.Open(configPath)
	if err != nil {
		return err
	}
	if sender, created := store.EnsureSenderID(); created {
		logger.Info("generated telemetry sender id", zap.String("sender", sender))
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("save %s: %w", configPath, err)
	}
	cfg := store.Snapshot()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener := events.NewListener(events.Messages{
		SensedPresent: cfg.World.Messages.SensedPresent,
		SensedAbsent:  cfg.World.Messages.SensedAbsent,
		Collected:     cfg.World.Messages.Collected,
	}, events.NewQueue(0))

	sess := hostws.New(hostws.Config{URL: cfg.Host.URL}, listener, logger)

	journal := runlog.NewJournal(filepath.Join(cfg.DataDir, journalDir), logger)
	defer func() {
		if err := journal.Close(); err != nil {
			logger.Warn("close journal", zap.Error(err))
		}
	}()
	idx, err := statsdb.Open(filepath.Join(cfg.DataDir, statsFile), logger)
	if err != nil {
		return fmt.Errorf("open stats db: %w", err)
	}
	defer func() { _ = idx.Close() }()

	var (
		sink   telemetry.Sink
		worker *telemetry.Worker
	)
	if !cfg.Telemetry.Disabled && cfg.Telemetry.Endpoint != "" {
		worker = telemetry.NewWorker(&telemetry.HTTPPoster{Endpoint: cfg.Telemetry.Endpoint}, 0, logger)
		sink = worker
	}

	ctrl := farm.New(farm.Deps{
		Queue:     sess,
		Pathing:   sess,
		Retainers: sess.Retainers(),
		World:     sess,
		Config:    store,
		Listener:  listener,
		Telemetry: sink,
		Recorders: []farm.Recorder{journal, idx},
		Logger:    logger,
	})

	sess.Start()
	defer sess.Close()

	cmds := make(chan string, 8)
	if commands != nil {
		go readCommands(ctx, commands, cmds)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return config.Watch(gctx, store.Path(), logger, store.Apply)
	})
	g.Go(func() error {
		return drive(gctx, ctrl, time.Duration(cfg.Host.TickMS)*time.Millisecond, enable, cmds, sess.Updates(), logger)
	})
	err = g.Wait()

	if worker != nil {
		wctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if cerr := worker.Close(wctx); cerr != nil {
			logger.Warn("telemetry discarded on shutdown", zap.Error(cerr))
		}
		cancel()
	}
	if serr := store.Save(); serr != nil {
		logger.Warn("save counters", zap.Error(serr))
	}
	return err
}

// drive owns the controller: every call into it happens on this goroutine.
// It ticks on the cadence and again whenever a fresh observation lands.
func drive(ctx context.Context, ctrl *farm.Controller, every time.Duration, enable bool, cmds <-chan string, updates <-chan struct{}, logger *zap.Logger) error {
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	log := logger.Named("drive")
	if enable {
		ctrl.SetFarmMode(true)
	}
	t := time.NewTicker(every)
	defer t.Stop()

	last := ctrl.Snapshot()
	for {
		select {
		case <-ctx.Done():
			if ctrl.Active() {
				ctrl.SetFarmMode(false)
			}
			return nil
		case c := <-cmds:
			applyCommand(ctrl, c, log)
		case <-updates:
			ctrl.Tick()
		case <-t.C:
			ctrl.Tick()
		}
		if snap := ctrl.Snapshot(); snap != last {
			log.Info("status",
				zap.Stringer("phase", snap.Phase),
				zap.String("status", snap.Status),
				zap.String("error", snap.Error))
			last = snap
		}
	}
}

func applyCommand(ctrl *farm.Controller, c string, log *zap.Logger) {
	switch c {
	case "toggle":
		ctrl.Toggle()
	case "enable":
		ctrl.SetFarmMode(true)
	case "disable":
		ctrl.SetFarmMode(false)
	case "finish":
		ctrl.RequestFinish()
	case "status":
		s := ctrl.Session()
		log.Info("session",
			zap.Bool("active", ctrl.Active()),
			zap.Int("runs", s.Runs),
			zap.Int("rewards", s.Rewards),
			zap.Int("seconds", s.Seconds))
	default:
		log.Warn("unknown command", zap.String("command", c))
	}
}

func readCommands(ctx context.Context, r io.Reader, out chan<- string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}
