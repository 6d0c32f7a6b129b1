package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/richardxx/ojtester/internal/compile"
	"github.com/richardxx/ojtester/internal/config"
	"github.com/richardxx/ojtester/internal/gatherer"
	"github.com/richardxx/ojtester/internal/gatherer/natsgath"
	"github.com/richardxx/ojtester/internal/gatherer/respbuilder"
	"github.com/richardxx/ojtester/internal/gatherer/sqsgath"
	"github.com/richardxx/ojtester/internal/gatherer/termgath"
	"github.com/richardxx/ojtester/internal/judge"
	"github.com/richardxx/ojtester/internal/supervisor"
	"github.com/richardxx/ojtester/internal/xdg"
)

const defaultNatsSubject = "autotester.events"

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func run(ctx context.Context, cmd *cli.Command, useLast bool) error {
	dirs := xdg.New()

	cfg, args, err := prepareSession(cmd, dirs, useLast)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "You can also use -h to see help if you wish.")
		return exitStatus(1)
	}
	setupLogger(cfg.Verbose)

	if useLast {
		fmt.Printf("\nUsing arguments:\n%s %s\n\n", cmd.Name, strings.Join(cfg.Args(), " "))
	}

	sessionUuid := uuid.NewString()
	gath, report, cleanup, err := newGatherers(ctx, &cfg, sessionUuid)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStatus(1)
	}
	defer cleanup()

	sup := supervisor.New(supervisor.WithLogger(slog.Default().With("component", "supervisor")))
	j, err := judge.Setup(ctx, &cfg, judge.Deps{
		Runner:   sup,
		Compiler: compile.New(filepath.Join(dirs.CacheDir(), "bin"), sup),
		Gatherer: gath,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "You can also use -h to see help if you wish.")
		return exitStatus(1)
	}
	defer func() {
		if err := j.Close(); err != nil {
			slog.Error("failed to clean up", "error", err, "scratch", j.ScratchPath())
			fmt.Fprintln(os.Stderr, "Please remove the temporary folder manually.")
		}
	}()

	if !useLast {
		if err := config.Save(config.LastUsedPath(dirs), args); err != nil {
			slog.Warn("failed to remember arguments", "error", err)
		}
	}

	sum, runErr := j.Run(ctx)

	if report != nil {
		if err := report.WriteFile(cfg.Report.JSONPath); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		slog.Warn("session interrupted")
		return exitStatus(1)
	}
	if runErr != nil {
		return runErr
	}
	if sum.Abnormal {
		return exitStatus(1)
	}
	return nil
}

// prepareSession returns the effective session and, separately, the
// session as given by arguments alone, which is what gets remembered.
func prepareSession(cmd *cli.Command, dirs *xdg.Dirs, useLast bool) (config.Session, config.Session, error) {
	args, err := loadSession(cmd, dirs, useLast)
	if err != nil {
		return args, args, err
	}
	cfg := args
	cfg.Programs = slices.Clone(args.Programs)
	config.ApplyEnv(&cfg)
	return cfg, args, nil
}

func loadSession(cmd *cli.Command, dirs *xdg.Dirs, useLast bool) (config.Session, error) {
	if useLast {
		cfg, err := config.Load(config.LastUsedPath(dirs))
		if err != nil {
			return cfg, fmt.Errorf("no previous arguments to reuse: %w", err)
		}
		return cfg, nil
	}

	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	applyFlags(cmd, &cfg)
	return cfg, nil
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cmd *cli.Command, cfg *config.Session) {
	setInt := func(name string, dst *int64) {
		if cmd.IsSet(name) {
			*dst = int64(cmd.Int(name))
		}
	}
	setStr := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}

	if cmd.IsSet("runs") {
		cfg.Runs = cmd.Int("runs")
	}
	if cmd.IsSet("std") {
		cfg.StdIndex = cmd.Int("std")
	}
	setInt("time", &cfg.TimeLimitMs)
	setInt("memory", &cfg.MemLimitKiB)
	setStr("generator", &cfg.Generator)
	setStr("input", &cfg.InputDir)
	setStr("output", &cfg.OutputDir)
	setStr("checker", &cfg.Checker)
	setStr("dump", &cfg.DumpDir)
	setStr("scratch-dir", &cfg.ScratchDir)
	setStr("report-json", &cfg.Report.JSONPath)
	setStr("nats-url", &cfg.Report.NatsURL)
	setStr("sqs-queue-url", &cfg.Report.SqsQueueURL)
	if cmd.IsSet("verbose") {
		cfg.Verbose = cmd.Bool("verbose")
	}
	setStr("nats-subject", &cfg.Report.NatsSubject)
	if cmd.NArg() > 0 {
		cfg.Programs = cmd.Args().Slice()
	}
}

func newGatherers(ctx context.Context, cfg *config.Session, sessionUuid string) (gatherer.ResultGatherer, *respbuilder.Builder, func(), error) {
	gs := gatherer.Multi{termgath.New(os.Stdout, cfg.Verbose)}
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var report *respbuilder.Builder
	if cfg.Report.JSONPath != "" {
		report = respbuilder.New(sessionUuid)
		gs = append(gs, report)
	}

	if cfg.Report.NatsURL != "" {
		subject := cfg.Report.NatsSubject
		if subject == "" {
			subject = defaultNatsSubject
		}
		g, closeFn, err := natsgath.Connect(cfg.Report.NatsURL, sessionUuid, subject)
		if err != nil {
			return nil, nil, cleanup, err
		}
		closers = append(closers, closeFn)
		gs = append(gs, g)
	}

	if cfg.Report.SqsQueueURL != "" {
		g, err := sqsgath.NewSqsGatherer(ctx, sessionUuid, cfg.Report.SqsQueueURL)
		if err != nil {
			cleanup()
			return nil, nil, func() {}, err
		}
		gs = append(gs, g)
	}

	return gs, report, cleanup, nil
}
