package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// exitStatus ends the process with the given code after cleanup has run.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// without any argument the last successful session is repeated
	useLast := len(os.Args) == 1

	cmd := newCommand(useLast)
	err := cmd.Run(ctx, os.Args)
	stop()

	var code exitStatus
	switch {
	case err == nil:
	case errors.As(err, &code):
		os.Exit(int(code))
	default:
		slog.Error("autotester failed", "error", err)
		os.Exit(1)
	}
}

func newCommand(useLast bool) *cli.Command {
	return &cli.Command{
		Name:      "autotester",
		Usage:     "run candidate programs against test data and compare their results",
		ArgsUsage: "[PROGRAMS...]",
		Description: "Examples:\n" +
			"   autotester -g data_gen.c prog1.c prog2.c\n" +
			"   autotester -I input -O output prog1.c prog2.c\n" +
			"   autotester -g data_gen.c -s 1 prog1.c prog2.c",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "runs", Aliases: []string{"c"}, Usage: "number of testing runs with a generator", Value: 10},
			&cli.IntFlag{Name: "std", Aliases: []string{"s"}, Usage: "index of the standard program in the program list"},
			&cli.StringFlag{Name: "generator", Aliases: []string{"g"}, Usage: "data generator program"},
			&cli.StringFlag{Name: "input", Aliases: []string{"I"}, Usage: "input data folder"},
			&cli.StringFlag{Name: "output", Aliases: []string{"O"}, Usage: "output data folder"},
			&cli.StringFlag{Name: "checker", Aliases: []string{"j"}, Usage: "special judge program"},
			&cli.StringFlag{Name: "dump", Aliases: []string{"D"}, Usage: "keep all intermediate data of a failed session in this folder"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "show verbose information"},
			&cli.IntFlag{Name: "time", Aliases: []string{"T"}, Usage: "time limit in milliseconds", Value: 10_000},
			&cli.IntFlag{Name: "memory", Aliases: []string{"M"}, Usage: "memory limit in KB"},
			&cli.StringFlag{Name: "config", Usage: "read the session from a TOML file"},
			&cli.StringFlag{Name: "scratch-dir", Usage: "where the session's temporary folder is created"},
			&cli.StringFlag{Name: "report-json", Usage: "write a JSON report of the session to this file"},
			&cli.StringFlag{Name: "nats-url", Usage: "publish session events to this NATS server"},
			&cli.StringFlag{Name: "nats-subject", Usage: "NATS subject for session events", Value: defaultNatsSubject},
			&cli.StringFlag{Name: "sqs-queue-url", Usage: "send session events to this SQS queue"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, useLast)
		},
	}
}
