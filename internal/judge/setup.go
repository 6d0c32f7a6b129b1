package judge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richardxx/ojtester/internal/config"
	"github.com/richardxx/ojtester/internal/files"
	"github.com/richardxx/ojtester/internal/gatherer"
	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/scratch"
	"github.com/richardxx/ojtester/internal/strategy"
	"github.com/richardxx/ojtester/internal/suffix"
	"github.com/richardxx/ojtester/internal/supervisor"
)

// SetupError is any failure that happens before the first case runs.
type SetupError struct {
	Msg string
	Err error
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupErr(err error, format string, args ...any) *SetupError {
	return &SetupError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// Compiler turns program paths into runnable programs, in order.
type Compiler interface {
	EnsureAll(ctx context.Context, paths []string) ([]supervisor.Program, error)
}

type Deps struct {
	Runner   strategy.Runner
	Compiler Compiler
	Gatherer gatherer.ResultGatherer
}

// Setup prepares a session from cfg and chooses its strategies:
//
//   - a checker selects external checking with no reference answer,
//     otherwise outputs are compared with the reference;
//   - a generator produces the inputs and the standard program the answers;
//   - otherwise inputs come from the input directory, answers from the
//     output directory when there is one and from the standard program
//     when there is not.
//
// cfg.StdIndex is reset to 0 when it is out of range and needed.
func Setup(ctx context.Context, cfg *config.Session, deps Deps) (*Judge, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, setupErr(err, "invalid arguments")
	}

	paths := append([]string(nil), cfg.Programs...)
	if cfg.Generator != "" {
		paths = append(paths, cfg.Generator)
	}
	if cfg.Checker != "" {
		paths = append(paths, cfg.Checker)
	}
	progs, err := deps.Compiler.EnsureAll(ctx, paths)
	if err != nil {
		return nil, setupErr(err, "failed to prepare programs")
	}

	ws, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		return nil, setupErr(err, "Create temporary data failed")
	}

	j := &Judge{
		programs: progs[:len(cfg.Programs)],
		names:    cfg.Programs,
		limits:   resuse.Limits{TimeMs: cfg.TimeLimitMs, MemKiB: cfg.MemLimitKiB},
		runner:   deps.Runner,
		ws:       ws,
		gath:     deps.Gatherer,
		dumpDir:  cfg.DumpDir,
	}
	if err := j.chooseStrategies(cfg, progs[len(cfg.Programs):]); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *Judge) chooseStrategies(cfg *config.Session, helpers []supervisor.Program) error {
	next := func() supervisor.Program {
		p := helpers[0]
		helpers = helpers[1:]
		return p
	}
	var gen, chk *supervisor.Program
	if cfg.Generator != "" {
		p := next()
		gen = &p
	}
	if cfg.Checker != "" {
		p := next()
		chk = &p
	}

	if chk != nil {
		j.checker = strategy.NewExternalChecker(*chk, j.runner)
		j.ref = strategy.NoReference{}
	} else {
		j.checker = strategy.ComparisonChecker{}
	}

	switch {
	case gen != nil:
		j.input = strategy.NewGeneratorInput(*gen, cfg.Runs, j.runner, j.ws, nil)
		if j.ref == nil {
			j.ref = j.programReference(cfg)
		}

	case cfg.InputDir != "":
		dir, err := files.OpenDir(cfg.InputDir)
		if err != nil {
			return setupErr(err, "Load folder %q failed", cfg.InputDir)
		}
		j.closers = append(j.closers, dir.Close)
		j.input = strategy.NewDirectoryInput(dir, j.ws)

		if j.ref != nil {
			break
		}
		if cfg.OutputDir != "" {
			pattern, err := suffix.DetectDirs(dir, cfg.OutputDir)
			if err != nil {
				return setupErr(err, "There's no unique mapping pattern between input and output file")
			}
			slog.Debug("detected file pattern", "pattern", pattern.String())
			j.ref = strategy.NewDirectoryReference(pattern, cfg.OutputDir, j.ws)
		} else {
			j.ref = j.programReference(cfg)
		}

	default:
		return setupErr(nil, "neither a generator nor an input directory is given")
	}
	return nil
}

func (j *Judge) programReference(cfg *config.Session) strategy.ReferenceSource {
	if cfg.StdIndex < 0 || cfg.StdIndex >= len(j.programs) {
		slog.Warn("standard program index is out of range, changing back to 0", "index", cfg.StdIndex)
		cfg.StdIndex = 0
	}
	idx := cfg.StdIndex
	j.stdIdx = &idx
	return strategy.NewProgramReference(idx, j.programs[idx], j.runner, j.ws, &j.limits)
}
