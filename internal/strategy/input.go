package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/richardxx/ojtester/internal/files"
	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/supervisor"
)

// GeneratorInput runs a generator once per case and uses its standard
// output as the input.
type GeneratorInput struct {
	gen       supervisor.Program
	remaining int
	runner    Runner
	ws        Workspace
	limits    *resuse.Limits
	runs      int
}

func NewGeneratorInput(gen supervisor.Program, runs int, runner Runner, ws Workspace, limits *resuse.Limits) *GeneratorInput {
	return &GeneratorInput{gen: gen, remaining: runs, runner: runner, ws: ws, limits: limits}
}

func (g *GeneratorInput) Name() string {
	return "generator " + g.gen.String()
}

func (g *GeneratorInput) Next(ctx context.Context) (Input, bool, error) {
	if g.remaining <= 0 {
		return Input{}, false, nil
	}
	g.remaining--
	g.runs++

	res, err := g.runner.Run(ctx, supervisor.Spec{
		Program: g.gen,
		Stdin:   os.DevNull,
		Stdout:  g.ws.InputPath(),
		Stderr:  os.DevNull,
		Limits:  g.limits,
	})
	if err != nil {
		return Input{}, false, fmt.Errorf("failed to run generator: %w", err)
	}
	if res.Outcome != supervisor.Normal {
		return Input{}, false, fmt.Errorf("generator %s finished with %s", g.gen, res.Outcome)
	}
	if res.ExitStatus != 0 {
		slog.Warn("generator exited with non-zero status", "generator", g.gen.String(), "status", res.ExitStatus)
	}
	return Input{Source: fmt.Sprintf("generator run %d", g.runs), Path: g.ws.InputPath()}, true, nil
}

// DirectoryInput stages every file of a directory in turn.
type DirectoryInput struct {
	dir *files.Dir
	ws  Workspace
}

func NewDirectoryInput(dir *files.Dir, ws Workspace) *DirectoryInput {
	return &DirectoryInput{dir: dir, ws: ws}
}

func (d *DirectoryInput) Name() string {
	return "directory " + d.dir.Path()
}

func (d *DirectoryInput) Next(ctx context.Context) (Input, bool, error) {
	if err := ctx.Err(); err != nil {
		return Input{}, false, err
	}
	src, ok := d.dir.Next()
	if !ok {
		return Input{}, false, nil
	}
	if err := files.Stage(src, d.ws.InputPath()); err != nil {
		return Input{}, false, fmt.Errorf("failed to stage input %s: %w", src, err)
	}
	return Input{Source: src, Path: d.ws.InputPath()}, true, nil
}
