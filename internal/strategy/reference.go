package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardxx/ojtester/internal/files"
	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/suffix"
	"github.com/richardxx/ojtester/internal/supervisor"
)

// NoReference is used with checkers that judge an output on their own.
type NoReference struct{}

func (NoReference) Name() string { return "none" }

func (NoReference) Get(context.Context, Input) (Reference, error) {
	return Reference{}, nil
}

// DirectoryReference finds the answer for an input file through a suffix
// pattern and stages it in the workspace.
type DirectoryReference struct {
	pattern suffix.Pattern
	outDir  string
	ws      Workspace
}

func NewDirectoryReference(pattern suffix.Pattern, outDir string, ws Workspace) *DirectoryReference {
	return &DirectoryReference{pattern: pattern, outDir: outDir, ws: ws}
}

func (d *DirectoryReference) Name() string {
	return fmt.Sprintf("directory %s (%s)", d.outDir, d.pattern)
}

func (d *DirectoryReference) Get(_ context.Context, in Input) (Reference, error) {
	path, err := suffix.Map(d.pattern, d.outDir, in.Source)
	if errors.Is(err, suffix.ErrNotApplicable) {
		return Reference{}, fmt.Errorf("%w: %w", ErrNoReference, err)
	}
	if err != nil {
		return Reference{}, err
	}
	if err := files.Stage(path, d.ws.ReferencePath()); err != nil {
		return Reference{}, fmt.Errorf("failed to stage reference %s: %w", path, err)
	}
	return Reference{Path: d.ws.ReferencePath()}, nil
}

// ProgramReference runs the designated standard program under the session
// limits and takes its output as the answer.
type ProgramReference struct {
	index  int
	prog   supervisor.Program
	runner Runner
	ws     Workspace
	limits *resuse.Limits
}

func NewProgramReference(index int, prog supervisor.Program, runner Runner, ws Workspace, limits *resuse.Limits) *ProgramReference {
	return &ProgramReference{index: index, prog: prog, runner: runner, ws: ws, limits: limits}
}

func (p *ProgramReference) Name() string {
	return fmt.Sprintf("program %d (%s)", p.index, p.prog)
}

func (p *ProgramReference) Index() int {
	return p.index
}

func (p *ProgramReference) Get(ctx context.Context, in Input) (Reference, error) {
	res, err := p.runner.Run(ctx, supervisor.Spec{
		Program: p.prog,
		Stdin:   in.Path,
		Stdout:  p.ws.ReferencePath(),
		Limits:  p.limits,
	})
	if err != nil {
		return Reference{}, fmt.Errorf("failed to run standard program: %w", err)
	}
	if res.Outcome != supervisor.Normal {
		return Reference{}, fmt.Errorf("standard program %d finished with %s", p.index, res.Outcome)
	}
	return Reference{
		Path:        p.ws.ReferencePath(),
		FromProgram: true,
		Program:     p.index,
		Usage:       res.Usage,
	}, nil
}
