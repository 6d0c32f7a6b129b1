// Package strategy holds the three interchangeable parts of a judging
// session: where inputs come from, where reference answers come from and
// how a candidate's output is checked.
package strategy

import (
	"context"
	"errors"

	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/supervisor"
	"github.com/richardxx/ojtester/internal/verdict"
)

// ErrNoReference means the current input has no reference answer. The
// case is skipped rather than failed.
var ErrNoReference = errors.New("no reference answer for input")

// Runner runs one supervised program. *supervisor.Supervisor implements it.
type Runner interface {
	Run(ctx context.Context, spec supervisor.Spec) (supervisor.Result, error)
}

// Workspace names the per-case staging files.
type Workspace interface {
	InputPath() string
	ReferencePath() string
}

// Input is one test input staged for the candidates.
type Input struct {
	// Source is where the input came from, a file path or a generator run.
	Source string
	Path   string
}

type InputSource interface {
	// Next stages the next input. It returns false once inputs are exhausted.
	Next(ctx context.Context) (Input, bool, error)
	Name() string
}

// Reference is the expected answer for one input. Path is empty when the
// checker works without one.
type Reference struct {
	Path string

	// FromProgram is set when a designated candidate produced the answer;
	// Program is its index and Usage what the run cost.
	FromProgram bool
	Program     int
	Usage       resuse.Usage
}

type ReferenceSource interface {
	Get(ctx context.Context, in Input) (Reference, error)
	Name() string
}

// Checker judges a candidate output that was produced without a
// supervision failure.
type Checker interface {
	Check(ctx context.Context, in Input, ref Reference, outputPath string) verdict.Verdict
	Name() string
}
