package strategy

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"unicode"

	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/supervisor"
	"github.com/richardxx/ojtester/internal/verdict"
)

// ComparisonChecker compares the output with the reference byte for byte.
// Outputs that only differ in whitespace, blank lines or letter case are a
// presentation error.
type ComparisonChecker struct{}

func (ComparisonChecker) Name() string { return "comparison" }

func (ComparisonChecker) Check(_ context.Context, _ Input, ref Reference, outputPath string) verdict.Verdict {
	want, err := os.ReadFile(ref.Path)
	if err != nil {
		slog.Error("failed to read reference", "path", ref.Path, "error", err)
		return verdict.ValidationError
	}
	got, err := os.ReadFile(outputPath)
	if err != nil {
		slog.Error("failed to read output", "path", outputPath, "error", err)
		return verdict.ValidationError
	}
	return Compare(want, got)
}

// Compare classifies got against want.
func Compare(want, got []byte) verdict.Verdict {
	if bytes.Equal(want, got) {
		return verdict.Accepted
	}
	w, g := squeeze(want), squeeze(got)
	if len(w) != len(g) {
		return verdict.WrongAnswer
	}
	for i := range w {
		if !bytes.EqualFold(w[i], g[i]) {
			return verdict.WrongAnswer
		}
	}
	return verdict.PresentationError
}

// squeeze drops all whitespace from every line and then drops empty lines.
func squeeze(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, line)
		if len(line) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// CheckerTimeLimitMs bounds a single external checker run.
const CheckerTimeLimitMs = 10_000

// ExternalChecker runs `checker <input> <output>` and reads the verdict
// from its exit status: 0 accepted, 1 wrong answer, 2 presentation error.
// Anything else, including a checker that fails to run, is a validation
// error.
type ExternalChecker struct {
	prog   supervisor.Program
	runner Runner
}

func NewExternalChecker(prog supervisor.Program, runner Runner) *ExternalChecker {
	return &ExternalChecker{prog: prog, runner: runner}
}

func (c *ExternalChecker) Name() string {
	return "checker " + c.prog.String()
}

func (c *ExternalChecker) Check(ctx context.Context, in Input, _ Reference, outputPath string) verdict.Verdict {
	res, err := c.runner.Run(ctx, supervisor.Spec{
		Program: c.prog,
		Args:    []string{in.Path, outputPath},
		Stdin:   os.DevNull,
		Stdout:  os.DevNull,
		Stderr:  os.DevNull,
		Limits:  &resuse.Limits{TimeMs: CheckerTimeLimitMs},
	})
	if err != nil || res.Outcome != supervisor.Normal {
		slog.Warn("checker failed", "checker", c.prog.String(), "outcome", res.Outcome.String(), "error", err)
		return verdict.ValidationError
	}
	switch res.ExitStatus {
	case 0:
		return verdict.Accepted
	case 1:
		return verdict.WrongAnswer
	case 2:
		return verdict.PresentationError
	}
	return verdict.ValidationError
}
