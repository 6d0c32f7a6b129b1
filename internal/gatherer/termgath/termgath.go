// Package termgath prints session events in the console report format.
package termgath

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"

	"github.com/richardxx/ojtester/api"
)

type TerminalGatherer struct {
	w       io.Writer
	verbose bool

	good *color.Color
	bad  *color.Color
}

func New(w io.Writer, verbose bool) *TerminalGatherer {
	return &TerminalGatherer{
		w:       w,
		verbose: verbose,
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed, color.Bold),
	}
}

func (t *TerminalGatherer) StartSession(info api.SessionInfo) {
	slog.Debug("session started",
		"programs", info.Programs,
		"input", info.InputStrategy,
		"reference", info.ReferenceStrategy,
		"check", info.CheckStrategy,
		"scratch", info.ScratchDir)
}

func (t *TerminalGatherer) StartCase(caseNo int64, source string) {
	fmt.Fprintf(t.w, "Test %d:\n", caseNo)
	if t.verbose {
		fmt.Fprintf(t.w, "Input: %s\n", source)
	}
}

func (t *TerminalGatherer) IgnoreCase(caseNo int64, reason string) {
	fmt.Fprintf(t.w, "Ignored: %s\n\n", reason)
}

func (t *TerminalGatherer) FinishRun(caseNo int64, run api.RunResult) {
	c := t.bad
	if run.Short == "AC" {
		c = t.good
	}
	// pad before colouring so escape codes do not count as width
	result := c.Sprintf("%25s", run.Verdict)
	fmt.Fprintf(t.w, "Prog %d: Result=%s, Time = %7dms, Memory = %7dKB\n",
		run.Program, result, run.CpuMillis, run.MemoryKiBytes)

	if t.verbose && run.Stderr != "" {
		fmt.Fprintln(t.w, run.Stderr)
	}
}

func (t *TerminalGatherer) FinishCase(caseNo int64, abnormal bool) {
	fmt.Fprintln(t.w)
}

func (t *TerminalGatherer) SessionError(msg string) {
	fmt.Fprintf(t.w, "%s, terminated.\n", msg)
}

func (t *TerminalGatherer) FinishSession(summary api.SessionSummary) {
	fmt.Fprintln(t.w, "Summary:")
	for _, p := range summary.Programs {
		fmt.Fprintf(t.w, "Tot. time = %8dms, Ave. time = %7dms, Ave. Memory = %7dKB\n",
			p.TotalCpuMillis, p.AverageCpuMillis, p.AverageMemKiB)
		if t.verbose && len(p.Failures) > 0 {
			fmt.Fprintf(t.w, "Prog %d failed with: %s\n", p.Program, strings.Join(p.Failures, " "))
		}
	}
	if summary.PreservedAt != nil {
		fmt.Fprintf(t.w, "Data kept in %s\n", *summary.PreservedAt)
	}
}
