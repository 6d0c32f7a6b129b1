// Package gatherer defines the sink interface that receives judging
// session events, and helpers shared by its implementations.
package gatherer

import (
	"strings"

	"github.com/richardxx/ojtester/api"
)

type ResultGatherer interface {
	StartSession(info api.SessionInfo)

	StartCase(caseNo int64, source string)
	IgnoreCase(caseNo int64, reason string)
	FinishRun(caseNo int64, run api.RunResult)
	FinishCase(caseNo int64, abnormal bool)

	SessionError(msg string)
	FinishSession(summary api.SessionSummary)
}

// Multi forwards every event to each gatherer in order.
type Multi []ResultGatherer

func (m Multi) StartSession(info api.SessionInfo) {
	for _, g := range m {
		g.StartSession(info)
	}
}

func (m Multi) StartCase(caseNo int64, source string) {
	for _, g := range m {
		g.StartCase(caseNo, source)
	}
}

func (m Multi) IgnoreCase(caseNo int64, reason string) {
	for _, g := range m {
		g.IgnoreCase(caseNo, reason)
	}
}

func (m Multi) FinishRun(caseNo int64, run api.RunResult) {
	for _, g := range m {
		g.FinishRun(caseNo, run)
	}
}

func (m Multi) FinishCase(caseNo int64, abnormal bool) {
	for _, g := range m {
		g.FinishCase(caseNo, abnormal)
	}
}

func (m Multi) SessionError(msg string) {
	for _, g := range m {
		g.SessionError(msg)
	}
}

func (m Multi) FinishSession(summary api.SessionSummary) {
	for _, g := range m {
		g.FinishSession(summary)
	}
}

// TrimToRect cuts s to at most maxHeight lines of maxWidth bytes each,
// marking every cut with "[...]".
func TrimToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	cut := len(lines) > maxHeight
	if cut {
		lines = lines[:maxHeight]
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(line) > maxWidth {
			b.WriteString(line[:maxWidth])
			b.WriteString("[...]")
		} else {
			b.WriteString(line)
		}
	}
	if cut {
		b.WriteString("\n[...]")
	}
	return b.String()
}
