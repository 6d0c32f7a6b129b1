// Package respbuilder collects session events into a single
// api.SessionReport.
package respbuilder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/richardxx/ojtester/api"
	"github.com/richardxx/ojtester/internal/gatherer"
)

// Builder gathers session events and builds a complete api.SessionReport.
type Builder struct {
	sessionUuid string
	info        api.SessionInfo

	started  time.Time
	finished *time.Time

	cases   []api.CaseResult
	byNo    map[int64]int
	summary *api.SessionSummary

	errorMessage *string
}

func New(sessionUuid string) *Builder {
	return &Builder{
		sessionUuid: sessionUuid,
		started:     time.Now(),
		byNo:        make(map[int64]int),
	}
}

func (b *Builder) StartSession(info api.SessionInfo) {
	b.info = info
}

func (b *Builder) StartCase(caseNo int64, source string) {
	b.byNo[caseNo] = len(b.cases)
	b.cases = append(b.cases, api.CaseResult{CaseNo: caseNo, Source: source})
}

func (b *Builder) caseRef(caseNo int64) *api.CaseResult {
	i, ok := b.byNo[caseNo]
	if !ok {
		b.StartCase(caseNo, "")
		i = b.byNo[caseNo]
	}
	return &b.cases[i]
}

func (b *Builder) IgnoreCase(caseNo int64, reason string) {
	c := b.caseRef(caseNo)
	c.Ignored = true
	c.Reason = &reason
}

func (b *Builder) FinishRun(caseNo int64, run api.RunResult) {
	run.Stderr = gatherer.TrimToRect(run.Stderr, api.MaxExcerptHeight*2, api.MaxExcerptWidth*2)
	c := b.caseRef(caseNo)
	c.Runs = append(c.Runs, run)
}

func (b *Builder) FinishCase(caseNo int64, abnormal bool) {
	b.caseRef(caseNo).Abnormal = abnormal
}

func (b *Builder) SessionError(msg string) {
	b.errorMessage = &msg
}

func (b *Builder) FinishSession(summary api.SessionSummary) {
	now := time.Now()
	b.finished = &now
	b.summary = &summary
}

// Report builds the api.SessionReport from gathered data.
func (b *Builder) Report() api.SessionReport {
	status := api.Passed
	switch {
	case b.errorMessage != nil:
		status = api.Errored
	case b.summary == nil || b.summary.Abnormal:
		status = api.Failed
	}

	report := api.SessionReport{
		SessionUuid:  b.sessionUuid,
		Status:       status,
		Info:         b.info,
		Cases:        b.cases,
		Summary:      b.summary,
		ErrorMessage: b.errorMessage,
		StartedAt:    b.started.Format(time.RFC3339),
	}
	if b.finished != nil {
		f := b.finished.Format(time.RFC3339)
		report.FinishedAt = &f
	}
	return report
}

// WriteFile stores the report as indented JSON, creating parent
// directories as needed.
func (b *Builder) WriteFile(path string) error {
	data, err := json.MarshalIndent(b.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
