package natsgath

import (
	"github.com/richardxx/ojtester/api"
	"github.com/richardxx/ojtester/internal/gatherer"
)

type natsGatherer struct {
	pub         publisher
	subject     string
	sessionUuid string
}

func (s *natsGatherer) StartSession(info api.SessionInfo) {
	s.send(api.NewStartSession(s.sessionUuid, info))
}

func (s *natsGatherer) StartCase(caseNo int64, source string) {
	s.send(api.NewStartCase(s.sessionUuid, caseNo, source))
}

func (s *natsGatherer) IgnoreCase(caseNo int64, reason string) {
	s.send(api.NewIgnoreCase(s.sessionUuid, caseNo, reason))
}

func (s *natsGatherer) FinishRun(caseNo int64, run api.RunResult) {
	run.Stderr = gatherer.TrimToRect(run.Stderr, api.MaxExcerptHeight, api.MaxExcerptWidth)
	s.send(api.NewFinishRun(s.sessionUuid, caseNo, run))
}

func (s *natsGatherer) FinishCase(caseNo int64, abnormal bool) {
	s.send(api.NewFinishCase(s.sessionUuid, caseNo, abnormal))
}

func (s *natsGatherer) SessionError(msg string) {
	s.send(api.NewFinishSession(s.sessionUuid, nil, &msg))
}

func (s *natsGatherer) FinishSession(summary api.SessionSummary) {
	s.send(api.NewFinishSession(s.sessionUuid, &summary, nil))
}
