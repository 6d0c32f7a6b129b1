package api

import "time"

// MsgType is a message type for streamed session events
type MsgType string

const (
	StartSessionMsg  MsgType = "session_start"
	StartCaseMsg     MsgType = "case_start"
	IgnoreCaseMsg    MsgType = "case_ignore"
	FinishRunMsg     MsgType = "run_finish"
	FinishCaseMsg    MsgType = "case_finish"
	FinishSessionMsg MsgType = "session_finish"
)

// Size limits for text excerpts carried in events
const (
	MaxExcerptHeight = 40
	MaxExcerptWidth  = 80
)

// Header is the common header for all streamed messages
type Header struct {
	SessionUuid string  `json:"session_uuid"`
	MsgType     MsgType `json:"msg_type"`
}

// SessionInfo describes a session as configured
type SessionInfo struct {
	Programs    []string `json:"programs"`
	StdIndex    *int     `json:"std_index"`
	TimeLimitMs int64    `json:"time_limit_ms"`
	MemLimitKiB int64    `json:"mem_limit_kib"`

	InputStrategy     string `json:"input_strategy"`
	ReferenceStrategy string `json:"reference_strategy"`
	CheckStrategy     string `json:"check_strategy"`

	ScratchDir string `json:"scratch_dir"`
}

// RunResult is the outcome of one program on one case
type RunResult struct {
	Program int    `json:"program"`
	Verdict string `json:"verdict"`
	Short   string `json:"short"`

	CpuMillis     int64 `json:"cpu_ms"`
	WallMillis    int64 `json:"wall_ms"`
	MemoryKiBytes int64 `json:"mem_kib"`

	ExitCode   *int64  `json:"exit_code"`
	ExitSignal *string `json:"exit_signal"`

	// Stderr is a trimmed excerpt, only filled for failed runs
	Stderr string `json:"err"`

	// Reference is set for the standard program whose output is the answer
	Reference bool `json:"reference"`
}

type StartSession struct {
	Header
	Info        SessionInfo `json:"info"`
	StartedTime string      `json:"started_time"`
}

type StartCase struct {
	Header
	CaseNo int64  `json:"case_no"`
	Source string `json:"source"`
}

type IgnoreCase struct {
	Header
	CaseNo int64  `json:"case_no"`
	Reason string `json:"reason"`
}

type FinishRun struct {
	Header
	CaseNo int64     `json:"case_no"`
	Run    RunResult `json:"run"`
}

type FinishCase struct {
	Header
	CaseNo   int64 `json:"case_no"`
	Abnormal bool  `json:"abnormal"`
}

type FinishSession struct {
	Header
	Summary      *SessionSummary `json:"summary"`
	ErrorMessage *string         `json:"error_message"`
}

func NewHeader(sessionUuid string, msgType MsgType) Header {
	return Header{
		SessionUuid: sessionUuid,
		MsgType:     msgType,
	}
}

func NewStartSession(sessionUuid string, info SessionInfo) StartSession {
	return StartSession{
		Header:      NewHeader(sessionUuid, StartSessionMsg),
		Info:        info,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartCase(sessionUuid string, caseNo int64, source string) StartCase {
	return StartCase{
		Header: NewHeader(sessionUuid, StartCaseMsg),
		CaseNo: caseNo,
		Source: source,
	}
}

func NewIgnoreCase(sessionUuid string, caseNo int64, reason string) IgnoreCase {
	return IgnoreCase{
		Header: NewHeader(sessionUuid, IgnoreCaseMsg),
		CaseNo: caseNo,
		Reason: reason,
	}
}

func NewFinishRun(sessionUuid string, caseNo int64, run RunResult) FinishRun {
	return FinishRun{
		Header: NewHeader(sessionUuid, FinishRunMsg),
		CaseNo: caseNo,
		Run:    run,
	}
}

func NewFinishCase(sessionUuid string, caseNo int64, abnormal bool) FinishCase {
	return FinishCase{
		Header:   NewHeader(sessionUuid, FinishCaseMsg),
		CaseNo:   caseNo,
		Abnormal: abnormal,
	}
}

func NewFinishSession(sessionUuid string, summary *SessionSummary, errorMessage *string) FinishSession {
	return FinishSession{
		Header:       NewHeader(sessionUuid, FinishSessionMsg),
		Summary:      summary,
		ErrorMessage: errorMessage,
	}
}
