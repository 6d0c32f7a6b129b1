package api

// ProgramSummary aggregates one program over all cases it ran on
type ProgramSummary struct {
	Program int    `json:"program"`
	Path    string `json:"path"`
	Cases   int    `json:"cases"`

	// Verdicts counts results by display string
	Verdicts map[string]int `json:"verdicts"`

	TotalCpuMillis   int64 `json:"total_cpu_ms"`
	AverageCpuMillis int64 `json:"avg_cpu_ms"`
	AverageMemKiB    int64 `json:"avg_mem_kib"`
	MaxCpuMillis     int64 `json:"max_cpu_ms"`
	MaxMemKiB        int64 `json:"max_mem_kib"`

	// Failures holds the short codes of every distinct non-accepted verdict
	Failures    []string `json:"failures,omitempty"`
	AllAccepted bool     `json:"all_accepted"`
}

// SessionSummary is what a finished session reports
type SessionSummary struct {
	Cases    int              `json:"cases"`
	Ignored  int              `json:"ignored"`
	Abnormal bool             `json:"abnormal"`
	Programs []ProgramSummary `json:"programs"`

	// PreservedAt is where the scratch directory was kept, if anywhere
	PreservedAt *string `json:"preserved_at,omitempty"`
}

type SessionStatus string

const (
	Passed  SessionStatus = "passed"
	Failed  SessionStatus = "failed"
	Errored SessionStatus = "errored"
)

// CaseResult collects the runs of one case
type CaseResult struct {
	CaseNo   int64       `json:"case_no"`
	Source   string      `json:"source"`
	Ignored  bool        `json:"ignored"`
	Reason   *string     `json:"reason,omitempty"`
	Abnormal bool        `json:"abnormal"`
	Runs     []RunResult `json:"runs"`
}

// SessionReport is the complete, non-streamed record of a session
type SessionReport struct {
	SessionUuid string        `json:"session_uuid"`
	Status      SessionStatus `json:"status"`

	Info    SessionInfo     `json:"info"`
	Cases   []CaseResult    `json:"cases"`
	Summary *SessionSummary `json:"summary,omitempty"`

	ErrorMessage *string `json:"error_message,omitempty"`

	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
}
