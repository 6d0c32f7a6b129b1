package supervisor

import "github.com/richardxx/ojtester/internal/resuse"

// Outcome classifies how a supervised process finished.
type Outcome int

const (
	Normal Outcome = iota
	TimeLimitExceeded
	MemoryLimitExceeded
	SystemError
)

func (o Outcome) String() string {
	switch o {
	case Normal:
		return "normal"
	case TimeLimitExceeded:
		return "time limit exceeded"
	case MemoryLimitExceeded:
		return "memory limit exceeded"
	case SystemError:
		return "system error"
	}
	return "unknown"
}

// Result is what the supervisor learned about one run.
type Result struct {
	Outcome Outcome
	Usage   resuse.Usage

	// Exited reports a normal exit; ExitStatus is only meaningful then.
	Exited     bool
	ExitStatus int
	Signal     string
}

// recheck applies the limits again using post-exit accounting.
func recheck(usage resuse.Usage, limits *resuse.Limits) Outcome {
	if limits == nil {
		return Normal
	}
	if limits.TimeMs > 0 && usage.TimeUsedMs() >= limits.TimeMs {
		return TimeLimitExceeded
	}
	if limits.MemKiB > 0 && usage.MemUsedKiB() >= limits.MemKiB {
		return MemoryLimitExceeded
	}
	return Normal
}
