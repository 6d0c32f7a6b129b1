// Package verdict maps supervised runs onto judge verdicts and keeps
// per-program statistics.
package verdict

import (
	"github.com/richardxx/ojtester/internal/supervisor"
)

type Verdict int

const (
	Normal Verdict = iota
	Accepted
	WrongAnswer
	PresentationError
	TimeLimitExceeded
	MemoryLimitExceeded
	SystemError
	ValidationError
	NotChecked
)

// The display strings are part of the console output and are kept
// exactly as users have always seen them.
var names = [...]string{
	Normal:              "Normal",
	Accepted:            "Accepted",
	WrongAnswer:         "Wrong Answer",
	PresentationError:   "Presentation Error",
	TimeLimitExceeded:   "Time Limit Exceed",
	MemoryLimitExceeded: "Memory Limit Excedd",
	SystemError:         "System Error",
	ValidationError:     "Validation Error",
	NotChecked:          "Not Checked",
}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(names) {
		return "Unknown"
	}
	return names[v]
}

// Short is the conventional two or three letter code.
func (v Verdict) Short() string {
	switch v {
	case Accepted:
		return "AC"
	case WrongAnswer:
		return "WA"
	case PresentationError:
		return "PE"
	case TimeLimitExceeded:
		return "TLE"
	case MemoryLimitExceeded:
		return "MLE"
	case SystemError:
		return "SE"
	case ValidationError:
		return "VE"
	case NotChecked:
		return "NC"
	}
	return "OK"
}

// FromOutcome gives the verdict fixed by a supervisor outcome. For a
// Normal outcome it returns Normal, meaning the output still needs checking.
func FromOutcome(o supervisor.Outcome) Verdict {
	switch o {
	case supervisor.Normal:
		return Normal
	case supervisor.TimeLimitExceeded:
		return TimeLimitExceeded
	case supervisor.MemoryLimitExceeded:
		return MemoryLimitExceeded
	}
	return SystemError
}

// Classify returns the verdict for one run. check is only called when the
// run finished normally.
func Classify(o supervisor.Outcome, check func() Verdict) Verdict {
	if v := FromOutcome(o); v != Normal {
		return v
	}
	if check == nil {
		return NotChecked
	}
	return check()
}
