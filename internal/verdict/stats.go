package verdict

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/richardxx/ojtester/internal/resuse"
)

// Stats accumulates the results of one program over a session.
type Stats struct {
	Counts map[Verdict]int
	Total  resuse.Usage
	Cases  int
	// MaxTimeMs and MaxMemKiB are the worst single-case values seen.
	MaxTimeMs int64
	MaxMemKiB int64

	failed mapset.Set[Verdict]
}

func NewStats() *Stats {
	return &Stats{
		Counts: make(map[Verdict]int),
		failed: mapset.NewThreadUnsafeSet[Verdict](),
	}
}

func (s *Stats) Add(v Verdict, u resuse.Usage) {
	s.Counts[v]++
	s.Cases++
	s.Total = resuse.Combine(s.Total, u)
	s.MaxTimeMs = max(s.MaxTimeMs, u.TimeUsedMs())
	s.MaxMemKiB = max(s.MaxMemKiB, u.MemUsedKiB())
	if v != Accepted {
		s.failed.Add(v)
	}
}

// AverageTimeMs divides by the number of cases actually run.
func (s *Stats) AverageTimeMs() int64 {
	if s.Cases == 0 {
		return 0
	}
	return s.Total.TimeUsedMs() / int64(s.Cases)
}

func (s *Stats) AverageMemKiB() int64 {
	if s.Cases == 0 {
		return 0
	}
	return s.Total.MemUsedKiB() / int64(s.Cases)
}

// Failures lists the distinct non-accepted verdicts in enum order.
func (s *Stats) Failures() []Verdict {
	out := make([]Verdict, 0, s.failed.Cardinality())
	for v := Normal; v <= NotChecked; v++ {
		if s.failed.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s *Stats) AllAccepted() bool {
	return s.Cases > 0 && s.failed.IsEmpty()
}
