package resuse

import (
	"math"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Usage is the resource footprint of one run, or the sum of many runs.
type Usage struct {
	UserTime    time.Duration
	WallTime    time.Duration
	MinorFaults int64
}

// Limits bound a single supervised run. A zero MemKiB disables the memory check.
type Limits struct {
	TimeMs int64
	MemKiB int64
}

func FromRusage(ru *unix.Rusage, wall time.Duration) Usage {
	if ru == nil {
		return Usage{WallTime: wall}
	}
	return Usage{
		UserTime:    time.Duration(ru.Utime.Nano()),
		WallTime:    wall,
		MinorFaults: int64(ru.Minflt),
	}
}

// TimeUsedMs is the user-mode CPU time in whole milliseconds.
func (u Usage) TimeUsedMs() int64 {
	return u.UserTime.Milliseconds()
}

func (u Usage) WallTimeMs() int64 {
	return u.WallTime.Milliseconds()
}

// MemUsedKiB converts the minor page fault count into kilobytes.
func (u Usage) MemUsedKiB() int64 {
	return PagesToKiB(u.MinorFaults)
}

// Combine adds two usage records field by field.
func Combine(a, b Usage) Usage {
	return Usage{
		UserTime:    a.UserTime + b.UserTime,
		WallTime:    a.WallTime + b.WallTime,
		MinorFaults: a.MinorFaults + b.MinorFaults,
	}
}

var pageSize = int64(os.Getpagesize())

func PagesToKiB(pages int64) int64 {
	return pagesToKiB(pages, pageSize)
}

// pagesToKiB computes floor(pages*pageSize/1024) without overflowing int64.
// The page count is split into whole KiB blocks, which are divided before
// multiplying, and a remainder small enough to multiply first.
func pagesToKiB(pages, pageSize int64) int64 {
	if pages <= 0 || pageSize <= 0 {
		return 0
	}
	blocks, rest := pages/1024, pages%1024
	if blocks > math.MaxInt64/pageSize {
		return math.MaxInt64
	}
	kib := blocks * pageSize
	tail := rest * pageSize / 1024
	if kib > math.MaxInt64-tail {
		return math.MaxInt64
	}
	return kib + tail
}
