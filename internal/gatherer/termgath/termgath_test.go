package termgath_test

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/fatih/color"
	"github.com/richardxx/ojtester/api"
	"github.com/richardxx/ojtester/internal/gatherer/termgath"
	"github.com/stretchr/testify/assert"
)

func TestConsoleFormat(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	g := termgath.New(&buf, false)

	g.StartCase(1, "t1.in")
	g.FinishRun(1, api.RunResult{Program: 0, Verdict: "Accepted", Short: "AC", CpuMillis: 12, MemoryKiBytes: 1024})
	g.FinishRun(1, api.RunResult{Program: 1, Verdict: "Time Limit Exceed", Short: "TLE", CpuMillis: 1000, MemoryKiBytes: 2048})
	g.FinishCase(1, true)
	g.FinishSession(api.SessionSummary{
		Programs: []api.ProgramSummary{
			{Program: 0, TotalCpuMillis: 12, AverageCpuMillis: 12, AverageMemKiB: 1024},
		},
	})

	want := "Test 1:\n" +
		"Prog 0: Result=                 Accepted, Time =      12ms, Memory =    1024KB\n" +
		"Prog 1: Result=        Time Limit Exceed, Time =    1000ms, Memory =    2048KB\n" +
		"\n" +
		"Summary:\n" +
		"Tot. time =       12ms, Ave. time =      12ms, Ave. Memory =    1024KB\n"
	assert.Equal(t, want, buf.String())

	line := regexp.MustCompile(`Prog 0: Result=.*Accepted.*, Time = .*ms, Memory = .*KB`)
	assert.Regexp(t, line, buf.String())
}

func TestVerboseSummaryListsFailures(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	g := termgath.New(&buf, true)
	g.FinishSession(api.SessionSummary{
		Programs: []api.ProgramSummary{
			{Program: 0, AllAccepted: true},
			{Program: 1, Failures: []string{"WA", "TLE"}},
		},
	})

	want := "Summary:\n" +
		"Tot. time =        0ms, Ave. time =       0ms, Ave. Memory =       0KB\n" +
		"Tot. time =        0ms, Ave. time =       0ms, Ave. Memory =       0KB\n" +
		"Prog 1 failed with: WA TLE\n"
	assert.Equal(t, want, buf.String())
}

func TestSessionError(t *testing.T) {
	var buf bytes.Buffer
	g := termgath.New(&buf, false)
	g.SessionError("Get standard answer error")
	assert.Equal(t, "Get standard answer error, terminated.\n", buf.String())
}
