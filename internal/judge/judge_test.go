package judge_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/richardxx/ojtester/api"
	"github.com/richardxx/ojtester/internal/compile"
	"github.com/richardxx/ojtester/internal/config"
	"github.com/richardxx/ojtester/internal/gatherer"
	"github.com/richardxx/ojtester/internal/gatherer/respbuilder"
	"github.com/richardxx/ojtester/internal/gatherer/termgath"
	"github.com/richardxx/ojtester/internal/judge"
	"github.com/richardxx/ojtester/internal/supervisor"
	"github.com/richardxx/ojtester/internal/verdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t      *testing.T
	base   string
	out    bytes.Buffer
	report *respbuilder.Builder
	cfg    config.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	color.NoColor = true

	e := &env{t: t, base: t.TempDir(), report: respbuilder.New("test")}
	e.cfg = config.Default()
	e.cfg.ScratchDir = filepath.Join(e.base, "scratch")
	return e
}

func (e *env) script(name, body string) string {
	e.t.Helper()
	p := filepath.Join(e.base, name)
	require.NoError(e.t, os.WriteFile(p, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return p
}

func (e *env) dir(name string, contents map[string]string) string {
	e.t.Helper()
	d := filepath.Join(e.base, name)
	require.NoError(e.t, os.MkdirAll(d, 0o755))
	for n, c := range contents {
		require.NoError(e.t, os.WriteFile(filepath.Join(d, n), []byte(c), 0o644))
	}
	return d
}

func (e *env) setup(ctx context.Context) (*judge.Judge, error) {
	sup := supervisor.New(supervisor.WithPollInterval(100 * time.Microsecond))
	return judge.Setup(ctx, &e.cfg, judge.Deps{
		Runner:   sup,
		Compiler: compile.New(filepath.Join(e.base, "cache"), sup),
		Gatherer: gatherer.Multi{termgath.New(&e.out, false), e.report},
	})
}

func (e *env) run(ctx context.Context) (judge.Summary, error) {
	e.t.Helper()
	j, err := e.setup(ctx)
	require.NoError(e.t, err)
	defer func() { assert.NoError(e.t, j.Close()) }()
	return j.Run(ctx)
}

func (e *env) verdicts() [][]string {
	var out [][]string
	for _, c := range e.report.Report().Cases {
		var vs []string
		for _, r := range c.Runs {
			vs = append(vs, r.Verdict)
		}
		out = append(out, vs)
	}
	return out
}

func TestEchoProgramAccepted(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("echo.sh", "cat")}
	e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1 2\n"})
	e.cfg.OutputDir = e.dir("out", map[string]string{"t1.out": "1 2\n"})

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.False(t, sum.Abnormal)
	assert.Equal(t, 1, sum.Cases)
	assert.Equal(t, 1, sum.Stats[0].Counts[verdict.Accepted])
	assert.Regexp(t, `Prog 0: Result=\s*Accepted, Time = \s*\d+ms, Memory = \s*\d+KB`, e.out.String())
	assert.True(t, strings.HasPrefix(e.out.String(), "Test 1:\n"))
	assert.Contains(t, e.out.String(), "Summary:\nTot. time = ")
}

func TestTrailingWhitespaceIsPresentationError(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("echo.sh", "cat")}
	e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1 2\n"})
	e.cfg.OutputDir = e.dir("out", map[string]string{"t1.out": "1 2   \n\n"})

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Abnormal)
	assert.Equal(t, [][]string{{"Presentation Error"}}, e.verdicts())
}

func TestSlowProgramStopsSessionAfterCase(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("slow.sh", "sleep 5"), e.script("echo.sh", "cat")}
	e.cfg.TimeLimitMs = 200
	e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1\n", "t2.in": "2\n"})
	e.cfg.OutputDir = e.dir("out", map[string]string{"t1.out": "1\n", "t2.out": "2\n"})
	e.cfg.DumpDir = filepath.Join(e.base, "dump")

	start := time.Now()
	sum, err := e.run(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	assert.True(t, sum.Abnormal)
	assert.Equal(t, 1, sum.Cases)
	// the other candidate still ran on the failing case
	assert.Equal(t, [][]string{{"Time Limit Exceed", "Accepted"}}, e.verdicts())

	require.Equal(t, e.cfg.DumpDir, sum.PreservedAt)
	assert.FileExists(t, filepath.Join(sum.PreservedAt, "input_data.txt"))
	assert.FileExists(t, filepath.Join(sum.PreservedAt, "prog1_output.txt"))
}

func TestStandardProgramIsNotRerun(t *testing.T) {
	e := newEnv(t)
	counter := filepath.Join(e.base, "std-runs")
	e.cfg.Programs = []string{
		e.script("other.sh", "cat"),
		e.script("std.sh", "echo run >> "+counter+"\ncat"),
	}
	e.cfg.StdIndex = 1
	e.cfg.Generator = e.script("gen.sh", "echo 7 8")
	e.cfg.Runs = 3

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.False(t, sum.Abnormal)
	assert.Equal(t, 3, sum.Cases)
	assert.Equal(t, 3, sum.Stats[1].Counts[verdict.Accepted])

	runs, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(runs), "run"))

	for _, c := range e.report.Report().Cases {
		require.Len(t, c.Runs, 2)
		assert.False(t, c.Runs[0].Reference)
		assert.True(t, c.Runs[1].Reference)
	}
	require.NotNil(t, e.report.Report().Info.StdIndex)
	assert.Equal(t, 1, *e.report.Report().Info.StdIndex)
}

func TestFailingStandardProgramAbortsSession(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("std.sh", "kill -SEGV $$")}
	e.cfg.InputDir = e.dir("in", map[string]string{"a": "1"})

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Abnormal)
	assert.Zero(t, sum.Cases)
	assert.Contains(t, e.out.String(), "Get standard answer error, terminated.\n")
	assert.Equal(t, api.Errored, e.report.Report().Status)
}

func TestUnmatchedInputIsIgnored(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("echo.sh", "cat")}
	e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1\n", "t2.txt": "2\n"})
	e.cfg.OutputDir = e.dir("out", map[string]string{"t1.out": "1\n"})

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.False(t, sum.Abnormal)
	assert.Equal(t, 1, sum.Cases)
	assert.Equal(t, 1, sum.Ignored)
}

func TestExternalChecker(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("echo.sh", "cat"), e.script("wrong.sh", "echo nope")}
	e.cfg.Checker = e.script("chk.sh", `[ "$(cat "$1")" = "$(cat "$2")" ] && exit 0
exit 1`)
	e.cfg.InputDir = e.dir("in", map[string]string{"t1": "hello\n"})

	sum, err := e.run(context.Background())
	require.NoError(t, err)

	assert.True(t, sum.Abnormal)
	assert.Equal(t, [][]string{{"Accepted", "Wrong Answer"}}, e.verdicts())

	progs := e.report.Report().Summary.Programs
	require.Len(t, progs, 2)
	assert.True(t, progs[0].AllAccepted)
	assert.Empty(t, progs[0].Failures)
	assert.False(t, progs[1].AllAccepted)
	assert.Equal(t, []string{"WA"}, progs[1].Failures)
}

func TestCancelEndsSession(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("slow.sh", "sleep 5")}
	e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1\n"})
	e.cfg.OutputDir = e.dir("out", map[string]string{"t1.out": "1\n"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	sum, err := e.run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, sum.Abnormal)
}

func TestCloseRemovesScratch(t *testing.T) {
	e := newEnv(t)
	e.cfg.Programs = []string{e.script("echo.sh", "cat")}
	e.cfg.InputDir = e.dir("in", nil)

	j, err := e.setup(context.Background())
	require.NoError(t, err)
	assert.DirExists(t, j.ScratchPath())

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())
	assert.NoDirExists(t, j.ScratchPath())
}

func TestSetupErrors(t *testing.T) {
	t.Run("no pattern", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.Programs = []string{e.script("echo.sh", "cat")}
		e.cfg.InputDir = e.dir("in", map[string]string{"t1.in": "1"})
		e.cfg.OutputDir = e.dir("out", nil)

		_, err := e.setup(context.Background())
		var se *judge.SetupError
		require.ErrorAs(t, err, &se)
		assert.Contains(t, se.Error(), "no unique mapping pattern")
	})

	t.Run("no input", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.Programs = []string{e.script("echo.sh", "cat")}

		_, err := e.setup(context.Background())
		var se *judge.SetupError
		assert.ErrorAs(t, err, &se)
	})

	t.Run("no programs", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.InputDir = e.dir("in", nil)

		_, err := e.setup(context.Background())
		assert.ErrorIs(t, err, config.ErrNoPrograms)
	})

	t.Run("std index reset", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.Programs = []string{e.script("echo.sh", "cat")}
		e.cfg.Generator = e.script("gen.sh", "echo 1")
		e.cfg.StdIndex = 5

		j, err := e.setup(context.Background())
		require.NoError(t, err)
		defer j.Close()
		assert.Zero(t, e.cfg.StdIndex)
	})
}
