package supervisor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeChild never exits on its own; it terminates only when killed.
type fakeChild struct {
	killed   atomic.Bool
	killedAt time.Time
	exitAt   time.Time // zero means never
	state    exitState
}

func (c *fakeChild) pid() int { return 4242 }

func (c *fakeChild) poll() (bool, exitState, error) {
	if !c.exitAt.IsZero() && !time.Now().Before(c.exitAt) {
		return true, c.state, nil
	}
	return false, exitState{}, nil
}

func (c *fakeChild) kill() error {
	c.killed.Store(true)
	c.killedAt = time.Now()
	return nil
}

func (c *fakeChild) reap() (exitState, error) { return exitState{}, nil }

func (c *fakeChild) release() {}

type fakeSpawner struct {
	child *fakeChild
	err   error
	argv  []string
}

func (s *fakeSpawner) spawn(argv []string, _, _, _ *os.File) (child, error) {
	s.argv = argv
	if s.err != nil {
		return nil, s.err
	}
	return s.child, nil
}

func newFake(child *fakeChild, poll time.Duration) (*Supervisor, *fakeSpawner) {
	sp := &fakeSpawner{child: child}
	sup := New(WithPollInterval(poll))
	sup.spawner = sp
	return sup, sp
}

func exitedWith(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}

func TestSlowChildKilledWithinOnePollInterval(t *testing.T) {
	const poll = 5 * time.Millisecond
	child := &fakeChild{}
	sup, _ := newFake(child, poll)

	start := time.Now()
	res, err := sup.Run(context.Background(), Spec{
		Program: Program{Path: "slow"},
		Limits:  &resuse.Limits{TimeMs: 50},
	})
	require.NoError(t, err)

	assert.Equal(t, TimeLimitExceeded, res.Outcome)
	require.True(t, child.killed.Load())

	limit := 50 * time.Millisecond
	killDelay := child.killedAt.Sub(start)
	assert.GreaterOrEqual(t, killDelay, limit)
	// generous scheduler slack on top of one interval
	assert.Less(t, killDelay, limit+poll+50*time.Millisecond)
	assert.GreaterOrEqual(t, res.Usage.UserTime, limit)
	assert.False(t, res.Exited)
}

func TestPostExitRecheck(t *testing.T) {
	tests := []struct {
		name   string
		rusage unix.Rusage
		limits *resuse.Limits
		want   Outcome
	}{
		{
			name:   "cpu time above limit",
			rusage: unix.Rusage{Utime: unix.Timeval{Sec: 2}},
			limits: &resuse.Limits{TimeMs: 1000},
			want:   TimeLimitExceeded,
		},
		{
			name:   "cpu time equal to limit",
			rusage: unix.Rusage{Utime: unix.Timeval{Sec: 1}},
			limits: &resuse.Limits{TimeMs: 1000},
			want:   TimeLimitExceeded,
		},
		{
			name:   "memory above limit",
			rusage: unix.Rusage{Minflt: 1 << 20},
			limits: &resuse.Limits{TimeMs: 1000, MemKiB: 1024},
			want:   MemoryLimitExceeded,
		},
		{
			name:   "within limits",
			rusage: unix.Rusage{Utime: unix.Timeval{Usec: 1000}, Minflt: 1},
			limits: &resuse.Limits{TimeMs: 1000, MemKiB: 1 << 20},
			want:   Normal,
		},
		{
			name:   "no limits",
			rusage: unix.Rusage{Utime: unix.Timeval{Sec: 100}},
			want:   Normal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// exits before the first poll can see the wall clock pass the limit
			child := &fakeChild{
				exitAt: time.Now(),
				state:  exitState{status: exitedWith(0), rusage: tt.rusage},
			}
			sup, _ := newFake(child, time.Hour)

			res, err := sup.Run(context.Background(), Spec{Program: Program{Path: "fast"}, Limits: tt.limits})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Outcome)
			assert.True(t, res.Exited)
			assert.False(t, child.killed.Load())
		})
	}
}

func TestStartFailureIsSystemError(t *testing.T) {
	sup, _ := newFake(nil, time.Millisecond)
	sup.spawner.(*fakeSpawner).err = errors.New("exec format error")

	res, err := sup.Run(context.Background(), Spec{Program: Program{Path: "broken"}})
	require.NoError(t, err)
	assert.Equal(t, SystemError, res.Outcome)
	assert.Equal(t, resuse.Usage{}, res.Usage)
}

func TestStartFailureLogsToConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	sup := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	sup.spawner = &fakeSpawner{err: errors.New("exec format error")}

	res, err := sup.Run(context.Background(), Spec{Program: Program{Path: "broken"}})
	require.NoError(t, err)
	assert.Equal(t, SystemError, res.Outcome)
	assert.Contains(t, buf.String(), "failed to start program")
	assert.Contains(t, buf.String(), "program=broken")
}

func TestArgvOrder(t *testing.T) {
	child := &fakeChild{exitAt: time.Now(), state: exitState{status: exitedWith(0)}}
	sup, sp := newFake(child, time.Millisecond)

	_, err := sup.Run(context.Background(), Spec{
		Program: Program{Path: "java", Args: []string{"-cp", "/bin"}},
		Args:    []string{"in.txt", "out.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"java", "-cp", "/bin", "in.txt", "out.txt"}, sp.argv)
}

func TestCancelKillsChild(t *testing.T) {
	child := &fakeChild{}
	sup, _ := newFake(child, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := sup.Run(ctx, Spec{Program: Program{Path: "slow"}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, SystemError, res.Outcome)
	assert.True(t, child.killed.Load())
}

func TestRedirectFailureStartsNothing(t *testing.T) {
	child := &fakeChild{}
	sup, sp := newFake(child, time.Millisecond)

	_, err := sup.Run(context.Background(), Spec{
		Program: Program{Path: "prog"},
		Stdin:   filepath.Join(t.TempDir(), "missing.txt"),
	})
	require.ErrorIs(t, err, ErrRedirect)
	assert.Nil(t, sp.argv)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestRealProcess(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	sup := New(WithPollInterval(100 * time.Microsecond))

	t.Run("exit status and redirects", func(t *testing.T) {
		dir := t.TempDir()
		in := filepath.Join(dir, "in.txt")
		out := filepath.Join(dir, "out.txt")
		require.NoError(t, os.WriteFile(in, []byte("hello\n"), 0o644))

		res, err := sup.Run(context.Background(), Spec{
			Program: Program{Path: writeScript(t, "cat; exit 3")},
			Stdin:   in,
			Stdout:  out,
			Stderr:  os.DevNull,
			Limits:  &resuse.Limits{TimeMs: 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, Normal, res.Outcome)
		assert.True(t, res.Exited)
		assert.Equal(t, 3, res.ExitStatus)

		got, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(got))
	})

	t.Run("sleep past limit", func(t *testing.T) {
		res, err := sup.Run(context.Background(), Spec{
			Program: Program{Path: writeScript(t, "sleep 5")},
			Stdout:  os.DevNull,
			Limits:  &resuse.Limits{TimeMs: 100},
		})
		require.NoError(t, err)
		assert.Equal(t, TimeLimitExceeded, res.Outcome)
		assert.Less(t, res.Usage.WallTime, 3*time.Second)
	})

	t.Run("killed by signal", func(t *testing.T) {
		res, err := sup.Run(context.Background(), Spec{
			Program: Program{Path: writeScript(t, "kill -SEGV $$")},
			Limits:  &resuse.Limits{TimeMs: 5000},
		})
		require.NoError(t, err)
		assert.Equal(t, SystemError, res.Outcome)
		assert.False(t, res.Exited)
	})

	t.Run("missing program", func(t *testing.T) {
		res, err := sup.Run(context.Background(), Spec{
			Program: Program{Path: filepath.Join(t.TempDir(), "nope")},
		})
		require.NoError(t, err)
		assert.Equal(t, SystemError, res.Outcome)
	})
}
