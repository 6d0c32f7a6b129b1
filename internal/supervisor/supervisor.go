// Package supervisor runs a program with redirected streams under CPU time,
// wall time and memory limits, and reports how it finished.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/richardxx/ojtester/internal/resuse"
)

// DefaultPollInterval is how often a running child is checked.
const DefaultPollInterval = 20 * time.Microsecond

// ErrRedirect is returned when a stream file cannot be opened. No process
// is started in that case.
var ErrRedirect = errors.New("cannot open redirected stream")

type Supervisor struct {
	pollInterval time.Duration
	log          *slog.Logger
	spawner      spawner
}

type Option func(*Supervisor)

func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		pollInterval: DefaultPollInterval,
		log:          slog.Default(),
		spawner:      osSpawner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts the program described by spec and waits for it.
//
// While the child runs its wall time is compared with the time limit every
// poll interval; once it reaches the limit the whole process group is
// killed. CPU time and memory are only known after exit, when the
// accounting is checked against both limits, so a child that finished in
// time can still be classified as TimeLimitExceeded or
// MemoryLimitExceeded. A child that was terminated by
// a signal it did not get from us is a SystemError.
//
// Cancelling ctx kills the child; the returned error is then ctx.Err().
// A non-nil error is only returned for setup failures and cancellation;
// start and wait failures are reported as SystemError results.
func (s *Supervisor) Run(ctx context.Context, spec Spec) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	streams, err := openStreams(spec)
	if err != nil {
		return Result{}, err
	}
	defer streams.close()

	start := time.Now()
	c, err := s.spawner.spawn(spec.argv(), streams.stdin, streams.stdout, streams.stderr)
	if err != nil {
		s.log.Warn("failed to start program", "program", spec.Program.String(), "error", err)
		return Result{Outcome: SystemError}, nil
	}
	defer c.release()

	// the parent copies are not needed once the child holds them
	streams.close()

	return s.watch(ctx, c, start, spec.Limits)
}

func (s *Supervisor) watch(ctx context.Context, c child, start time.Time, limits *resuse.Limits) (Result, error) {
	var limit time.Duration
	if limits != nil && limits.TimeMs > 0 {
		limit = time.Duration(limits.TimeMs) * time.Millisecond
	}

	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for {
		done, st, err := c.poll()
		if err != nil {
			s.log.Error("failed to poll child", "pid", c.pid(), "error", err)
			_ = c.kill()
			_, _ = c.reap()
			return Result{Outcome: SystemError}, nil
		}
		elapsed := time.Since(start)
		if done {
			return finish(st, elapsed, limits), nil
		}

		if limit > 0 && elapsed >= limit {
			return s.killForTime(c, elapsed), nil
		}

		timer.Reset(s.pollInterval)
		select {
		case <-ctx.Done():
			if err := c.kill(); err != nil {
				s.log.Error("failed to kill child", "pid", c.pid(), "error", err)
			}
			_, _ = c.reap()
			return Result{Outcome: SystemError, Usage: resuse.Usage{WallTime: time.Since(start)}}, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Supervisor) killForTime(c child, elapsed time.Duration) Result {
	if err := c.kill(); err != nil {
		s.log.Error("failed to kill child", "pid", c.pid(), "error", err)
	}
	st, err := c.reap()
	if err != nil {
		s.log.Warn("failed to reap killed child", "pid", c.pid(), "error", err)
	}
	usage := resuse.FromRusage(&st.rusage, elapsed)
	// CPU accounting of a killed child lags; report the elapsed time
	usage.UserTime = elapsed
	return Result{Outcome: TimeLimitExceeded, Usage: usage}
}

func finish(st exitState, elapsed time.Duration, limits *resuse.Limits) Result {
	res := Result{Usage: resuse.FromRusage(&st.rusage, elapsed)}
	if !st.status.Exited() {
		res.Outcome = SystemError
		if st.status.Signaled() {
			res.Signal = st.status.Signal().String()
		}
		return res
	}
	res.Exited = true
	res.ExitStatus = st.status.ExitStatus()
	res.Outcome = recheck(res.Usage, limits)
	return res
}

type streams struct {
	stdin, stdout, stderr *os.File
	owned                 []*os.File
}

func openStreams(spec Spec) (*streams, error) {
	s := &streams{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}

	open := func(path string, flag int) (*os.File, error) {
		f, err := os.OpenFile(path, flag, 0o644)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("%w: %w", ErrRedirect, err)
		}
		s.owned = append(s.owned, f)
		return f, nil
	}

	var err error
	if spec.Stdin != "" {
		if s.stdin, err = open(spec.Stdin, os.O_RDONLY); err != nil {
			return nil, err
		}
	}
	const wflag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if spec.Stdout != "" {
		if s.stdout, err = open(spec.Stdout, wflag); err != nil {
			return nil, err
		}
	}
	if spec.Stderr != "" {
		if s.stderr, err = open(spec.Stderr, wflag); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *streams) close() {
	for _, f := range s.owned {
		_ = f.Close()
	}
	s.owned = nil
}
