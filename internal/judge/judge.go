// Package judge drives a judging session: it pulls inputs, obtains
// reference answers, runs every candidate on each case and reports the
// verdicts until the inputs run out or a case fails.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/richardxx/ojtester/api"
	"github.com/richardxx/ojtester/internal/files"
	"github.com/richardxx/ojtester/internal/gatherer"
	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/scratch"
	"github.com/richardxx/ojtester/internal/strategy"
	"github.com/richardxx/ojtester/internal/supervisor"
	"github.com/richardxx/ojtester/internal/verdict"
)

const stderrExcerptBytes = 8 << 10

type Judge struct {
	programs []supervisor.Program
	names    []string
	limits   resuse.Limits

	runner  strategy.Runner
	input   strategy.InputSource
	ref     strategy.ReferenceSource
	checker strategy.Checker

	ws      *scratch.Dir
	gath    gatherer.ResultGatherer
	dumpDir string
	stdIdx  *int

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// Summary is the outcome of a whole session.
type Summary struct {
	// Cases counts the cases whose candidates actually ran.
	Cases    int
	Ignored  int
	Abnormal bool
	Stats    []*verdict.Stats
	// PreservedAt is set when the scratch directory was kept.
	PreservedAt string
}

// Run executes the session. A non-nil error is only returned when ctx was
// cancelled; every other problem ends the session as abnormal.
func (j *Judge) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Stats: make([]*verdict.Stats, len(j.programs))}
	for i := range sum.Stats {
		sum.Stats[i] = verdict.NewStats()
	}

	j.gath.StartSession(j.info())

	var runErr error
	var caseNo int64
	for !sum.Abnormal {
		if err := ctx.Err(); err != nil {
			runErr = err
			sum.Abnormal = true
			break
		}

		in, ok, err := j.input.Next(ctx)
		if err != nil {
			sum.Abnormal = true
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			slog.Error("failed to get input", "source", j.input.Name(), "error", err)
			j.gath.SessionError("Get input data error")
			break
		}
		if !ok {
			break
		}

		caseNo++
		j.gath.StartCase(caseNo, in.Source)

		ref, err := j.ref.Get(ctx, in)
		if errors.Is(err, strategy.ErrNoReference) {
			sum.Ignored++
			j.gath.IgnoreCase(caseNo, err.Error())
			continue
		}
		if err != nil {
			sum.Abnormal = true
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			slog.Error("failed to get reference answer", "input", in.Source, "error", err)
			j.gath.SessionError("Get standard answer error")
			break
		}

		abnormal, err := j.runCase(ctx, caseNo, in, ref, sum.Stats)
		sum.Cases++
		j.gath.FinishCase(caseNo, abnormal)
		if err != nil {
			runErr = err
			abnormal = true
		}
		sum.Abnormal = abnormal
	}

	if sum.Abnormal && j.dumpDir != "" {
		dst, err := j.ws.Preserve(j.dumpDir)
		if err != nil {
			slog.Error("failed to preserve scratch directory", "dump", j.dumpDir, "error", err)
		} else {
			sum.PreservedAt = dst
		}
	}

	j.gath.FinishSession(j.apiSummary(sum))
	return sum, runErr
}

// runCase runs every candidate on one case, even after one has failed.
func (j *Judge) runCase(ctx context.Context, caseNo int64, in strategy.Input, ref strategy.Reference, stats []*verdict.Stats) (bool, error) {
	abnormal := false
	for i := range j.programs {
		run, usage, err := j.runOne(ctx, i, in, ref)
		if err != nil {
			return true, err
		}
		stats[i].Add(run.v, usage)
		j.gath.FinishRun(caseNo, run.api)
		if run.v != verdict.Accepted {
			abnormal = true
		}
	}
	return abnormal, nil
}

type runReport struct {
	v   verdict.Verdict
	api api.RunResult
}

func (j *Judge) runOne(ctx context.Context, i int, in strategy.Input, ref strategy.Reference) (runReport, resuse.Usage, error) {
	out := j.ws.OutputPath(i)

	if ref.FromProgram && ref.Program == i {
		v := verdict.Accepted
		// keep the answer next to the other outputs for a preserved dump
		if err := files.Copy(ref.Path, out); err != nil {
			slog.Error("failed to copy reference output", "error", err)
			v = verdict.SystemError
		}
		rr := newRunResult(i, v, ref.Usage)
		rr.Reference = true
		return runReport{v: v, api: rr}, ref.Usage, nil
	}

	res, err := j.runner.Run(ctx, supervisor.Spec{
		Program: j.programs[i],
		Stdin:   in.Path,
		Stdout:  out,
		Stderr:  j.ws.ErrorPath(i),
		Limits:  &j.limits,
	})
	if err != nil {
		if ctx.Err() != nil {
			return runReport{}, resuse.Usage{}, ctx.Err()
		}
		slog.Error("failed to set up program", "program", j.names[i], "error", err)
		res = supervisor.Result{Outcome: supervisor.SystemError}
	}

	v := verdict.Classify(res.Outcome, func() verdict.Verdict {
		return j.checker.Check(ctx, in, ref, out)
	})

	rr := newRunResult(i, v, res.Usage)
	if res.Exited {
		code := int64(res.ExitStatus)
		rr.ExitCode = &code
	}
	if res.Signal != "" {
		sig := res.Signal
		rr.ExitSignal = &sig
	}
	if v != verdict.Accepted {
		if head, err := files.ReadHead(j.ws.ErrorPath(i), stderrExcerptBytes); err == nil {
			rr.Stderr = string(head)
		}
	}
	return runReport{v: v, api: rr}, res.Usage, nil
}

func newRunResult(i int, v verdict.Verdict, u resuse.Usage) api.RunResult {
	return api.RunResult{
		Program:       i,
		Verdict:       v.String(),
		Short:         v.Short(),
		CpuMillis:     u.TimeUsedMs(),
		WallMillis:    u.WallTimeMs(),
		MemoryKiBytes: u.MemUsedKiB(),
	}
}

func (j *Judge) info() api.SessionInfo {
	return api.SessionInfo{
		Programs:          j.names,
		StdIndex:          j.stdIdx,
		TimeLimitMs:       j.limits.TimeMs,
		MemLimitKiB:       j.limits.MemKiB,
		InputStrategy:     j.input.Name(),
		ReferenceStrategy: j.ref.Name(),
		CheckStrategy:     j.checker.Name(),
		ScratchDir:        j.ws.Path(),
	}
}

func (j *Judge) apiSummary(sum Summary) api.SessionSummary {
	out := api.SessionSummary{
		Cases:    sum.Cases,
		Ignored:  sum.Ignored,
		Abnormal: sum.Abnormal,
	}
	if sum.PreservedAt != "" {
		p := sum.PreservedAt
		out.PreservedAt = &p
	}
	for i, st := range sum.Stats {
		counts := make(map[string]int, len(st.Counts))
		for v, n := range st.Counts {
			counts[v.String()] = n
		}
		var failures []string
		for _, v := range st.Failures() {
			failures = append(failures, v.Short())
		}
		out.Programs = append(out.Programs, api.ProgramSummary{
			Program:          i,
			Path:             j.names[i],
			Cases:            st.Cases,
			Verdicts:         counts,
			TotalCpuMillis:   st.Total.TimeUsedMs(),
			AverageCpuMillis: st.AverageTimeMs(),
			AverageMemKiB:    st.AverageMemKiB(),
			MaxCpuMillis:     st.MaxTimeMs,
			MaxMemKiB:        st.MaxMemKiB,
			Failures:         failures,
			AllAccepted:      st.AllAccepted(),
		})
	}
	return out
}

// ScratchPath is the session's staging directory.
func (j *Judge) ScratchPath() string {
	return j.ws.Path()
}

// Close releases the session's directories. The scratch directory is
// removed unless it was preserved. Close may be called more than once.
func (j *Judge) Close() error {
	j.closeOnce.Do(func() {
		var errs []error
		for _, c := range j.closers {
			errs = append(errs, c())
		}
		errs = append(errs, j.ws.Close())
		j.closeErr = errors.Join(errs...)
		if j.closeErr != nil {
			j.closeErr = fmt.Errorf("failed to clean up session: %w", j.closeErr)
		}
	})
	return j.closeErr
}
