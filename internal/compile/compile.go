// Package compile turns candidate sources into runnable programs,
// choosing the compiler by file extension and caching the results.
package compile

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/richardxx/ojtester/internal/files"
	"github.com/richardxx/ojtester/internal/resuse"
	"github.com/richardxx/ojtester/internal/supervisor"
)

const (
	defaultRetries = 5
	defaultDelay   = time.Second

	compileTimeLimitMs = 60_000
	logExcerptBytes    = 2048
)

var ErrUnsupported = errors.New("unsupported source type")

// Runner runs one supervised program. *supervisor.Supervisor implements it.
type Runner interface {
	Run(ctx context.Context, spec supervisor.Spec) (supervisor.Result, error)
}

type Compiler struct {
	cacheDir string
	runner   Runner
	retries  int
	delay    time.Duration

	inflight *xsync.MapOf[string, *build]
}

type build struct {
	once sync.Once
	prog supervisor.Program
	err  error
}

type Option func(*Compiler)

// WithRetries sets how often a compiler that failed to run is retried.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Compiler) {
		c.retries = max(n, 1)
		c.delay = delay
	}
}

func New(cacheDir string, runner Runner, opts ...Option) *Compiler {
	c := &Compiler{
		cacheDir: cacheDir,
		runner:   runner,
		retries:  defaultRetries,
		delay:    defaultDelay,
		inflight: xsync.NewMapOf[string, *build](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure returns a program that runs path. Binaries and executable
// scripts are used as they are; sources are compiled once per content.
func (c *Compiler) Ensure(ctx context.Context, path string) (supervisor.Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return supervisor.Program{}, err
	}
	b, _ := c.inflight.LoadOrCompute(abs, func() *build { return &build{} })
	b.once.Do(func() {
		b.prog, b.err = c.ensure(ctx, path, abs)
	})
	return b.prog, b.err
}

// EnsureAll prepares every path concurrently, keeping the order of paths.
func (c *Compiler) EnsureAll(ctx context.Context, paths []string) ([]supervisor.Program, error) {
	progs := make([]supervisor.Program, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			prog, err := c.Ensure(ctx, p)
			if err != nil {
				return fmt.Errorf("compile %s: %w", p, err)
			}
			progs[i] = prog
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return progs, nil
}

func (c *Compiler) ensure(ctx context.Context, path, abs string) (supervisor.Program, error) {
	if !files.Exists(abs) {
		return supervisor.Program{}, fmt.Errorf("%s does not exist", path)
	}
	ext := filepath.Ext(abs)

	if files.IsBinary(abs) {
		if ext == ".class" {
			return supervisor.Program{Path: "java", Args: []string{"-cp", filepath.Dir(abs), className(abs)}}, nil
		}
		return supervisor.Program{Path: path}, nil
	}
	if files.IsScript(abs) {
		return supervisor.Program{Path: path}, nil
	}

	if !SourceExtensions.Contains(ext) {
		if fi, err := os.Stat(abs); err == nil && fi.Mode().Perm()&0o111 != 0 {
			return supervisor.Program{Path: path}, nil
		}
		return supervisor.Program{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	lang := languages[ext]

	src, err := os.ReadFile(abs)
	if err != nil {
		return supervisor.Program{}, fmt.Errorf("failed to read source: %w", err)
	}
	key := fmt.Sprintf("%x", sha256.Sum256(append([]byte(lang.name+"\x00"), src...)))
	out := filepath.Join(c.cacheDir, key)
	prog := lang.run(abs, out)

	if files.Exists(out) {
		slog.Debug("using cached build", "source", path, "artifact", out)
		return prog, nil
	}
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return supervisor.Program{}, fmt.Errorf("failed to create cache directory: %w", err)
	}

	slog.Info("compiling", "source", path, "compiler", lang.compiler)
	partial := out + ".partial"
	_ = os.RemoveAll(partial)
	if err := c.runCompiler(ctx, lang, abs, partial); err != nil {
		_ = os.RemoveAll(partial)
		return supervisor.Program{}, err
	}
	if err := os.Rename(partial, out); err != nil {
		return supervisor.Program{}, fmt.Errorf("failed to store build: %w", err)
	}
	return prog, nil
}

func (c *Compiler) runCompiler(ctx context.Context, lang language, src, out string) error {
	if lang.outIsDir {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return err
		}
	}
	logPath := out + ".log"
	spec := supervisor.Spec{
		Program: supervisor.Program{Path: lang.compiler},
		Args:    lang.args(src, out),
		Stdin:   os.DevNull,
		Stdout:  logPath,
		Stderr:  logPath + ".err",
		Limits:  &resuse.Limits{TimeMs: compileTimeLimitMs},
	}

	for attempt := 1; ; attempt++ {
		res, err := c.runner.Run(ctx, spec)
		if err != nil {
			return fmt.Errorf("failed to run %s: %w", lang.compiler, err)
		}
		if res.Outcome == supervisor.Normal {
			if res.ExitStatus != 0 {
				return fmt.Errorf("%s exited with status %d:\n%s", lang.compiler, res.ExitStatus, excerpt(spec.Stderr, spec.Stdout))
			}
			if !files.Exists(out) {
				return fmt.Errorf("%s produced no output", lang.compiler)
			}
			return nil
		}
		if attempt >= c.retries {
			return fmt.Errorf("%s failed %d times, last outcome: %s", lang.compiler, attempt, res.Outcome)
		}
		slog.Warn("compiler did not finish normally, retrying", "compiler", lang.compiler, "outcome", res.Outcome.String(), "attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}
}

func excerpt(paths ...string) string {
	var out []byte
	for _, p := range paths {
		head, err := files.ReadHead(p, logExcerptBytes)
		if err == nil {
			out = append(out, head...)
		}
	}
	return string(out)
}
