// Package scratch manages the private directory a judging session stages
// its per-case files in.
package scratch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/richardxx/ojtester/internal/files"
)

const (
	inputName     = "input_data.txt"
	referenceName = "output_data.txt"
)

type Dir struct {
	path string

	mu        sync.Mutex
	preserved string
	closed    bool
}

// New creates a fresh scratch directory under base, or under the system
// temporary directory when base is empty.
func New(base string) (*Dir, error) {
	if base == "" {
		base = os.TempDir()
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch base %s: %w", base, err)
	}

	path := filepath.Join(base, "autotester-"+uuid.NewString())
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("created scratch directory", "path", abs)
	return &Dir{path: abs}, nil
}

func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) InputPath() string {
	return filepath.Join(d.path, inputName)
}

func (d *Dir) ReferencePath() string {
	return filepath.Join(d.path, referenceName)
}

func (d *Dir) OutputPath(prog int) string {
	return filepath.Join(d.path, fmt.Sprintf("prog%d_output.txt", prog))
}

func (d *Dir) ErrorPath(prog int) string {
	return filepath.Join(d.path, fmt.Sprintf("prog%d_error.txt", prog))
}

// Preserve moves the directory to dst, or into dst when dst is an existing
// directory. It returns the new location. A preserved directory is not
// removed by Close.
func (d *Dir) Preserve(dst string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", fmt.Errorf("scratch directory %s already removed", d.path)
	}
	if d.preserved != "" {
		return d.preserved, nil
	}

	target := dst
	if files.IsDir(dst) {
		target = filepath.Join(dst, filepath.Base(d.path))
	} else if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := files.Move(d.path, target); err != nil {
		return "", err
	}
	d.preserved = target
	return target, nil
}

// Close removes the directory unless it was preserved. It is safe to call
// more than once.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.preserved != "" {
		return nil
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("failed to remove scratch directory %s: %w", d.path, err)
	}
	return nil
}
