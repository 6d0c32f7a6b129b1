// Package files holds the small filesystem services the judge relies on:
// directory iteration, staging of test data and file type probes.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Dir iterates the regular files of a directory, symbolic links to regular
// files included, in name order.
type Dir struct {
	path    string
	entries []string
	pos     int
	closed  bool
}

func OpenDir(path string) (*Dir, error) {
	entries, err := List(path)
	if err != nil {
		return nil, err
	}
	return &Dir{path: path, entries: entries}, nil
}

// List returns the full paths of the regular files in dir, sorted by name.
func List(dir string) ([]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %s: %w", dir, err)
	}

	out := make([]string, 0, len(des))
	for _, de := range des {
		full := filepath.Join(dir, de.Name())
		if de.Type()&os.ModeSymlink != 0 {
			// dangling links and links to directories are skipped
			fi, err := os.Stat(full)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
		} else if !de.Type().IsRegular() {
			continue
		}
		out = append(out, full)
	}
	// os.ReadDir already sorts; keep the guarantee explicit
	slices.Sort(out)
	return out, nil
}

func (d *Dir) Path() string {
	return d.path
}

// Next returns the next file path, or false once the listing is drained.
func (d *Dir) Next() (string, bool) {
	if d.closed || d.pos >= len(d.entries) {
		return "", false
	}
	p := d.entries[d.pos]
	d.pos++
	return p, true
}

func (d *Dir) Rewind() {
	d.pos = 0
}

func (d *Dir) Len() int {
	return len(d.entries)
}

func (d *Dir) Close() error {
	d.closed = true
	d.entries = nil
	return nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
