package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/klauspost/compress/zstd"
)

// Copy writes the contents of src to dst, replacing dst.
func Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	// dst may be a link to src
	if err := removeIfExists(dst); err != nil {
		return err
	}
	return writeFrom(in, dst)
}

func writeFrom(r io.Reader, dst string) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return out.Close()
}

// LinkOrCopy makes dst refer to the contents of src, trying a symbolic
// link first, then a hard link, then a plain copy.
func LinkOrCopy(src, dst string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := removeIfExists(dst); err != nil {
		return err
	}
	if err := os.Symlink(abs, dst); err == nil {
		return nil
	}
	if err := os.Link(abs, dst); err == nil {
		return nil
	}
	return Copy(abs, dst)
}

// Stage places test data at dst. Files ending in .zst are decompressed,
// anything else is linked or copied.
func Stage(src, dst string) error {
	if !strings.HasSuffix(src, ".zst") {
		return LinkOrCopy(src, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	d, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer d.Close()

	if err := removeIfExists(dst); err != nil {
		return err
	}
	return writeFrom(d, dst)
}

// Move renames src to dst, falling back to copy and remove when they are
// on different filesystems.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	if err := CopyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// CopyTree copies a directory of regular files and symbolic links.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		default:
			return Copy(path, target)
		}
	})
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
