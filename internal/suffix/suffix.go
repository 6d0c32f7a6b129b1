// Package suffix discovers how input file names translate into output file
// names (t1.in -> t1.out) and applies that translation.
package suffix

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/richardxx/ojtester/internal/files"
)

// MaxSuffixLen bounds both discovered suffixes.
const MaxSuffixLen = 16

var (
	ErrNoPattern     = errors.New("no unique mapping pattern between input and output files")
	ErrNotApplicable = errors.New("file does not match the input suffix")
)

// Pattern is an input suffix and the output suffix that replaces it. Two
// empty suffixes mean input and output files share their names.
type Pattern struct {
	In  string
	Out string
}

func (p Pattern) String() string {
	return fmt.Sprintf("*%s -> *%s", p.In, p.Out)
}

// Detect compares two base names from the start. The boundary is the
// first position where they differ or the first '.', whichever comes
// first; the suffixes run from the boundary to the end of each name.
// Identical names give two empty suffixes.
func Detect(inName, outName string) (Pattern, error) {
	if inName == outName {
		return Pattern{}, nil
	}
	i := boundary(inName, outName)
	p := Pattern{In: inName[i:], Out: outName[i:]}
	if len(p.In) > MaxSuffixLen || len(p.Out) > MaxSuffixLen {
		return Pattern{}, fmt.Errorf("%w: suffix of %q or %q is longer than %d", ErrNoPattern, inName, outName, MaxSuffixLen)
	}
	return p, nil
}

func boundary(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] || a[i] == '.' {
			return i
		}
	}
	return n
}

// dotBoundary reports whether the names share a prefix that ends right
// before a common '.', or are identical.
func dotBoundary(a, b string) bool {
	if a == b {
		return true
	}
	i := boundary(a, b)
	return i < len(a) && i < len(b) && a[i] == '.' && b[i] == '.'
}

// DetectDirs derives the pattern from the first input file and an output
// file sharing its stem. When no output file shares a dotted stem the
// first output file is used. The input listing is left rewound.
func DetectDirs(in *files.Dir, outDir string) (Pattern, error) {
	outs, err := files.List(outDir)
	if err != nil {
		return Pattern{}, err
	}
	if in.Len() == 0 || len(outs) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty directory", ErrNoPattern)
	}

	in.Rewind()
	first, _ := in.Next()
	in.Rewind()

	name := filepath.Base(first)
	for _, o := range outs {
		if out := filepath.Base(o); dotBoundary(name, out) {
			return Detect(name, out)
		}
	}
	return Detect(name, filepath.Base(outs[0]))
}

// Map gives the presumed output file for inputPath inside outDir. The
// input must end with p.In and keep a non-empty stem.
func Map(p Pattern, outDir, inputPath string) (string, error) {
	if !strings.HasSuffix(inputPath, p.In) || len(inputPath) <= len(p.In) {
		return "", fmt.Errorf("%w: %s", ErrNotApplicable, inputPath)
	}
	rest := inputPath[:len(inputPath)-len(p.In)]
	if strings.HasSuffix(rest, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrNotApplicable, inputPath)
	}
	return filepath.Join(outDir, filepath.Base(rest)+p.Out), nil
}
