package compile

import (
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/richardxx/ojtester/internal/supervisor"
)

type language struct {
	name     string
	compiler string
	// args builds the compiler arguments that turn src into an artifact
	// at out; run gives the program that executes the artifact.
	args func(src, out string) []string
	run  func(src, out string) supervisor.Program
	// outIsDir artifacts are directories instead of single executables.
	outIsDir bool
}

func binaryAt(_ string, out string) supervisor.Program {
	return supervisor.Program{Path: out}
}

var languages = map[string]language{
	".c": {
		name:     "c",
		compiler: "gcc",
		args: func(src, out string) []string {
			return []string{src, "-O2", "-o", out, "-lm"}
		},
		run: binaryAt,
	},
	".cpp": cxx,
	".cc":  cxx,
	".cxx": cxx,
	".C":   cxx,
	".java": {
		name:     "java",
		compiler: "javac",
		args: func(src, out string) []string {
			return []string{"-d", out, src}
		},
		run: func(src, out string) supervisor.Program {
			return supervisor.Program{Path: "java", Args: []string{"-cp", out, className(src)}}
		},
		outIsDir: true,
	},
	".pas": {
		name:     "pascal",
		compiler: "fpc",
		args: func(src, out string) []string {
			return []string{"-O2", "-FE" + out, "-o" + filepath.Join(out, "prog"), src}
		},
		run: func(_ string, out string) supervisor.Program {
			return supervisor.Program{Path: filepath.Join(out, "prog")}
		},
		outIsDir: true,
	},
	".go": {
		name:     "go",
		compiler: "go",
		args: func(src, out string) []string {
			return []string{"build", "-o", out, src}
		},
		run: binaryAt,
	},
}

var cxx = language{
	name:     "c++",
	compiler: "g++",
	args: func(src, out string) []string {
		return []string{src, "-O2", "-o", out}
	},
	run: binaryAt,
}

// SourceExtensions are the file extensions that get compiled.
var SourceExtensions = func() mapset.Set[string] {
	s := mapset.NewThreadUnsafeSet[string]()
	for ext := range languages {
		s.Add(ext)
	}
	return s
}()

func className(src string) string {
	return strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
}
