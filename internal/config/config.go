// Package config holds the settings of one judging session and their
// persistence between runs.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultRuns        = 10
	DefaultTimeLimitMs = 10_000
	DefaultMemLimitKiB = math.MaxInt32 >> 10
)

var ErrNoPrograms = errors.New("no program specified")

// Report lists the optional places session events are delivered to.
type Report struct {
	JSONPath    string `toml:"json_path,omitempty"`
	NatsURL     string `toml:"nats_url,omitempty"`
	NatsSubject string `toml:"nats_subject,omitempty"`
	SqsQueueURL string `toml:"sqs_queue_url,omitempty"`
}

type Session struct {
	// Programs are the candidates in report order.
	Programs []string `toml:"programs"`
	// StdIndex selects the program whose output is the reference answer
	// when no output directory is given.
	StdIndex int `toml:"std_index"`

	TimeLimitMs int64 `toml:"time_limit_ms"`
	MemLimitKiB int64 `toml:"mem_limit_kib"`

	// Runs is how many inputs a generator produces.
	Runs      int    `toml:"runs"`
	Generator string `toml:"generator,omitempty"`
	Checker   string `toml:"checker,omitempty"`

	InputDir  string `toml:"input_dir,omitempty"`
	OutputDir string `toml:"output_dir,omitempty"`
	// DumpDir receives the scratch directory of a failed session.
	DumpDir    string `toml:"dump_dir,omitempty"`
	ScratchDir string `toml:"scratch_dir,omitempty"`

	Verbose bool   `toml:"verbose"`
	Report  Report `toml:"report"`
}

func Default() Session {
	return Session{
		Runs:        DefaultRuns,
		TimeLimitMs: DefaultTimeLimitMs,
		MemLimitKiB: DefaultMemLimitKiB,
	}
}

// Normalize fills defaults for unset numbers and makes bare program names
// refer to the working directory.
func (s *Session) Normalize() {
	if s.Runs <= 0 {
		s.Runs = DefaultRuns
	}
	if s.TimeLimitMs <= 0 {
		s.TimeLimitMs = DefaultTimeLimitMs
	}
	if s.MemLimitKiB <= 0 {
		s.MemLimitKiB = DefaultMemLimitKiB
	}
	for i, p := range s.Programs {
		s.Programs[i] = localPath(p)
	}
	s.Generator = localPath(s.Generator)
	s.Checker = localPath(s.Checker)
}

func localPath(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return p
	}
	return "./" + p
}

// Validate reports settings that make a session impossible. An out of
// range StdIndex is not an error here; it is corrected when the standard
// program is actually needed.
func (s *Session) Validate() error {
	if len(s.Programs) == 0 {
		return ErrNoPrograms
	}
	if s.Generator == "" && s.InputDir == "" {
		return errors.New("neither a generator nor an input directory is given")
	}
	if s.OutputDir != "" && s.InputDir == "" {
		return errors.New("an output directory needs an input directory")
	}
	return nil
}

// Args renders the session as the equivalent command line.
func (s *Session) Args() []string {
	var args []string
	add := func(flag, v string) {
		if v != "" {
			args = append(args, flag, v)
		}
	}
	args = append(args, "-c", fmt.Sprint(s.Runs), "-s", fmt.Sprint(s.StdIndex))
	add("-g", s.Generator)
	add("-I", s.InputDir)
	add("-O", s.OutputDir)
	add("-j", s.Checker)
	add("-D", s.DumpDir)
	args = append(args, "-T", fmt.Sprint(s.TimeLimitMs), "-M", fmt.Sprint(s.MemLimitKiB))
	if s.Verbose {
		args = append(args, "-v")
	}
	return append(args, s.Programs...)
}

func Load(path string) (Session, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s Session) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
