package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/richardxx/ojtester/internal/xdg"
)

const lastUsedName = "last.toml"

// LastUsedPath is where the last successfully started session is kept.
func LastUsedPath(dirs *xdg.Dirs) string {
	return filepath.Join(dirs.StateDir(), lastUsedName)
}

// ApplyEnv loads .env from the working directory if there is one and
// fills the reporting and scratch settings that flags left empty.
func ApplyEnv(s *Session) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
	}
	fill(&s.Report.NatsURL, "AUTOTESTER_NATS_URL")
	fill(&s.Report.NatsSubject, "AUTOTESTER_NATS_SUBJECT")
	fill(&s.Report.SqsQueueURL, "AUTOTESTER_SQS_QUEUE_URL")
	fill(&s.ScratchDir, "AUTOTESTER_SCRATCH_DIR")
}
