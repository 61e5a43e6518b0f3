// Package cleanup enforces the rule that staged audio never outlives
// its job: files are released the moment a job leaves transcribing,
// and a startup sweep reclaims anything a crash left behind.
package cleanup

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audiototext-backend/internal/metrics"
)

// stagePrefix marks files owned by the ingest handler. The sweep only
// ever touches files carrying it, so an operator pointing the temp dir
// at a shared location loses nothing unrelated.
const stagePrefix = "upload_"

// StagePrefix returns the filename prefix used for staged audio.
func StagePrefix() string { return stagePrefix }

// Manager removes staged audio files.
type Manager struct {
	tempDir string
	maxAge  time.Duration
}

func NewManager(tempDir string, maxAge time.Duration) *Manager {
	return &Manager{tempDir: tempDir, maxAge: maxAge}
}

// Release deletes the staged file at path. It is idempotent: a missing
// file is success, since either the sweep or a prior release may have
// gotten there first.
func (m *Manager) Release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove staged audio", "path", path, "error", err)
		return
	}
	slog.Debug("staged audio released", "path", path)
}

// Sweep scans the temp directory for staged files older than the
// configured age with no live job owning them, and deletes them. It
// runs once at process start, before any job can be created, to
// recover from crashes that occurred between staging and cleanup.
func (m *Manager) Sweep(live map[string]bool) error {
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-m.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), stagePrefix) {
			continue
		}
		path := filepath.Join(m.tempDir, entry.Name())
		if live[path] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("sweep failed to remove orphan", "path", path, "error", err)
			continue
		}
		metrics.IncSweepRemoved()
		removed++
		slog.Info("sweep removed orphaned audio", "path", path, "age", time.Since(info.ModTime()).Round(time.Second))
	}

	if removed > 0 {
		slog.Info("startup sweep finished", "removed", removed)
	}
	return nil
}
