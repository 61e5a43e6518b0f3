package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func stageFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o600); err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

// TestReleaseIdempotent verifies double release and empty path are no-ops.
func TestReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)

	path := stageFile(t, dir, "upload_a.wav", 0)
	m.Release(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file to be removed")
	}

	// Already gone; must not panic or log fatally.
	m.Release(path)
	m.Release("")
}

// TestSweep removes aged orphans and keeps young files and live jobs.
func TestSweep(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, time.Hour)

	oldOrphan := stageFile(t, dir, "upload_old.wav", 2*time.Hour)
	youngOrphan := stageFile(t, dir, "upload_young.wav", time.Minute)
	liveStage := stageFile(t, dir, "upload_live.wav", 3*time.Hour)
	unrelated := stageFile(t, dir, "notes.txt", 3*time.Hour)

	if err := m.Sweep(map[string]bool{liveStage: true}); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := os.Stat(oldOrphan); !os.IsNotExist(err) {
		t.Fatal("aged orphan should be removed")
	}
	for name, path := range map[string]string{
		"young orphan":   youngOrphan,
		"live stage":     liveStage,
		"unrelated file": unrelated,
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s should survive sweep: %v", name, err)
		}
	}
}

// TestSweepMissingDir surfaces the read error.
func TestSweepMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "gone"), time.Hour)
	if err := m.Sweep(nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
