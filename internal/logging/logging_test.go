package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDailyFileRotatesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app-2026-01-01.log", "app-2026-01-08.log", "app-2026-01-09.log", "notes.txt", "app-garbage.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	clock := time.Date(2026, 1, 10, 23, 59, 0, 0, time.UTC)
	d := &DailyFile{dir: dir, retentionDays: 3, now: func() time.Time { return clock }}
	if err := d.rotate(clock.Format("2006-01-02")); err != nil {
		t.Fatalf("rotate() error = %v", err)
	}
	defer d.Close()

	if _, err := d.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	clock = clock.Add(2 * time.Minute)
	if _, err := d.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	assertContent(t, filepath.Join(dir, "app-2026-01-10.log"), "first\n")
	assertContent(t, filepath.Join(dir, "app-2026-01-11.log"), "second\n")

	if _, err := os.Stat(filepath.Join(dir, "app-2026-01-01.log")); !os.IsNotExist(err) {
		t.Errorf("old log was not pruned")
	}
	if _, err := os.Stat(filepath.Join(dir, "app-2026-01-08.log")); !os.IsNotExist(err) {
		t.Errorf("log outside the 3 day window was not pruned")
	}
	for _, keep := range []string{"app-2026-01-09.log", "notes.txt", "app-garbage.log"} {
		if _, err := os.Stat(filepath.Join(dir, keep)); err != nil {
			t.Errorf("%s was removed: %v", keep, err)
		}
	}
}

func TestNewDailyFileClampsRetention(t *testing.T) {
	d, err := NewDailyFile(t.TempDir(), 30)
	if err != nil {
		t.Fatalf("NewDailyFile() error = %v", err)
	}
	defer d.Close()
	if d.retentionDays != maxRetentionDays {
		t.Errorf("retentionDays = %d, want %d", d.retentionDays, maxRetentionDays)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if string(got) != want {
		t.Errorf("%s = %q, want %q", filepath.Base(path), got, want)
	}
}
