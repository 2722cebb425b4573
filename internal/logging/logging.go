package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxRetentionDays = 7

type Options struct {
	Env           string
	Level         string
	Dir           string
	RetentionDays int
}

// Setup installs the global zerolog logger: human-readable console output in
// development, JSON otherwise, and a copy of every line in a daily log file
// under Dir. The returned func closes the current file.
func Setup(opts Options) (func(), error) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stdout
	if !strings.EqualFold(opts.Env, "production") {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	closeFn := func() {}
	writers := []io.Writer{console}
	if opts.Dir != "" {
		files, err := NewDailyFile(opts.Dir, opts.RetentionDays)
		if err != nil {
			log.Logger = zerolog.New(console).With().Timestamp().Logger()
			return closeFn, err
		}
		writers = append(writers, files)
		closeFn = func() { _ = files.Close() }
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return closeFn, nil
}

// DailyFile writes to app-YYYY-MM-DD.log in dir, switching files when the
// date changes and deleting files older than the retention window.
type DailyFile struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	date          string
	file          *os.File
	now           func() time.Time
}

func NewDailyFile(dir string, retentionDays int) (*DailyFile, error) {
	if retentionDays <= 0 || retentionDays > maxRetentionDays {
		retentionDays = maxRetentionDays
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &DailyFile{dir: dir, retentionDays: retentionDays, now: time.Now}
	if err := d.rotate(d.now().Format("2006-01-02")); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if date := d.now().Format("2006-01-02"); date != d.date {
		if err := d.rotate(date); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) rotate(date string) error {
	file, err := openLogFile(d.dir, date)
	if err != nil {
		return err
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = file
	d.date = date
	cleanupOldLogs(d.dir, d.retentionDays, d.now())
	return nil
}

func openLogFile(logDir, date string) (*os.File, error) {
	filename := filepath.Join(logDir, fmt.Sprintf("app-%s.log", date))
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func cleanupOldLogs(logDir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1)).Format("2006-01-02")
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		if _, err := time.Parse("2006-01-02", datePart); err != nil {
			continue
		}
		if datePart < cutoff {
			_ = os.Remove(filepath.Join(logDir, name))
		}
	}
}
