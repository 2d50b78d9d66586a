// Package lockfile keeps a single CarouselPipe process per state directory.
//
// The lock is an flock on a file inside the state directory, so the kernel
// drops it when the holding process exits for any reason.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the lock file created in the state directory.
const LockFileName = "carouselpipe.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Holder describes the process recorded in a lock file.
type Holder struct {
	PID       int
	StartedAt time.Time
	Running   bool
}

func (h Holder) String() string {
	if h.PID <= 0 {
		return "unknown process"
	}
	state := "not running, stale lock"
	if h.Running {
		state = "running"
	}
	s := fmt.Sprintf("PID %d (%s)", h.PID, state)
	if !h.StartedAt.IsZero() {
		s += ", started " + h.StartedAt.Format(time.RFC3339)
	}
	return s
}

// Acquire takes an exclusive, non-blocking lock on stateDir, creating the
// directory if needed. When another process holds it, the error is a *LockError.
func Acquire(stateDir string) (*Lock, error) {
	path := filepath.Join(stateDir, LockFileName)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		holder := readHolder(path)
		slog.Error("lockfile.Acquire: state directory is locked", "lock_path", path, "holder", holder.String(), "error", err)
		return nil, &LockError{Path: path, Holder: holder, Err: err}
	}

	// Truncate only once the lock is ours so a refused attempt leaves the holder's record intact.
	if err := f.Truncate(0); err != nil {
		unlockAndClose(f)
		return nil, fmt.Errorf("failed to truncate lock file %s: %w", path, err)
	}
	if _, err := f.WriteString(formatHolder(os.Getpid(), time.Now().UTC())); err != nil {
		unlockAndClose(f)
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		slog.Warn("lockfile.Acquire: failed to sync lock file", "error", err, "lock_path", path)
	}

	slog.Info("lockfile.Acquire: state directory locked", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: f, path: path}, nil
}

// Release drops the lock and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockAndClose(l.file)
	l.file = nil

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("lockfile.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	slog.Info("lockfile.Release: state directory unlocked", "lock_path", l.path)
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

func unlockAndClose(f *os.File) {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("lockfile: failed to unlock", "error", err, "lock_path", f.Name())
	}
	if err := f.Close(); err != nil {
		slog.Warn("lockfile: failed to close lock file", "error", err, "lock_path", f.Name())
	}
}

// LockError is returned when another process holds the state directory.
type LockError struct {
	Path   string
	Holder Holder
	Err    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("state directory is in use by another CarouselPipe instance (%s); "+
		"if that process is gone, remove %s and retry", e.Holder, e.Path)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

func formatHolder(pid int, started time.Time) string {
	return fmt.Sprintf("pid=%d\nstarted_at=%s\n", pid, started.Format(time.RFC3339))
}

// parseHolder reads key=value lines written by formatHolder. Unknown keys are ignored.
func parseHolder(content string) Holder {
	var h Holder
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil {
				h.PID = pid
			}
		case "started_at":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				h.StartedAt = ts
			}
		}
	}
	return h
}

func readHolder(path string) Holder {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}
	}
	h := parseHolder(string(data))
	if h.PID > 0 {
		h.Running = processExists(h.PID)
	}
	return h
}

// processExists probes pid with signal 0.
func processExists(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
