package rotate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"logrelay/src/internal/core"
	"logrelay/src/internal/format"

	"github.com/lixenwraith/log"
)

// Matches timestamped backup suffixes for retention cleanup
var timestampPattern = regexp.MustCompile(`\.\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}-\d{4}$`)

// Writer owns a single log file and rotates it by size and/or
// schedule. Emit is safe for concurrent use; rotation, formatting and
// the write itself all happen on the calling goroutine under one
// mutex, so no other Emit can interleave mid-rotation.
//
// Failures are never swallowed: an emit or rotation error is returned
// wrapped with the failing phase, the stream is left closed, and the
// next Emit retries the open.
type Writer struct {
	path      string
	mode      string
	policy    Policy
	formatter format.Formatter
	logger    *log.Logger

	mu           sync.Mutex
	file         *os.File
	size         int64
	nextRollover time.Time
}

// New creates a rotation writer. The file itself is opened lazily on
// the first Emit.
func New(path, mode string, policy Policy, formatter format.Formatter, logger *log.Logger) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("rotation writer requires a file path")
	}
	if formatter == nil {
		return nil, fmt.Errorf("rotation writer requires a formatter")
	}
	if _, err := openFlags(mode); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rotation policy: %w", err)
	}

	next, err := policy.NextRollover(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("invalid rotation policy: %w", err)
	}

	return &Writer{
		path:         path,
		mode:         mode,
		policy:       policy,
		formatter:    formatter,
		logger:       logger,
		nextRollover: next,
	}, nil
}

// NewJSONL creates a rotation writer for JSON-lines output, enforcing
// the .jsonl extension expected by downstream tooling.
func NewJSONL(path, mode string, policy Policy, formatter format.Formatter, logger *log.Logger) (*Writer, error) {
	if !strings.HasSuffix(path, ".jsonl") {
		return nil, fmt.Errorf("invalid log file extension for %q: expected .jsonl", path)
	}
	return New(path, mode, policy, formatter, logger)
}

// Emit formats and writes one entry, rotating first when a trigger
// fires.
func (w *Writer) Emit(entry core.LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.openLocked(); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}

	now := entry.Time
	if now.IsZero() {
		now = time.Now()
	}

	if w.policy.ShouldRotate(w.size, now, w.nextRollover) {
		if err := w.rolloverLocked(); err != nil {
			return fmt.Errorf("rotating log file: %w", err)
		}
	}

	formatted, err := w.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("formatting entry: %w", err)
	}
	if len(formatted) == 0 || formatted[len(formatted)-1] != '\n' {
		formatted = append(formatted, '\n')
	}

	n, err := w.file.Write(formatted)
	w.size += int64(n)
	if err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

// Close releases the file handle. Safe to call twice.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Path returns the live log file path.
func (w *Writer) Path() string {
	return w.path
}

// MUST be called with mutex held
func (w *Writer) openLocked() error {
	flags, err := openFlags(w.mode)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, flags, 0644)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	// Read-write modes land at offset 0, move to the end so appends
	// don't clobber existing content
	if flags&os.O_APPEND == 0 && flags&os.O_TRUNC == 0 {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return err
		}
	}

	w.file = file
	w.size = info.Size()
	return nil
}

// MUST be called with mutex held
func (w *Writer) rolloverLocked() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.file = nil
			return fmt.Errorf("closing current file: %w", err)
		}
		w.file = nil
	}

	if w.policy.Naming == NamingTime {
		if err := w.rotateTimestampLocked(); err != nil {
			return err
		}
	} else {
		if err := w.rotateCountLocked(); err != nil {
			return err
		}
	}

	if err := w.openLocked(); err != nil {
		return fmt.Errorf("reopening after rotation: %w", err)
	}

	next, err := w.policy.NextRollover(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("scheduling next rotation: %w", err)
	}
	w.nextRollover = next
	return nil
}

// Shifts numeric backups up one index, highest first to avoid
// clobbering, then renames the live file to .1.
// MUST be called with mutex held
func (w *Writer) rotateCountLocked() error {
	for i := w.policy.BackupCount - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", w.path, i)
		newPath := fmt.Sprintf("%s.%d", w.path, i+1)

		if _, err := os.Stat(oldPath); err != nil {
			continue
		}
		if err := os.Remove(newPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("evicting backup %s: %w", newPath, err)
		}
		if err := os.Rename(oldPath, newPath); err != nil {
			return fmt.Errorf("shifting backup %s: %w", oldPath, err)
		}
	}

	if _, err := os.Stat(w.path); err == nil {
		if err := os.Rename(w.path, w.path+".1"); err != nil {
			return fmt.Errorf("renaming live file: %w", err)
		}
	}
	return nil
}

// Renames the live file to a UTC-timestamped backup and deletes the
// oldest timestamped backups beyond the retention count. The new
// backup counts toward the total.
// MUST be called with mutex held
func (w *Writer) rotateTimestampLocked() error {
	now := time.Now().UTC()
	backup := fmt.Sprintf("%s.%s-%04d", w.path, now.Format("2006-01-02_15-04-05"), now.Nanosecond()/100000)

	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scanning backup directory: %w", err)
	}

	type backupFile struct {
		path  string
		mtime time.Time
	}
	backups := []backupFile{{path: backup, mtime: now}}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, base+".") || !timestampPattern.MatchString(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, backupFile{
			path:  filepath.Join(dir, name),
			mtime: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].mtime.Before(backups[j].mtime) })

	excess := len(backups) - w.policy.BackupCount
	for i := 0; i < excess; i++ {
		if backups[i].path == backup {
			// Not on disk yet, the rename below creates it
			continue
		}
		if err := os.Remove(backups[i].path); err != nil {
			return fmt.Errorf("deleting expired backup %s: %w", backups[i].path, err)
		}
	}

	if _, err := os.Stat(w.path); err == nil {
		if err := os.Rename(w.path, backup); err != nil {
			return fmt.Errorf("renaming live file: %w", err)
		}
	}
	return nil
}

func openFlags(mode string) (int, error) {
	switch mode {
	case "", "append":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "truncate":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "exclusive":
		return os.O_WRONLY | os.O_CREATE | os.O_EXCL, nil
	case "read-write":
		return os.O_RDWR | os.O_CREATE, nil
	case "read-write-truncate":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	default:
		return 0, fmt.Errorf("invalid file mode %q", mode)
	}
}
