package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/breeze-rmm/registry-inspector/internal/hostinfo"
	"github.com/breeze-rmm/registry-inspector/internal/inspector"
	"github.com/breeze-rmm/registry-inspector/internal/logging"
	"github.com/breeze-rmm/registry-inspector/internal/report"
)

// Event types for audit logging.
const (
	EventCheckCompleted = "check_completed"
	EventLogRotated     = "log_rotated"
)

// genesisHash is the prevHash of the first entry in a new chain.
const genesisHash = "genesis"

// Entry is a single audit log record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"eventType"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prevHash"`
	EntryHash string         `json:"entryHash"`
}

// Options configures a Logger.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// Logger appends tamper-evident JSONL entries linked by a SHA-256 hash
// chain. The chain continues across process runs: the last entry of an
// existing file seeds prevHash. On rotation a sentinel entry links the new
// file to the old one.
type Logger struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	written    int64
	prevHash   string
	dropped    int64
	log        *zap.Logger
}

// NewLogger opens (or creates) the audit log at opts.Path.
func NewLogger(opts Options, logger *zap.Logger) (*Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
	}

	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := opts.MaxBackups
	if maxBackups < 0 {
		maxBackups = 0
	}

	l := &Logger{
		filePath:   opts.Path,
		maxSize:    int64(maxSize) * 1024 * 1024,
		maxBackups: maxBackups,
		prevHash:   genesisHash,
		log:        logging.Component(logger, "audit"),
	}

	if hash := lastEntryHash(opts.Path); hash != "" {
		l.prevHash = hash
	}

	if err := l.openFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// LogCheck records the outcome of a check.
func (l *Logger) LogCheck(res inspector.Result, host *hostinfo.Info) {
	details := map[string]any{
		"location":  res.Request.Location,
		"valueName": res.Request.ValueName,
		"expected":  res.Expected(),
		"status":    string(res.Verdict),
		"risk":      report.Risk(res.Verdict),
	}
	if res.IsError() {
		details["errorKind"] = string(res.ErrorKind)
		details["message"] = res.Message
	} else {
		details["value"] = res.Observed
		details["valueType"] = string(res.ValueType)
	}
	if host != nil {
		details["hostname"] = host.Hostname
	}
	l.Log(EventCheckCompleted, details)
}

// Log writes a single audit entry. The hash chain only advances after a
// successful write. Safe to call on a nil receiver (no-op).
func (l *Logger) Log(eventType string, details map[string]any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventType: eventType,
		Details:   details,
		PrevHash:  l.prevHash,
	}

	entryHash, err := computeHash(entry)
	if err != nil {
		l.log.Error("failed to compute audit entry hash", zap.Error(err), zap.String("eventType", eventType))
		l.dropped++
		return
	}
	entry.EntryHash = entryHash

	data, err := json.Marshal(entry)
	if err != nil {
		l.log.Error("failed to marshal audit entry", zap.Error(err), zap.String("eventType", eventType))
		l.dropped++
		return
	}
	data = append(data, '\n')

	if l.written+int64(len(data)) > l.maxSize {
		if err := l.rotate(); err != nil {
			l.log.Error("audit log rotation failed", zap.Error(err))
			l.dropped++
			return
		}
		// The sentinel moved the chain head.
		entry.PrevHash = l.prevHash
		if entry.EntryHash, err = computeHash(entry); err != nil {
			l.dropped++
			return
		}
		if data, err = json.Marshal(entry); err != nil {
			l.dropped++
			return
		}
		data = append(data, '\n')
	}

	n, err := l.file.Write(data)
	if err != nil {
		l.log.Error("failed to write audit entry", zap.Error(err), zap.String("eventType", eventType))
		l.dropped++
		return
	}
	l.written += int64(n)
	l.prevHash = entry.EntryHash

	if err := l.file.Sync(); err != nil {
		l.log.Warn("failed to fsync audit entry", zap.Error(err))
	}
}

// Close closes the audit log file. Safe to call on a nil receiver.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// DroppedCount returns the number of entries that failed to write, or -1 for
// a nil logger.
func (l *Logger) DroppedCount() int64 {
	if l == nil {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// computeHash hashes length-prefixed fields so no delimiter can collide.
func computeHash(entry Entry) (string, error) {
	h := sha256.New()
	for _, field := range []string{entry.Timestamp, entry.EventType, entry.PrevHash} {
		fmt.Fprintf(h, "%d:%s", len(field), field)
	}
	if entry.Details != nil {
		detailBytes, err := json.Marshal(entry.Details)
		if err != nil {
			return "", fmt.Errorf("marshal details for hash: %w", err)
		}
		fmt.Fprintf(h, "%d:", len(detailBytes))
		h.Write(detailBytes)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChain reads an audit file and checks every entry's hash and link.
// The first entry must start the chain at genesis unless it is a rotation
// sentinel, which links to the previous file instead. It returns the number
// of verified entries.
func VerifyChain(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read audit log: %w", err)
	}

	count := 0
	prev := ""
	for i, line := range splitLines(data) {
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return count, fmt.Errorf("line %d: %w", i+1, err)
		}
		want, err := computeHash(Entry{
			Timestamp: entry.Timestamp,
			EventType: entry.EventType,
			Details:   entry.Details,
			PrevHash:  entry.PrevHash,
		})
		if err != nil {
			return count, fmt.Errorf("line %d: %w", i+1, err)
		}
		if want != entry.EntryHash {
			return count, fmt.Errorf("line %d: entry hash mismatch", i+1)
		}
		if i == 0 && entry.EventType != EventLogRotated && entry.PrevHash != genesisHash {
			return count, fmt.Errorf("line 1: chain does not start at genesis")
		}
		if prev != "" && entry.PrevHash != prev {
			return count, fmt.Errorf("line %d: chain broken", i+1)
		}
		prev = entry.EntryHash
		count++
	}
	return count, nil
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}

	l.file = f
	l.written = info.Size()
	return nil
}

func (l *Logger) rotate() error {
	prevHashBeforeRotation := l.prevHash

	if l.file != nil {
		l.file.Close()
	}

	if l.maxBackups == 0 {
		if err := os.Remove(l.filePath); err != nil && !os.IsNotExist(err) {
			l.log.Warn("audit log rotation: failed to remove current log", zap.Error(err))
		}
	} else {
		// Shift existing backups: .N → delete, .N-1 → .N, ..., .1 → .2
		for i := l.maxBackups; i >= 2; i-- {
			src := l.backupName(i - 1)
			dst := l.backupName(i)
			if i == l.maxBackups {
				if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
					l.log.Warn("audit log rotation: failed to remove oldest backup", zap.String("path", dst), zap.Error(err))
				}
			}
			if err := os.Rename(src, dst); err != nil && !os.IsNotExist(err) {
				l.log.Warn("audit log rotation: failed to rename backup", zap.String("src", src), zap.String("dst", dst), zap.Error(err))
			}
		}
		if err := os.Rename(l.filePath, l.backupName(1)); err != nil && !os.IsNotExist(err) {
			l.log.Warn("audit log rotation: failed to rename current log", zap.Error(err))
		}
	}

	if err := l.openFile(); err != nil {
		return err
	}

	sentinel := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		EventType: EventLogRotated,
		PrevHash:  prevHashBeforeRotation,
	}
	if l.maxBackups > 0 {
		sentinel.Details = map[string]any{"previousFile": l.backupName(1)}
	}
	sentinelHash, err := computeHash(sentinel)
	if err != nil {
		l.log.Error("rotation sentinel hash failed, hash chain broken", zap.Error(err))
		l.prevHash = "chain-broken"
		return nil
	}
	sentinel.EntryHash = sentinelHash

	data, err := json.Marshal(sentinel)
	if err != nil {
		l.log.Error("rotation sentinel marshal failed, hash chain broken", zap.Error(err))
		l.prevHash = "chain-broken"
		return nil
	}
	data = append(data, '\n')

	n, err := l.file.Write(data)
	if err != nil {
		l.log.Error("rotation sentinel write failed, hash chain broken", zap.Error(err))
		l.prevHash = "chain-broken"
		return nil
	}
	l.written += int64(n)
	l.prevHash = sentinel.EntryHash
	return nil
}

func (l *Logger) backupName(index int) string {
	if index == 0 {
		return l.filePath
	}
	return fmt.Sprintf("%s.%d", l.filePath, index)
}

// lastEntryHash returns the entryHash of the final line in path, or "".
func lastEntryHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := splitLines(data)
	if len(lines) == 0 {
		return ""
	}
	var entry Entry
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		return ""
	}
	return entry.EntryHash
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}
