// Package journal records every mutation of the archive flow as JSON
// lines so an operator can see afterwards what was changed.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType defines what an entry records.
type EntryType string

const (
	EntryLocated         EntryType = "located"
	EntrySnapshotCreated EntryType = "snapshot_created"
	EntrySnapshotDone    EntryType = "snapshot_completed"
	EntryTierRequested   EntryType = "tier_requested"
	EntryFailed          EntryType = "failed"
)

// Entry is one journal line.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Sequence   int64     `json:"sequence"`
	Type       EntryType `json:"type"`
	Account    string    `json:"account"`
	Region     string    `json:"region"`
	ResourceID string    `json:"resource_id"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Journal is an append-only JSON lines file.
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	path     string
	now      func() time.Time
}

// Open creates a new journal file in dir.
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	name := fmt.Sprintf("inventa-archive-%s.jsonl", time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		now:    time.Now,
	}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes and closes the journal.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append writes e, stamping its time and sequence.
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++
	e.Sequence = j.sequence
	e.Timestamp = j.now().UTC()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if _, err := j.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	// Flush every entry so a crash loses nothing already done remotely.
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return j.file.Sync()
}

// AppendError writes a failed entry for e carrying cause.
func (j *Journal) AppendError(e Entry, cause error) error {
	e.Type = EntryFailed
	e.Error = cause.Error()
	return j.Append(e)
}

// ReadEntries reads back a journal file.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	dec := json.NewDecoder(f)
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode journal entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
}
