// Package audit keeps a local append-only JSONL trail of nudge
// decisions. It exists alongside the telemetry POST so a user can see
// their own decision history without any backend at all.
package audit

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Entry is one decision record.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Domain    string `json:"domain"`
	Outcome   string `json:"outcome"`
	UserID    string `json:"user_id,omitempty"`
}

// Trail is a mutex-guarded JSONL file writer.
type Trail struct {
	file *os.File
	mu   sync.Mutex
}

// Open opens (or creates) the trail file for appending.
func Open(path string) (*Trail, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Trail{file: file}, nil
}

// Record appends one entry. Best-effort: a write failure is returned
// for callers that care, but callers on the decision path discard it.
func (t *Trail) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = t.file.Write(data)
	return err
}

// Close closes the underlying file.
func (t *Trail) Close() error {
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}
