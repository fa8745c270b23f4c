// Package audit records the outcome of every validation call. The engine
// itself never writes to a file or a database — audit.Logger is the single
// collaborator interface a caller wires in to make validation outcomes
// observable, the same way the outer guard façade and DB execution are
// collaborators described by interface rather than implementation.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/askdba/langsec/diagnostic"
)

// Entry is one record of a validation call: the query that was checked,
// whether it passed, and the diagnostic that rejected it if it didn't.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Query     string `json:"query,omitempty"`
	Allowed   bool   `json:"allowed"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message,omitempty"`
	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
}

// EntryFromResult builds an Entry from a query and the error Run produced
// (nil meaning the query was allowed). Only the highest-priority finding is
// recorded when err is a *diagnostic.Composite — the same finding a
// fail-fast caller would have seen.
func EntryFromResult(query string, err error) Entry {
	e := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Query:     query,
		Allowed:   err == nil,
	}
	var d *diagnostic.Diagnostic
	switch v := err.(type) {
	case *diagnostic.Diagnostic:
		d = v
	case *diagnostic.Composite:
		d = v.First()
	}
	if d == nil {
		return e
	}
	e.Kind = string(d.Kind)
	e.Message = d.Message
	if d.Table != nil {
		e.Table = *d.Table
	}
	if d.Column != nil {
		e.Column = *d.Column
	}
	return e
}

// Logger is the collaborator interface callers implement to persist audit
// entries. The engine takes one as an option; a caller that doesn't need
// auditing passes nil and nothing is recorded.
type Logger interface {
	Log(Entry)
}

// JSONFileLogger appends one JSON object per line to a file, in the
// append-only mode a security audit trail requires.
type JSONFileLogger struct {
	file *os.File
	mu   sync.Mutex
}

// NewJSONFileLogger opens (or creates) path for append-only writing. An
// empty path is rejected — callers that don't want audit logging should
// pass a nil Logger instead of constructing one.
func NewJSONFileLogger(path string) (*JSONFileLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit: log path must not be empty")
	}
	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open log file: %w", err)
	}
	return &JSONFileLogger{file: f}, nil
}

// Log writes entry as one line of JSON. Marshal/write failures are not
// surfaced to the caller — audit logging must never be the reason a
// validation call fails.
func (l *JSONFileLogger) Log(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.file.Write(append(data, '\n'))
}

// Close closes the underlying file.
func (l *JSONFileLogger) Close() error {
	return l.file.Close()
}
