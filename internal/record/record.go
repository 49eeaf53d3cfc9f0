// Package record keeps a structured record of every invocation so a run
// can be inspected after the platform has consumed its completion signal.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Store.Load when no record has the given ID.
var ErrNotFound = errors.New("record not found")

// Status summarises how an invocation ended.
type Status string

const (
	// Success means the executable exited with status 0.
	Success Status = "success"
	// Failure means the executable could not be run to a clean exit.
	Failure Status = "failure"
)

// Store persists and retrieves invocation records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
}

// Record is what bamrun remembers about one invocation.
type Record struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id,omitempty"` // platform request ID
	Command    string          `json:"command"`
	Event      json.RawMessage `json:"event,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
	ExitCode   int             `json:"exit_code"`
	Signal     string          `json:"signal,omitempty"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
	Truncated  bool            `json:"truncated,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Status reports whether the invocation succeeded.
func (r *Record) Status() Status {
	if r.Error != "" {
		return Failure
	}
	return Success
}

// Format renders a record for humans, streams last.
func Format(r *Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", r.ID)
	if r.RequestID != "" {
		fmt.Fprintf(&b, "Request: %s\n", r.RequestID)
	}
	fmt.Fprintf(&b, "Command: %s\n", r.Command)
	fmt.Fprintf(&b, "Started: %s (%dms)\n", r.StartedAt.Format(time.RFC3339), r.DurationMS)
	fmt.Fprintf(&b, "Status: %s\n", r.Status())
	fmt.Fprintf(&b, "Exit code: %d\n", r.ExitCode)
	if r.Signal != "" {
		fmt.Fprintf(&b, "Signal: %s\n", r.Signal)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	if r.Truncated {
		fmt.Fprintln(&b, "Output was truncated.")
	}

	writeStream(&b, "stdout", r.Stdout)
	writeStream(&b, "stderr", r.Stderr)
	return b.String()
}

func writeStream(b *strings.Builder, name, text string) {
	fmt.Fprintln(b)
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
