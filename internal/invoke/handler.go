// Package invoke is the function entry point: it runs the bam-weather
// executable once per invocation and reports the outcome to the platform.
package invoke

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/bamchoh/bamrun/internal/record"
	"github.com/bamchoh/bamrun/internal/runner"
)

// DefaultExecutable is launched when Handler.Executable is empty.
const DefaultExecutable = "./bam-weather"

// ProcessRunner executes a process and reports how it ended.
// Implemented by runner.Runner.
type ProcessRunner interface {
	Run(ctx context.Context, argv []string) (*runner.Result, error)
}

// Handler holds the dependencies shared by all invocations. It carries no
// per-invocation state and is safe for concurrent use.
type Handler struct {
	Runner     ProcessRunner
	Executable string
	Logger     *log.Logger
	Store      record.Store // optional
}

// Outcome is the completion signal of one invocation, captured as a value.
type Outcome struct {
	Err    error  // nil on success
	Marker string // FailureMarker on failure
	Record *record.Record
}

// Handle runs the executable with no arguments, logs both captured
// streams and then signals done exactly once. The event is not inspected.
func (h *Handler) Handle(ctx context.Context, event json.RawMessage, done Completion) {
	h.run(ctx, event, Once(done))
}

// Invoke runs one invocation and returns its completion signal.
func (h *Handler) Invoke(ctx context.Context, event json.RawMessage) Outcome {
	var out Outcome
	out.Record = h.run(ctx, event, Once(CompletionFunc(func(err error, marker string) {
		out.Err = err
		out.Marker = marker
	})))
	return out
}

func (h *Handler) run(ctx context.Context, event json.RawMessage, done Completion) *record.Record {
	logger := h.logger()
	command := h.Executable
	if command == "" {
		command = DefaultExecutable
	}

	res, err := h.Runner.Run(ctx, []string{command})
	if err != nil {
		res = &runner.Result{
			RunID: uuid.NewString(),
			Err:   &runner.ProcessError{Command: command, Code: 1, Err: err},
		}
		res.ExitCode = res.Err.Code
	}

	logger.Print("stdout: " + trimNewline(res.Stdout))
	logger.Print("stderr: " + trimNewline(res.Stderr))

	rec := newRecord(ctx, command, event, res)

	if !res.Failed() {
		logger.Debug("invocation finished", "run_id", res.RunID, "duration", res.Duration)
		h.save(ctx, rec)
		done.Succeed()
		return rec
	}

	logger.Printf("err code: %d err: %v", res.Err.Code, res.Err)
	logger.Debug("invocation failed", "run_id", res.RunID, "duration", res.Duration, "signal", res.Err.Signal)
	h.save(ctx, rec)
	done.Fail(res.Err, FailureMarker)
	return rec
}

// save stores rec; a store failure never changes the invocation outcome.
func (h *Handler) save(ctx context.Context, rec *record.Record) {
	if h.Store == nil {
		return
	}
	// The platform deadline may already have passed for a killed child.
	ctx = context.WithoutCancel(ctx)
	if err := h.Store.Save(ctx, rec); err != nil {
		h.logger().Warn("saving invocation record", "run_id", rec.ID, "err", err)
	}
}

func (h *Handler) logger() *log.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return log.Default()
}

func newRecord(ctx context.Context, command string, event json.RawMessage, res *runner.Result) *record.Record {
	rec := &record.Record{
		ID:         res.RunID,
		Command:    command,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
		ExitCode:   res.ExitCode,
		Stdout:     string(res.Stdout),
		Stderr:     string(res.Stderr),
		Truncated:  res.Truncated,
	}
	if json.Valid(event) {
		rec.Event = event
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		rec.RequestID = lc.AwsRequestID
	}
	if pe := res.Err; pe != nil {
		rec.Signal = pe.Signal
		rec.Error = pe.Error()
	}
	return rec
}

func trimNewline(b []byte) string {
	return strings.TrimSuffix(string(b), "\n")
}
