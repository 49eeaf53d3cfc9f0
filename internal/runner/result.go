package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
	"time"
)

// Result holds the output of a single process execution.
type Result struct {
	RunID     string        // unique identifier for this run
	ExitCode  int           // 0 on success, ProcessError.Code otherwise
	Stdout    []byte        // captured stdout (may be truncated)
	Stderr    []byte        // captured stderr (may be truncated)
	Truncated bool          // true if either stream exceeded the size cap
	StartedAt time.Time     // when the process was launched
	Duration  time.Duration // wall time until the streams were drained
	Err       *ProcessError // nil when the process exited with status 0
}

// Failed reports whether the process could not be run to a clean exit.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Exit codes assigned to failures that never produced an exit status.
// They follow the POSIX shell conventions.
const (
	CodeNotExecutable = 126
	CodeNotFound      = 127
	codeSignalBase    = 128
)

// ProcessError describes a process that could not be run to a zero exit:
// a spawn failure, a non-zero exit status or termination by a signal.
type ProcessError struct {
	Command string // argv[0] as given
	Code    int    // numeric exit/error code
	Signal  string // signal name when the process was killed
	Err     error  // underlying exec error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// newProcessError classifies the error returned by exec.Cmd.Run.
func newProcessError(command string, err error) *ProcessError {
	pe := &ProcessError{Command: command, Code: 1, Err: err}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			pe.Signal = ws.Signal().String()
			pe.Code = codeSignalBase + int(ws.Signal())
		} else {
			pe.Code = exitErr.ExitCode()
		}
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		pe.Code = CodeNotFound
	case errors.Is(err, fs.ErrPermission):
		pe.Code = CodeNotExecutable
	}
	return pe
}
