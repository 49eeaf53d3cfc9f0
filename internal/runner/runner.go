// Package runner launches a single external process, drains its output
// streams into bounded buffers and classifies how it exited.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultWaitDelay bounds how long Run waits for the output streams to
// close after the process has exited, when Runner.WaitDelay is unset.
const DefaultWaitDelay = 5 * time.Second

// Runner executes one process per call. A zero Runner is usable: no
// timeout, no output cap, DefaultWaitDelay and the caller's working directory.
type Runner struct {
	Dir       string        // working directory; empty means the current one
	Timeout   time.Duration // zero means bounded only by ctx
	WaitDelay time.Duration // stream drain grace after exit; zero means DefaultWaitDelay
	MaxOutput int           // bytes per stream; zero means unlimited
}

// Run executes argv and waits for it to exit. The first element is the
// executable; a name containing a path separator is used as is (relative
// to Dir), otherwise it is resolved via PATH.
//
// The returned error is non-nil only for an invalid argv. Every process
// failure, including a failure to spawn, is reported in Result.Err.
func (r *Runner) Run(ctx context.Context, argv []string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	res := &Result{RunID: uuid.New().String()}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	res.StartedAt = time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(res.StartedAt)

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	if r.MaxOutput > 0 {
		res.Truncated = stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput
	}

	// ErrWaitDelay means the process exited cleanly but something it
	// spawned kept the pipes open; the exit itself is what counts.
	if runErr != nil && !errors.Is(runErr, exec.ErrWaitDelay) {
		res.Err = newProcessError(argv[0], runErr)
		res.ExitCode = res.Err.Code
	}
	return res, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the
// rest. A non-positive limit disables the cap.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors
		// from the exec copy goroutine.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
