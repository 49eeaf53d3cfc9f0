package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Dir:       t.TempDir(),
		WaitDelay: time.Second,
		MaxOutput: 1 << 20,
	}
}

// writeScript creates an executable shell script named name in dir.
func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Success(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"echo", "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() {
		t.Fatalf("Err = %v, want nil", res.Err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(string(res.Stdout), "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.StartedAt.IsZero() {
		t.Error("StartedAt is zero")
	}
}

func TestRun_RelativeExecutable(t *testing.T) {
	r := newTestRunner(t)
	writeScript(t, r.Dir, "bam-weather", `echo "Sunny, 72F"; echo "warming up" >&2`)

	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() {
		t.Fatalf("Err = %v, want nil", res.Err)
	}
	if got := string(res.Stdout); got != "Sunny, 72F\n" {
		t.Errorf("Stdout = %q, want %q", got, "Sunny, 72F\n")
	}
	if got := string(res.Stderr); got != "warming up\n" {
		t.Errorf("Stderr = %q, want %q", got, "warming up\n")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	writeScript(t, r.Dir, "bam-weather", `echo partial; echo "no forecast" >&2; exit 3`)

	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want a ProcessError")
	}
	if res.ExitCode != 3 || res.Err.Code != 3 {
		t.Errorf("ExitCode = %d, Err.Code = %d, want 3", res.ExitCode, res.Err.Code)
	}
	// Output is still captured on failure.
	if !strings.Contains(string(res.Stdout), "partial") {
		t.Errorf("Stdout = %q, want to contain 'partial'", res.Stdout)
	}
	if !strings.Contains(string(res.Stderr), "no forecast") {
		t.Errorf("Stderr = %q, want to contain 'no forecast'", res.Stderr)
	}
	if !strings.Contains(res.Err.Error(), "./bam-weather") {
		t.Errorf("error = %q, want to mention the command", res.Err)
	}
}

func TestRun_ExecutableMissing(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want a ProcessError")
	}
	if res.Err.Code != CodeNotFound {
		t.Errorf("Err.Code = %d, want %d", res.Err.Code, CodeNotFound)
	}
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("error = %v, want to wrap os.ErrNotExist", res.Err)
	}
}

func TestRun_BinaryNotOnPath(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"nonexistent-binary-xyz-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() || res.Err.Code != CodeNotFound {
		t.Fatalf("Err = %v, want code %d", res.Err, CodeNotFound)
	}
	if !strings.Contains(res.Err.Error(), "nonexistent-binary-xyz-123") {
		t.Errorf("error = %q, want to mention the binary name", res.Err)
	}
}

func TestRun_NotExecutable(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(r.Dir, "bam-weather")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want a ProcessError")
	}
	if res.Err.Code != CodeNotExecutable {
		t.Errorf("Err.Code = %d, want %d", res.Err.Code, CodeNotExecutable)
	}
}

func TestRun_KilledBySignal(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), []string{"sh", "-c", "kill -KILL $$"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want a ProcessError")
	}
	if res.Err.Signal != "killed" {
		t.Errorf("Signal = %q, want %q", res.Err.Signal, "killed")
	}
	if res.Err.Code != 137 {
		t.Errorf("Err.Code = %d, want 137", res.Err.Code)
	}
}

func TestRun_BackgroundChildHoldsPipes(t *testing.T) {
	r := newTestRunner(t)
	r.WaitDelay = 200 * time.Millisecond
	writeScript(t, r.Dir, "bam-weather", `sleep 30 & echo hi`)

	start := time.Now()
	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run took %v, want it bounded by WaitDelay", elapsed)
	}
	if res.Failed() {
		t.Fatalf("Err = %v, want nil for a clean exit", res.Err)
	}
	if got := string(res.Stdout); got != "hi\n" {
		t.Errorf("Stdout = %q, want %q", got, "hi\n")
	}
}

func TestRun_ZeroRunnerDefaultWaitDelay(t *testing.T) {
	r := &Runner{Dir: t.TempDir()}
	writeScript(t, r.Dir, "bam-weather", `sleep 60 & echo hi`)

	start := time.Now()
	res, err := r.Run(context.Background(), []string{"./bam-weather"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > DefaultWaitDelay+10*time.Second {
		t.Errorf("Run took %v, want it bounded by DefaultWaitDelay", elapsed)
	}
	if res.Failed() {
		t.Fatalf("Err = %v, want nil for a clean exit", res.Err)
	}
}

func TestRun_EmptyArgv(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty argv")
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 100 * time.Millisecond

	start := time.Now()
	res, err := r.Run(context.Background(), []string{"sleep", "10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Run took %v, want the timeout to stop the process", time.Since(start))
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want the timed out process to fail")
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx, []string{"echo", "never"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Fatal("Err = nil, want a cancelled run to fail")
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100 // very small cap

	// Generate output larger than cap.
	res, err := r.Run(context.Background(), []string{"sh", "-c", "dd if=/dev/zero bs=200 count=1 2>/dev/null"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) > r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want <= %d", len(res.Stdout), r.MaxOutput)
	}
}

func TestRun_UnlimitedOutput(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 0

	res, err := r.Run(context.Background(), []string{"sh", "-c", "dd if=/dev/zero bs=4096 count=4 2>/dev/null"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false without a cap")
	}
	if len(res.Stdout) != 4096*4 {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), 4096*4)
	}
}
