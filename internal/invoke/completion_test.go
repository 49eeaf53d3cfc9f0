package invoke

import (
	"errors"
	"sync"
	"testing"
)

func TestOnce_ForwardsFirstSignalOnly(t *testing.T) {
	var calls []error
	c := Once(CompletionFunc(func(err error, _ string) {
		calls = append(calls, err)
	}))

	c.Succeed()
	c.Fail(errors.New("late"), FailureMarker)
	c.Succeed()

	if len(calls) != 1 || calls[0] != nil {
		t.Errorf("calls = %v, want a single success", calls)
	}
}

func TestOnce_Concurrent(t *testing.T) {
	var mu sync.Mutex
	n := 0
	c := Once(CompletionFunc(func(error, string) {
		mu.Lock()
		n++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Fail(errors.New("x"), FailureMarker)
		}()
	}
	wg.Wait()
	if n != 1 {
		t.Errorf("completion called %d times, want 1", n)
	}
}

func TestOnce_Idempotent(t *testing.T) {
	c := Once(CompletionFunc(func(error, string) {}))
	if Once(c) != c {
		t.Error("Once(Once(c)) rewrapped the completion")
	}
}

func TestCompletionFunc(t *testing.T) {
	var gotErr error
	var gotMarker string
	f := CompletionFunc(func(err error, marker string) {
		gotErr, gotMarker = err, marker
	})

	boom := errors.New("boom")
	f.Fail(boom, FailureMarker)
	if gotErr != boom || gotMarker != "lambda" {
		t.Errorf("Fail forwarded (%v, %q), want (boom, lambda)", gotErr, gotMarker)
	}

	f.Succeed()
	if gotErr != nil || gotMarker != "" {
		t.Errorf("Succeed forwarded (%v, %q), want (nil, \"\")", gotErr, gotMarker)
	}
}
