package invoke

import "sync"

// FailureMarker is passed alongside the error on every failed completion.
const FailureMarker = "lambda"

// Completion receives the outcome of one invocation.
type Completion interface {
	// Succeed signals a clean exit; there is no result value.
	Succeed()
	// Fail signals that the process could not be run to a clean exit.
	Fail(err error, marker string)
}

// CompletionFunc adapts a done(err, result) style callback. It is called
// with a nil error and an empty marker on success.
type CompletionFunc func(err error, marker string)

// Succeed calls f(nil, "").
func (f CompletionFunc) Succeed() { f(nil, "") }

// Fail calls f(err, marker).
func (f CompletionFunc) Fail(err error, marker string) { f(err, marker) }

// Once wraps c so that only the first signal reaches it.
func Once(c Completion) Completion {
	if o, ok := c.(*once); ok {
		return o
	}
	return &once{next: c}
}

type once struct {
	o    sync.Once
	next Completion
}

func (c *once) Succeed() {
	c.o.Do(c.next.Succeed)
}

func (c *once) Fail(err error, marker string) {
	c.o.Do(func() { c.next.Fail(err, marker) })
}
