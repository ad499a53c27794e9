package script

import (
	"fmt"
	"strings"
	"time"

	"go.starlark.net/starlark"
)

// isCancelled reports whether err originated from thread.Cancel. go.starlark.net
// reports a cancelled thread as a *starlark.EvalError whose message is
// "Starlark computation cancelled: <reason>" — there is no typed sentinel
// for it, so this matches on that wording.
func isCancelled(err error) bool {
	return err != nil && strings.Contains(err.Error(), "cancelled")
}

// callWithTimeout runs fn, cancelling thread (and so aborting fn's Starlark
// call) if it hasn't returned within timeout. Grounded on go.starlark.net's
// Thread.Cancel, the library's documented mechanism for externally aborting
// a runaway script. The library has no equivalent hook for a memory
// ceiling and no execution-step limit is set either, so
// DefaultMemoryLimitBytes is not enforced: a script's memory use is bounded
// only indirectly, by the wall-clock limit.
func callWithTimeout(thread *starlark.Thread, timeout time.Duration, fn func() (starlark.Value, error)) (starlark.Value, error) {
	type outcome struct {
		v   starlark.Value
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		v, err := fn()
		done <- outcome{v, err}
	}()

	timer := time.AfterFunc(timeout, func() {
		thread.Cancel(fmt.Sprintf("exceeded %s wall-clock limit", timeout))
	})
	defer timer.Stop()

	o := <-done
	return o.v, o.err
}
