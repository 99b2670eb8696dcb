package recvloop

import "sync/atomic"

// interruptFlag is the single process-wide cooperative cancellation flag
// every RecvExact call samples between reads. It starts false and is
// toggled by Interrupt; it is never destroyed.
var interruptFlag atomic.Bool

// Interrupt sets or clears the process-wide interrupt flag. Setting it
// causes every outstanding RecvExact call to return Interrupted within
// one interrupt-granularity window (see RecvExact). Clearing it re-arms
// the facility for subsequent calls; it does not un-abort calls that
// already observed the flag set.
func Interrupt(interrupt bool) {
	interruptFlag.Store(interrupt)
}

func interrupted() bool {
	return interruptFlag.Load()
}
