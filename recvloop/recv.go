// Package recvloop implements an interruptible, deadline-bounded "read
// exactly N bytes" loop over a non-blocking socket, polling a single
// descriptor while honoring both a deadline and the process-wide
// interrupt flag. It is the Go rendition of the original InterruptibleRecv.
package recvloop

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/emberchain/netconnect/internal/readypoll"
)

// RecvError is the closed set of outcomes RecvExact can return.
type RecvError int

const (
	Ok RecvError = iota
	Timeout
	Disconnected
	NetworkError
	Interrupted
)

func (e RecvError) Error() string {
	switch e {
	case Ok:
		return "ok"
	case Timeout:
		return "recv timeout"
	case Disconnected:
		return "connection disconnected"
	case NetworkError:
		return "recv network error"
	case Interrupted:
		return "recv interrupted"
	default:
		return "unknown recv error"
	}
}

// maxWaitMillis bounds a single readiness wait. It is the interrupt
// granularity: between waits the interrupt flag is sampled, so
// cancellation is observed within roughly this long regardless of the
// overall deadline.
const maxWaitMillis = 1000

// RecvExact reads exactly len(buf) bytes from fd, or fails. fd must
// already be non-blocking and selectable.
//
// On RecvError(Ok), every byte of buf has been filled. On any other
// return, the bytes written to buf are unspecified and the caller must
// discard the buffer.
//
// A zero-length buf returns Ok immediately without touching the socket,
// checked before the interrupt flag. Otherwise, if the interrupt flag is
// already set when RecvExact is called, it returns Interrupted
// immediately without performing any read.
func RecvExact(fd int, buf []byte, deadlineMs int64) RecvError {
	remaining := buf
	if len(remaining) == 0 {
		return Ok
	}
	if interrupted() {
		return Interrupted
	}

	endTime := nowMillis() + deadlineMs

	for len(remaining) > 0 && nowMillis() < endTime {
		n, err := unix.Read(fd, remaining)
		switch {
		case n > 0:
			remaining = remaining[n:]
		case err == nil && n == 0:
			return Disconnected
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINPROGRESS:
			waitMs := endTime - nowMillis()
			if waitMs > maxWaitMillis {
				waitMs = maxWaitMillis
			}
			if waitMs < 0 {
				waitMs = 0
			}
			ready, waitErr := readypoll.Wait(fd, unix.POLLIN, int(waitMs))
			if waitErr != nil {
				return NetworkError
			}
			_ = ready // timeout here just loops back to the deadline check
		default:
			return NetworkError
		}

		if interrupted() {
			return Interrupted
		}
	}

	if len(remaining) == 0 {
		return Ok
	}
	return Timeout
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
