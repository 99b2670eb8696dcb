// Package readypoll waits for a single file descriptor to become
// readable or writable, bounded by a timeout. It is the single-descriptor
// readiness primitive socket.ConnectDirect and recvloop.RecvExact share: a
// single unix.Poll call per invocation, with no registration lifecycle.
package readypoll

import (
	"golang.org/x/sys/unix"
)

// Wait blocks until fd is ready for events (a unix.POLLIN/POLLOUT mask)
// or timeoutMs elapses. It returns ready=false on timeout (zero events),
// and retries the poll across EINTR.
func Wait(fd int, events int16, timeoutMs int) (ready bool, err error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(pfd, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, err
		}
		return n > 0, nil
	}
}
