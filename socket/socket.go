package socket

import (
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/emberchain/netconnect/internal/readypoll"
	"github.com/emberchain/netconnect/pkg/logger"
)

// Handle is an opaque, non-blocking, selectable OS descriptor. A negative
// Handle is invalid; fd 0 is a legitimate descriptor value like any other.
type Handle int

const invalidHandle Handle = -1

// IsSelectable reports whether fd is usable with this package's readiness
// primitive. This connector exclusively uses poll(2) (see
// internal/readypoll), which has no descriptor-value ceiling the way
// select(2)'s FD_SETSIZE does, so every non-negative descriptor is
// selectable. Kept as a named, independently testable predicate since a
// freshly created socket must always satisfy it.
func IsSelectable(fd Handle) bool {
	return fd >= 0
}

// CreateSocket opens a non-blocking TCP stream socket for endpoint's
// family, with TCP_NODELAY set and SIGPIPE suppressed where the platform
// offers SO_NOSIGPIPE. On any failure the socket (if one was opened) is
// closed before returning.
func CreateSocket(endpoint Endpoint) (Handle, error) {
	domain, err := endpoint.domain()
	if err != nil {
		return invalidHandle, err
	}

	// Confirm the endpoint actually serializes before spending a
	// descriptor on it; an Unroutable family fails here too, but
	// checking domain() above gives a clearer error for that case.
	if _, err := endpoint.sockaddr(); err != nil {
		return invalidHandle, err
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		errno, _ := err.(syscall.Errno)
		return invalidHandle, newErrnoErr(ErrConnectFailed, "socket() failed", errno)
	}
	h := Handle(fd)

	if !IsSelectable(h) {
		unix.Close(fd)
		return invalidHandle, newErr(ErrConnectFailed, "non-selectable socket created")
	}

	suppressSigpipe(fd)

	if !SetNoDelay(h) {
		// Not fatal: Nagle's algorithm staying on only costs latency.
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		errno, _ := err.(syscall.Errno)
		return invalidHandle, newErrnoErr(ErrConnectFailed, "setting socket non-blocking failed", errno)
	}

	return h, nil
}

// ConnectDirect connects handle to endpoint, waiting up to deadlineMs for
// the connection to complete. isManual controls only the log level of a
// failure (manual attempts log loud; automatic/background attempts log at
// debug) — the returned error does not depend on it.
func ConnectDirect(log *slog.Logger, endpoint Endpoint, handle Handle, deadlineMs int64, isManual bool) error {
	if handle < 0 {
		return newErr(ErrInvalidHandle, "cannot connect: invalid socket")
	}
	sa, err := endpoint.sockaddr()
	if err != nil {
		return err
	}

	fd := int(handle)
	connErr := unix.Connect(fd, sa)
	if connErr != nil {
		errno, _ := connErr.(syscall.Errno)
		switch errno {
		case unix.EINPROGRESS, unix.EALREADY:
			// fall through to the readiness wait below
		case unix.EISCONN:
			return nil
		default:
			logger.ConnectFailure(log, isManual, "connect() failed: "+FormatNetworkError(errno))
			return newErrnoErr(ErrConnectFailed, "connect() failed", errno)
		}

		ready, waitErr := readypoll.Wait(fd, unix.POLLOUT, int(deadlineMs))
		if waitErr != nil {
			return newErr(ErrConnectFailed, "poll() for connect failed: "+waitErr.Error())
		}
		if !ready {
			logger.ConnectFailure(log, isManual, "connection timed out")
			return newErr(ErrConnectTimeout, "connect timed out")
		}

		soErr, getErr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if getErr != nil {
			errno, _ := getErr.(syscall.Errno)
			return newErrnoErr(ErrConnectFailed, "getsockopt(SO_ERROR) failed", errno)
		}
		if soErr != 0 {
			errno := syscall.Errno(soErr)
			logger.ConnectFailure(log, isManual, "connect() failed after poll(): "+FormatNetworkError(errno))
			return newErrnoErr(ErrConnectFailed, "connect() failed after poll()", errno)
		}
	}
	return nil
}

// CloseSocket closes handle. It returns false if the handle was already
// invalid or the close(2) call itself failed.
func CloseSocket(handle Handle) bool {
	if handle < 0 {
		return false
	}
	return unix.Close(int(handle)) == nil
}

// SetNoDelay enables TCP_NODELAY on handle, returning whether the kernel
// accepted the option.
func SetNoDelay(handle Handle) bool {
	err := unix.SetsockoptInt(int(handle), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return err == nil
}
