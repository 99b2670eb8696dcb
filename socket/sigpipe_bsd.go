//go:build darwin || freebsd || netbsd || openbsd

package socket

import "golang.org/x/sys/unix"

// suppressSigpipe sets SO_NOSIGPIPE, the BSD-family way of asking the
// kernel to return EPIPE instead of raising SIGPIPE on a broken-pipe
// write. Linux has no such socket option; it relies on MSG_NOSIGNAL at
// send time instead (see socks5/client.go).
func suppressSigpipe(fd int) {
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
