package socket

import "golang.org/x/sys/unix"

// MillisToTimeval splits a non-negative millisecond count into a
// unix.Timeval, the way select(2)'s timeout argument expects. Uses
// unix.NsecToTimeval so the Sec/Usec field widths stay correct across
// platforms (they differ between e.g. amd64 and 386).
func MillisToTimeval(ms int64) unix.Timeval {
	return unix.NsecToTimeval(ms * int64(1e6))
}
