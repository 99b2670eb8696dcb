// Package socks5 drives connection establishment through a SOCKS5 proxy
// (RFC 1928, plus RFC 1929 username/password sub-negotiation), including
// optional per-call randomized credentials for stream isolation.
package socks5

import (
	"log/slog"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/emberchain/netconnect/recvloop"
	"github.com/emberchain/netconnect/socket"
)

// ConnectThroughProxy connects handle to proxyEndpoint and then drives a
// SOCKS5 CONNECT to host:port over it. handle must already have been
// produced by socket.CreateSocket.
//
// If randomizeCredentials is true, a fresh (username, password) pair is
// synthesized from the process-wide isolation counter for this call only
// (see credentials.go); two successive calls never reuse a pair.
//
// The second return value is true when the failure happened reaching the
// proxy itself, as opposed to during negotiation with an already-reached
// proxy — upper layers use this to decide whether backing off the proxy
// address (rather than just this destination) makes sense.
func ConnectThroughProxy(log *slog.Logger, proxyEndpoint socket.Endpoint, host string, port uint16, handle socket.Handle, deadlineMs int64, randomizeCredentials bool) (err error, proxyConnectionFailed bool) {
	if connErr := socket.ConnectDirect(log, proxyEndpoint, handle, deadlineMs, true); connErr != nil {
		return newProxyUnreachableErr(connErr), true
	}

	var creds *Credentials
	if randomizeCredentials {
		c := isolationCounter.take()
		creds = &c
	}

	if err := dialogue(log, int(handle), host, port, creds); err != nil {
		return err, false
	}
	return nil, false
}

// dialogue runs the five-state SOCKS5 client machine on an
// already-connected fd: GREETING_SEND → GREETING_RECV → (AUTH_SEND →
// AUTH_RECV)? → REQUEST_SEND → REPLY_RECV → DONE/FAIL.
func dialogue(log *slog.Logger, fd int, host string, port uint16, creds *Credentials) error {
	if len(host) > maxHostnameLen {
		return newErr(ErrHostnameTooLong, "hostname too long for SOCKS5")
	}

	st := stateGreetingSend
	if err := sendGreeting(fd, creds != nil); err != nil {
		return failLog(log, st, err)
	}

	st = stateGreetingRecv
	method, err := recvMethodSelection(fd)
	if err != nil {
		return failLog(log, st, err)
	}

	switch {
	case method == methodUserPass && creds != nil:
		st = stateAuthSend
		if err := sendAuth(fd, *creds); err != nil {
			return failLog(log, st, err)
		}
		st = stateAuthRecv
		if err := recvAuthReply(fd); err != nil {
			return failLog(log, st, err)
		}
	case method == methodNoAuth:
		// no sub-negotiation
	default:
		return failLog(log, st, newErr(ErrProxyAuthRequiredButUnsupported, "proxy requested unsupported method"))
	}

	st = stateRequestSend
	if err := sendConnectRequest(fd, host, port); err != nil {
		return failLog(log, st, err)
	}

	st = stateReplyRecv
	if err := recvConnectReply(log, fd); err != nil {
		return err // recvConnectReply already applied the quiet-timeout rule below
	}
	st = stateDone

	if log != nil {
		log.Debug("SOCKS5 connected", slog.String("state", st.String()), slog.String("host", host))
	}
	return nil
}

func failLog(log *slog.Logger, st state, err error) error {
	if log != nil {
		log.Error("SOCKS5 negotiation failed", slog.String("state", st.String()), slog.Any("error", err))
	}
	return err
}

// sendGreeting writes VER | NMETHODS | METHODS.
func sendGreeting(fd int, withAuth bool) error {
	var msg []byte
	if withAuth {
		msg = []byte{version, 0x02, methodNoAuth, methodUserPass}
	} else {
		msg = []byte{version, 0x01, methodNoAuth}
	}
	return sendAll(fd, msg)
}

func recvMethodSelection(fd int) (uint8, error) {
	buf := make([]byte, 2)
	if err := recvExact(fd, buf); err != nil {
		return 0, err
	}
	if buf[0] != version {
		return 0, newErr(ErrProxyBadVersion, "proxy failed to initialize")
	}
	return buf[1], nil
}

// sendAuth writes RFC 1929's VER | ULEN | UNAME | PLEN | PASSWD.
func sendAuth(fd int, creds Credentials) error {
	if len(creds.Username) > maxCredentialLen || len(creds.Password) > maxCredentialLen {
		return newErr(ErrProxyShortWrite, "proxy username or password too long")
	}
	msg := make([]byte, 0, 3+len(creds.Username)+len(creds.Password))
	msg = append(msg, authVersion, byte(len(creds.Username)))
	msg = append(msg, creds.Username...)
	msg = append(msg, byte(len(creds.Password)))
	msg = append(msg, creds.Password...)
	return sendAll(fd, msg)
}

func recvAuthReply(fd int) error {
	buf := make([]byte, 2)
	if err := recvExact(fd, buf); err != nil {
		return err
	}
	if buf[0] != authVersion || buf[1] != authSuccess {
		return newErr(ErrProxyAuthFailed, "proxy authentication unsuccessful")
	}
	return nil
}

// sendConnectRequest writes VER | CMD=CONNECT | RSV | ATYP=DOMAINNAME |
// hlen | host | port. Only DOMAINNAME is ever sent; the proxy resolves
// the hostname itself.
func sendConnectRequest(fd int, host string, port uint16) error {
	msg := make([]byte, 0, 4+1+len(host)+2)
	msg = append(msg, version, cmdConnect, 0x00, atypDomain)
	msg = append(msg, byte(len(host)))
	msg = append(msg, host...)
	msg = append(msg, byte(port>>8), byte(port&0xff))
	return sendAll(fd, msg)
}

// recvConnectReply reads VER | REP | RSV | ATYP | BND.ADDR | BND.PORT.
// The bound address is discarded; only REP matters. A Timeout here is
// demoted to a quiet failure — unresponsive onion services time out here
// routinely and it is not worth an error-level log line.
func recvConnectReply(log *slog.Logger, fd int) error {
	hdr := make([]byte, 4)
	if err := recvExactLogged(log, fd, hdr, "reading proxy reply header"); err != nil {
		return err
	}
	if hdr[0] != version {
		return failLog(log, stateReplyRecv, newErr(ErrProxyBadVersion, "proxy failed to accept request"))
	}
	rep := hdr[1]
	if hdr[2] != 0x00 {
		return failLog(log, stateReplyRecv, newErr(ErrMalformedReply, "malformed proxy response: reserved byte non-zero"))
	}

	var boundLen int
	switch hdr[3] {
	case atypIPv4:
		boundLen = 4
	case atypIPv6:
		boundLen = 16
	case atypDomain:
		lbuf := make([]byte, 1)
		if err := recvExactLogged(log, fd, lbuf, "reading proxy reply domain length"); err != nil {
			return err
		}
		boundLen = int(lbuf[0])
	default:
		return failLog(log, stateReplyRecv, newErr(ErrMalformedReply, "malformed proxy response: unknown ATYP"))
	}

	discard := make([]byte, boundLen+2) // + BND.PORT
	if err := recvExactLogged(log, fd, discard, "reading proxy reply bound address"); err != nil {
		return err
	}

	if rep != replySucceeded {
		if log != nil {
			log.Error("SOCKS5 proxy refused connection", slog.String("reply", replyString(rep)))
		}
		return newReplyErr(rep)
	}
	return nil
}

// recvExact wraps recvloop.RecvExact with SOCKS5's fixed 20s budget and
// maps its closed RecvError set onto this package's ErrKind set.
func recvExact(fd int, buf []byte) error {
	switch recvloop.RecvExact(fd, buf, socks5RecvTimeoutMs) {
	case recvloop.Ok:
		return nil
	case recvloop.Timeout:
		return newErr(ErrRecvTimeout, "timed out waiting for proxy")
	case recvloop.Disconnected:
		return newErr(ErrRecvDisconnected, "proxy closed the connection")
	case recvloop.Interrupted:
		return newErr(ErrRecvInterrupted, "interrupted")
	default:
		return newErr(ErrRecvNetworkError, "network error reading from proxy")
	}
}

// recvExactLogged is recvExact plus the quiet-timeout carve-out for the
// CONNECT reply: a Timeout is expected and unresponsive-onion-service
// routine, so it is returned without an error-level log, while every
// other recv failure during negotiation is logged.
func recvExactLogged(log *slog.Logger, fd int, buf []byte, what string) error {
	err := recvExact(fd, buf)
	if err == nil {
		return nil
	}
	if connErr, ok := err.(*ConnError); ok && connErr.Kind == ErrRecvTimeout {
		return err
	}
	if log != nil {
		log.Error("SOCKS5 "+what+" failed", slog.Any("error", err))
	}
	return err
}

// sendAll performs a single non-blocking send with MSG_NOSIGNAL. A short
// write is treated as fatal, not a retry point: the protocol does not
// resume a partially-sent message.
func sendAll(fd int, msg []byte) error {
	n, err := unix.SendmsgN(fd, msg, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		errno, _ := err.(syscall.Errno)
		return &ConnError{Kind: ErrProxyShortWrite, msg: "send to proxy failed: " + errno.Error()}
	}
	if n != len(msg) {
		return newErr(ErrProxyShortWrite, "short write to proxy")
	}
	return nil
}
