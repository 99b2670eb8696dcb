package socks5

import (
	"strconv"
	"sync/atomic"
)

// Credentials are optional RFC 1929 username/password sub-negotiation
// credentials. Each field must be 1..=255 bytes; embedded NUL bytes are
// permitted (RFC 1929 leaves this unspecified, so they are treated as
// opaque bytes, never NUL-terminated on the wire).
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) valid() bool {
	return len(c.Username) >= 1 && len(c.Username) <= maxCredentialLen &&
		len(c.Password) >= 1 && len(c.Password) <= maxCredentialLen
}

// credentialCounter backs stream isolation: every call with
// randomizeCredentials synthesizes username == password == the decimal
// value of a process-wide, strictly monotonically increasing counter, so
// the proxy (e.g. Tor) routes successive calls over independent circuits.
// Kept as its own type, rather than a bare package-level atomic, so its
// monotonicity invariant can be tested in isolation.
type credentialCounter struct {
	next atomic.Uint64
}

var isolationCounter credentialCounter

func (c *credentialCounter) take() Credentials {
	n := c.next.Add(1) - 1
	s := strconv.FormatUint(n, 10)
	return Credentials{Username: s, Password: s}
}
