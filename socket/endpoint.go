package socket

import "golang.org/x/sys/unix"

// Family identifies the routability of an Endpoint's address bytes.
type Family int

const (
	// Unroutable marks an endpoint that cannot be dialed directly; it
	// only ever appears as a programming error at this layer, since the
	// caller is expected to resolve hostnames itself (see Non-goals).
	Unroutable Family = iota
	IPv4
	IPv6
)

// Endpoint is a (family, address, port) triple, the thing actually dialed
// on the wire. A Destination with a hostname is resolved to one of these
// by the caller before it ever reaches this package.
type Endpoint struct {
	Family  Family
	Address []byte // 4 bytes for IPv4, 16 for IPv6
	Port    uint16
}

// sockaddr serializes the endpoint to the unix.Sockaddr the kernel needs.
// An Unroutable family always fails: there is no wire representation for it.
func (e Endpoint) sockaddr() (unix.Sockaddr, error) {
	switch e.Family {
	case IPv4:
		if len(e.Address) != 4 {
			return nil, newErr(ErrUnsupportedNetwork, "invalid IPv4 address length")
		}
		sa := &unix.SockaddrInet4{Port: int(e.Port)}
		copy(sa.Addr[:], e.Address)
		return sa, nil
	case IPv6:
		if len(e.Address) != 16 {
			return nil, newErr(ErrUnsupportedNetwork, "invalid IPv6 address length")
		}
		sa := &unix.SockaddrInet6{Port: int(e.Port)}
		copy(sa.Addr[:], e.Address)
		return sa, nil
	default:
		return nil, newErr(ErrUnsupportedNetwork, "endpoint family is not routable")
	}
}

// domain returns the socket(2) address family (AF_INET / AF_INET6) for
// the endpoint, used to create the socket before connecting.
func (e Endpoint) domain() (int, error) {
	switch e.Family {
	case IPv4:
		return unix.AF_INET, nil
	case IPv6:
		return unix.AF_INET6, nil
	default:
		return 0, newErr(ErrUnsupportedNetwork, "endpoint family is not routable")
	}
}
