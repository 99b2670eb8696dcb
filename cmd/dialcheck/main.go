// Command dialcheck is a manual connectivity probe for the connector
// library: it either connects directly to a host:port, or through a
// SOCKS5 proxy, and reports success or failure.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"github.com/emberchain/netconnect/pkg/logger"
	"github.com/emberchain/netconnect/socket"
	"github.com/emberchain/netconnect/socks5"
)

func main() {
	var (
		proxyAddr     = flag.String("proxy", "", "SOCKS5 proxy address, host:port (empty = connect directly)")
		resolveProxy  = flag.Bool("resolve-proxy", false, "resolve -proxy's host via DNS before dialing it (the connector's core never does this itself)")
		resolver      = flag.String("resolver", "8.8.8.8:53", "DNS resolver used only by -resolve-proxy")
		targetHost    = flag.String("host", "", "destination host (hostname or IP; hostnames pass through to the proxy verbatim)")
		targetPort    = flag.Int("port", 0, "destination port")
		timeoutMs     = flag.Int("timeout", 10000, "deadline in milliseconds for the TCP connect (direct, or to the proxy); SOCKS5 replies have their own fixed 20s budget")
		username      = flag.String("user", "", "SOCKS5 username; not sent to the proxy: fixed credentials are unsupported, so the dial proceeds without auth (see -randomize-creds)")
		password      = flag.String("pass", "", "SOCKS5 password; not sent to the proxy, like -user")
		randomizeAuth = flag.Bool("randomize-creds", false, "ignore -user/-pass and synthesize fresh stream-isolation credentials")
	)
	flag.Parse()

	log := logger.Setup()

	if *targetHost == "" || *targetPort == 0 {
		fmt.Fprintln(os.Stderr, "usage: dialcheck -host <host> -port <port> [-proxy <host:port>]")
		os.Exit(2)
	}

	if *proxyAddr == "" {
		if err := dialDirect(*targetHost, *targetPort, int64(*timeoutMs)); err != nil {
			log.Error("direct connect failed", "error", err)
			os.Exit(1)
		}
		log.Info("direct connect succeeded", "host", *targetHost, "port", *targetPort)
		return
	}

	proxyEndpoint, err := resolveEndpoint(*proxyAddr, *resolveProxy, *resolver)
	if err != nil {
		log.Error("could not resolve proxy address", "error", err)
		os.Exit(1)
	}

	handle, err := socket.CreateSocket(proxyEndpoint)
	if err != nil {
		log.Error("could not create socket", "error", err)
		os.Exit(1)
	}
	defer socket.CloseSocket(handle)

	if *username != "" && *password != "" && !*randomizeAuth {
		log.Warn("dialcheck does not yet support fixed proxy credentials on the CLI; connecting without auth")
	}

	connErr, proxyFailed := socks5.ConnectThroughProxy(log, proxyEndpoint, *targetHost, uint16(*targetPort), handle, int64(*timeoutMs), *randomizeAuth)
	if connErr != nil {
		log.Error("proxied connect failed", "error", connErr, "proxy_connection_failed", proxyFailed)
		os.Exit(1)
	}
	log.Info("proxied connect succeeded", "proxy", *proxyAddr, "host", *targetHost, "port", *targetPort)
}

func dialDirect(host string, port int, timeoutMs int64) error {
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("dialcheck only connects directly to literal IPs; got hostname %q (the core never resolves)", host)
	}
	endpoint, err := endpointFromIP(ip, uint16(port))
	if err != nil {
		return err
	}
	handle, err := socket.CreateSocket(endpoint)
	if err != nil {
		return err
	}
	defer socket.CloseSocket(handle)
	return socket.ConnectDirect(nil, endpoint, handle, timeoutMs, true)
}

// resolveEndpoint turns a host:port string into an Endpoint. If host is
// already a literal IP it is used as-is. If resolveProxy is set and host
// is a name, a single A-record DNS query resolves it — this is the CLI's
// convenience feature, not the connector core's: the core (socket,
// socks5 packages) never performs DNS resolution.
func resolveEndpoint(hostport string, resolveProxy bool, resolverAddr string) (socket.Endpoint, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return socket.Endpoint{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return socket.Endpoint{}, fmt.Errorf("invalid port %q", portStr)
	}

	if ip := net.ParseIP(host); ip != nil {
		return endpointFromIP(ip, uint16(port))
	}

	if !resolveProxy {
		return socket.Endpoint{}, fmt.Errorf("proxy host %q is not a literal IP; pass -resolve-proxy to allow DNS lookup", host)
	}

	ip, err := resolveA(host, resolverAddr)
	if err != nil {
		return socket.Endpoint{}, fmt.Errorf("resolving proxy host %q: %w", host, err)
	}
	return endpointFromIP(ip, uint16(port))
}

// resolveA performs one A-record query against resolverAddr.
func resolveA(host, resolverAddr string) (net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	c := new(dns.Client)
	c.Timeout = 5 * time.Second
	resp, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return nil, err
	}
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return a.A, nil
		}
	}
	return nil, fmt.Errorf("no A records for %q", host)
}

func endpointFromIP(ip net.IP, port uint16) (socket.Endpoint, error) {
	if v4 := ip.To4(); v4 != nil {
		return socket.Endpoint{Family: socket.IPv4, Address: v4, Port: port}, nil
	}
	if v6 := ip.To16(); v6 != nil {
		return socket.Endpoint{Family: socket.IPv6, Address: v6, Port: port}, nil
	}
	return socket.Endpoint{}, fmt.Errorf("unrecognized IP %v", ip)
}
