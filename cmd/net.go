package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// guessIPAddress fills the octets missing from partialAddr with those of
// baseAddress: "42" on 192.168.0.1 is 192.168.0.42.
func guessIPAddress(baseAddress net.IP, partialAddr string) (net.IP, error) {
	base := baseAddress.To4()
	if base == nil {
		return nil, fmt.Errorf("%v is not an IPv4 address", baseAddress)
	}
	ip := make(net.IP, len(base))
	copy(ip, base)
	if partialAddr == "" {
		return ip, nil
	}
	octets := strings.Split(partialAddr, ".")
	if len(octets) > len(ip) {
		return nil, fmt.Errorf("too many octets in %q", partialAddr)
	}
	for i, o := range octets {
		v, err := strconv.ParseUint(o, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("octet %q: %w", o, err)
		}
		ip[len(ip)-len(octets)+i] = byte(v)
	}
	return ip, nil
}

// resolvePeer turns a --peer value into host:port. Hosts that are not a
// (partial) IPv4 address are used as given; a missing port is defaultPort.
func resolvePeer(local net.IP, peer string, defaultPort int) (string, error) {
	host, port, err := net.SplitHostPort(peer)
	if err != nil {
		host, port = peer, strconv.Itoa(defaultPort)
	}
	if host == "" || isPartialIPv4(host) {
		ip, err := guessIPAddress(local, host)
		if err != nil {
			return "", fmt.Errorf("peer %q: %w", peer, err)
		}
		host = ip.String()
	}
	return net.JoinHostPort(host, port), nil
}

func isPartialIPv4(host string) bool {
	for _, o := range strings.Split(host, ".") {
		if _, err := strconv.ParseUint(o, 10, 8); err != nil {
			return false
		}
	}
	return true
}

// announceAddress is the address remote drivers should dial for l. An
// unspecified listen address is replaced by the first non-loopback IPv4
// address of the host, or loopback when there is none.
func announceAddress(l net.Listener) (string, error) {
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("listener is not TCP")
	}
	ip := tcpAddr.IP
	if ip == nil || ip.IsUnspecified() {
		ip = localIPv4()
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(tcpAddr.Port)), nil
}

func localIPv4() net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return net.IPv4(127, 0, 0, 1)
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4
		}
	}
	return net.IPv4(127, 0, 0, 1)
}
