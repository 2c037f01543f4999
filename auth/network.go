package auth

import (
	"fmt"
	"net"
	"net/netip"

	"go4.org/netipx"

	"go.hackfix.me/strata/view"
)

// ParseIPSet parses one or more IP address strings in plain, CIDR or range
// notation, and returns an IP set containing IP ranges.
func ParseIPSet(ipAddr ...string) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, ip := range ipAddr {
		if addr, err := netip.ParseAddr(ip); err == nil {
			b.AddRange(netipx.IPRangeFrom(addr, addr))
			continue
		}
		if prefix, err := netip.ParsePrefix(ip); err == nil {
			b.AddRange(netipx.RangeOfPrefix(prefix))
			continue
		}
		ipRange, err := netipx.ParseIPRange(ip)
		if err != nil {
			return nil, fmt.Errorf("failed parsing IP address '%s': %w", ip, err)
		}
		b.AddRange(ipRange)
	}

	ipSet, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("failed building IP set: %w", err)
	}

	return ipSet, nil
}

// FromNetworks returns a rule that is true for requests whose remote address
// is in set. IPv4-mapped IPv6 addresses are matched as IPv4.
func FromNetworks(set *netipx.IPSet) Rule {
	return func(c *view.Context) bool {
		addr, ok := RemoteAddr(c)
		return ok && set.Contains(addr)
	}
}

// RemoteAddr returns the IP address of the client that sent the request.
func RemoteAddr(c *view.Context) (netip.Addr, bool) {
	r := c.Request()
	if r == nil {
		return netip.Addr{}, false
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}

	return addr.Unmap(), true
}
