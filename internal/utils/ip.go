package utils

import "net/netip"

// IsValidIPv4 checks if a string is a valid dotted-quad IPv4 address.
// IPv4-mapped IPv6 forms like "::ffff:203.0.113.5" are rejected; only
// four dot-separated decimal octets qualify
func IsValidIPv4(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.Is4()
}
