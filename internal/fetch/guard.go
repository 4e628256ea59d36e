package fetch

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHostnames are rejected outright, before any DNS lookup.
var blockedHostnames = map[string]bool{
	"localhost":                true,
	"metadata":                 true,
	"metadata.google.internal": true,
	"instance-data":            true,
}

// LookupIPFunc resolves a hostname to its addresses. Swappable in tests.
type LookupIPFunc func(ctx context.Context, host string) ([]net.IP, error)

func defaultLookupIP(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// ValidateURL enforces the fetch policy on one URL. It is called on the initial
// URL and again on every redirect target, so the policy cannot be skipped by
// bouncing through an allowed host.
func ValidateURL(ctx context.Context, raw string, lookup LookupIPFunc) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable url", ErrURLNotAllowed)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrURLNotAllowed, u.Scheme)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: embedded credentials", ErrURLNotAllowed)
	}
	if port := u.Port(); port != "" && port != "443" {
		return nil, fmt.Errorf("%w: non-default port %s", ErrURLNotAllowed, port)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrURLNotAllowed)
	}
	if blockedHostnames[host] || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return nil, fmt.Errorf("%w: blocked hostname %s", ErrURLNotAllowed, host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isDisallowedIP(ip) {
			return nil, fmt.Errorf("%w: disallowed address %s", ErrURLNotAllowed, ip)
		}
		return u, nil
	}

	if lookup == nil {
		lookup = defaultLookupIP
	}
	ips, err := lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", ErrFetchFailed, host, err)
	}
	// Reject if ANY resolved address is internal. A name resolving to a mix of
	// public and private addresses is how DNS rebinding reaches internal targets.
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return nil, fmt.Errorf("%w: %s resolves to disallowed address %s", ErrURLNotAllowed, host, ip)
		}
	}
	return u, nil
}

func isDisallowedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}
	if ip.IsUnspecified() {
		return true
	}
	// IPv4-mapped IPv6 addresses (::ffff:10.0.0.1) unwrap via To4 above the
	// stdlib checks, but cover ULA fc00::/7 explicitly.
	if v6 := ip.To16(); v6 != nil && ip.To4() == nil {
		if v6[0]&0xfe == 0xfc {
			return true
		}
	}
	return false
}
