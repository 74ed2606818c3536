package validation

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"unicode"
)

// MaxUtteranceRunes bounds how much of an utterance is kept.
const MaxUtteranceRunes = 100

// URL validation errors.
var (
	ErrURLRequired    = errors.New("URL is required")
	ErrURLFormat      = errors.New("invalid URL format")
	ErrURLScheme      = errors.New("URL must use http:// or https:// scheme")
	ErrURLHost        = errors.New("URL must have a valid host")
	ErrUnresolvable   = errors.New("cannot resolve hostname")
	ErrPrivateAddress = errors.New("URL points to a private or reserved IP address")
)

// NormalizeUtterance trims an utterance, drops invisible characters, collapses
// runs of whitespace to one space and caps the length.
func NormalizeUtterance(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	pendingSpace := false
	for _, r := range s {
		if n >= MaxUtteranceRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.Is(unicode.Cf, r) || !unicode.IsPrint(r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			n++
			pendingSpace = false
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// ValidateURL checks that a URL parses, uses http or https and names a host.
// This rejects javascript:, data:, file: and other schemes.
func ValidateURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrURLRequired
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrURLFormat
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrURLScheme
	}
	if u.Hostname() == "" {
		return nil, ErrURLHost
	}
	return u, nil
}

// metadataAddrs are cloud instance metadata endpoints (AWS/GCP and Azure).
var metadataAddrs = []netip.Addr{
	netip.MustParseAddr("169.254.169.254"),
	netip.MustParseAddr("168.63.129.16"),
}

// IsPrivateIP checks if an IP address is in a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return false
	}
	addr = addr.Unmap()
	for _, m := range metadataAddrs {
		if addr == m {
			return true
		}
	}
	return false
}

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ValidatePublicURL validates raw and rejects hosts that resolve to private
// or reserved addresses. A nil resolver uses net.DefaultResolver.
func ValidatePublicURL(ctx context.Context, resolver Resolver, raw string) (*url.URL, error) {
	u, err := ValidateURL(raw)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return nil, ErrPrivateAddress
		}
		return u, nil
	}

	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return nil, ErrUnresolvable
	}
	for _, a := range addrs {
		if IsPrivateIP(a.IP) {
			return nil, ErrPrivateAddress
		}
	}
	return u, nil
}
