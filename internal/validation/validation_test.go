package validation

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
)

func TestNormalizeUtterance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "검사항목", "검사항목"},
		{"trim", "  소시지 \n", "소시지"},
		{"collapse inner whitespace", "상담원   \t연결", "상담원 연결"},
		{"zero width space dropped", "소\u200b시지", "소시지"},
		{"control characters dropped", "과자\x00\x07", "과자"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeUtterance(tt.input); got != tt.want {
				t.Errorf("NormalizeUtterance(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeUtterance_Caps(t *testing.T) {
	got := NormalizeUtterance(strings.Repeat("가", MaxUtteranceRunes+50))
	if n := len([]rune(got)); n != MaxUtteranceRunes {
		t.Errorf("rune length = %d, want %d", n, MaxUtteranceRunes)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"https", "https://img.example.com/a.jpg", nil},
		{"http with port", "http://example.com:8080/x.png", nil},
		{"uppercase scheme", "HTTPS://example.com", nil},
		{"empty", "", ErrURLRequired},
		{"javascript", "javascript:alert(1)", ErrURLScheme},
		{"data", "data:image/png;base64,AAAA", ErrURLScheme},
		{"file", "file:///etc/passwd", ErrURLScheme},
		{"no host", "https:///path", ErrURLHost},
		{"bad escape", "http://%zz", ErrURLFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateURL(%q) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"localhost IPv4", "127.0.0.1", true},
		{"localhost IPv6", "::1", true},
		{"10.x.x.x range", "10.0.0.1", true},
		{"172.16.x.x range", "172.16.0.1", true},
		{"192.168.x.x range", "192.168.255.255", true},
		{"link-local IPv4", "169.254.1.1", true},
		{"link-local IPv6", "fe80::1", true},
		{"AWS/GCP metadata", "169.254.169.254", true},
		{"Azure metadata", "168.63.129.16", true},
		{"unspecified IPv4", "0.0.0.0", true},
		{"unspecified IPv6", "::", true},
		{"Google DNS", "8.8.8.8", false},
		{"public IPv6", "2001:4860:4860::8888", false},
		{"172.32.x.x not private", "172.32.0.0", false},
		{"nil IP", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ip net.IP
			if tt.ip != "" {
				ip = net.ParseIP(tt.ip)
			}
			if got := IsPrivateIP(ip); got != tt.want {
				t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

type fakeResolver map[string][]string

func (f fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := f[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	var out []net.IPAddr
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out, nil
}

func TestValidatePublicURL(t *testing.T) {
	resolver := fakeResolver{
		"img.example.com":  {"203.0.113.10"},
		"internal.example": {"10.1.2.3"},
		"mixed.example":    {"203.0.113.11", "127.0.0.1"},
	}

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"public host", "https://img.example.com/label.jpg", nil},
		{"public literal", "https://203.0.113.5/label.jpg", nil},
		{"private host", "http://internal.example/x", ErrPrivateAddress},
		{"any private address blocks", "http://mixed.example/x", ErrPrivateAddress},
		{"loopback literal", "http://127.0.0.1:8080", ErrPrivateAddress},
		{"metadata literal", "http://169.254.169.254/latest/meta-data/", ErrPrivateAddress},
		{"ipv6 loopback literal", "http://[::1]/", ErrPrivateAddress},
		{"unresolvable", "https://nowhere.example/x", ErrUnresolvable},
		{"bad scheme first", "ftp://img.example.com/a", ErrURLScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePublicURL(context.Background(), resolver, tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePublicURL(%q) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
