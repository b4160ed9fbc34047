package util

import (
	"net/http"
	"net/url"
	"testing"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), rawURL string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	u, err := fn(req)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3128", "internal.local")

	tests := []struct {
		url  string
		want string
	}{
		{"http://comps.example.org/api", "http://proxy.local:3128"},
		{"https://comps.example.org/api", "http://secure.local:3128"},
		{"https://internal.local/api", ""},
	}
	for _, tt := range tests {
		if got := proxyFor(t, fn, tt.url); got != tt.want {
			t.Errorf("proxy for %s = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTP(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "", "")
	if got := proxyFor(t, fn, "https://comps.example.org"); got != "http://proxy.local:3128" {
		t.Errorf("expected HTTP proxy for https request, got %q", got)
	}
}
