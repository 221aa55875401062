package gatekeeper

import (
	"errors"
	"fmt"
	"testing"
)

func TestCheck(t *testing.T) {
	g := New([]string{"*.example-store.rs", "cdn.planeta-sport.rs", " "})

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"subdomain of wildcard", "https://shop.example-store.rs/img/1.jpg", nil},
		{"apex of wildcard", "https://example-store.rs/1.jpg", nil},
		{"deep subdomain", "http://a.b.example-store.rs/1.jpg", nil},
		{"exact entry", "https://CDN.planeta-sport.rs/x.png", nil},
		{"subdomain of exact entry", "https://img.cdn.planeta-sport.rs/x.png", nil},
		{"evil host", "https://evil.com/x.jpg", ErrHostNotAllowed},
		{"evil host with allowed query", "https://evil.com/x.jpg?u=shop.example-store.rs", ErrHostNotAllowed},
		{"suffix without dot boundary", "https://evilexample-store.rs/x.jpg", ErrHostNotAllowed},
		{"allowed name as subdomain of evil", "https://shop.example-store.rs.evil.com/x", ErrHostNotAllowed},
		{"ftp scheme", "ftp://shop.example-store.rs/x", ErrSchemeNotAllowed},
		{"no host", "/relative.jpg", ErrInvalidURL},
		{"userinfo", "https://user@shop.example-store.rs/x", ErrInvalidURL},
		{"ip literal", "http://127.0.0.1/x", ErrHostNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Check(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Check(%q) err = %v, want %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestAllowHost_EmptyList(t *testing.T) {
	if New(nil).AllowHost("anything.rs") {
		t.Fatalf("empty allow-list must reject")
	}
}

func TestIsBlocked_SeesWrappedErrors(t *testing.T) {
	g := New([]string{"shop.rs"})
	_, err := g.Check("https://evil.com/x.png")
	if !IsBlocked(fmt.Errorf("redirect to evil.com: %w", err)) {
		t.Fatalf("expected wrapped gate error to be recognised")
	}
	if IsBlocked(errors.New("connection reset")) || IsBlocked(nil) {
		t.Fatalf("expected unrelated errors not to count as blocked")
	}
}
