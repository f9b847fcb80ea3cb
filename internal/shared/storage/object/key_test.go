package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "  notes v2..final.txt ", want: "notes v2..final.txt"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\cv.docx`, want: "cv.docx"},
		{in: "bad\x00name.txt", want: "badname.txt"},
		{in: "..", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "dir/", want: "dir"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("SanitizeFileName(%q) expected ErrInvalidKey, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("SanitizeFileName(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewKeyNamespacesByOwner(t *testing.T) {
	a, err := NewKey("owner-1", "a.txt")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	b, err := NewKey("owner-1", "a.txt")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if a == b {
		t.Fatalf("expected unique keys, got %q twice", a)
	}
	prefix := OwnerPrefix("owner-1") + "/"
	if !strings.HasPrefix(a, prefix) || !strings.HasSuffix(a, "_a.txt") {
		t.Fatalf("unexpected key layout: %q", a)
	}
	if len(OwnerPrefix("owner-1")) != 64 {
		t.Fatalf("expected 64 hex characters")
	}
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "/abs/key", "../up", "a/../../b", `..\win`} {
		if _, err := CleanKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CleanKey(%q) expected ErrInvalidKey, got %v", bad, err)
		}
	}
	got, err := CleanKey("a/./b//c.txt")
	if err != nil || got != "a/b/c.txt" {
		t.Fatalf("CleanKey normalized = %q, %v", got, err)
	}
}

func TestSniffKeepsDeclaredType(t *testing.T) {
	ct, r, err := Sniff("application/pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if ct != "application/pdf" {
		t.Fatalf("expected declared type, got %q", ct)
	}
	body, _ := io.ReadAll(r)
	if string(body) != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSniffDetectsGenericType(t *testing.T) {
	ct, r, err := Sniff("application/octet-stream", strings.NewReader("plain words"))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("expected text/plain, got %q", ct)
	}
	body, _ := io.ReadAll(r)
	if string(body) != "plain words" {
		t.Fatalf("expected replayed body, got %q", body)
	}
}
