package localStorage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStorage_SaveAndReadBack(t *testing.T) {
	s := NewTestStorage(t.TempDir())
	ctx := context.Background()

	path, err := s.Save(ctx, "tenant-1", "menu (final).pdf", []byte("pdf bytes"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(path, "tenant-1/") {
		t.Errorf("storage path not tenant-scoped: %s", path)
	}
	if strings.Contains(path, " ") || strings.Contains(path, "(") {
		t.Errorf("file name not sanitized: %s", path)
	}

	data, err := s.ReadBytes(ctx, path)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Errorf("roundtrip mismatch: %q", data)
	}

	if err := s.Delete(ctx, path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.ReadBytes(ctx, path); err == nil {
		t.Error("file survived delete")
	}
}

func TestStorage_RejectsEscapingPaths(t *testing.T) {
	s := NewTestStorage(t.TempDir())
	ctx := context.Background()

	for _, path := range []string{"../outside.pdf", "tenant-1/../../etc/passwd", "/etc/passwd", "."} {
		if _, err := s.Resolve(ctx, path); !errors.Is(err, ErrBadStoragePath) {
			t.Errorf("Resolve(%q) err = %v, want ErrBadStoragePath", path, err)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"menu.pdf", "menu.pdf"},
		{"menu (final).pdf", "menu__final_.pdf"},
		{"../../evil.sh", "evil.sh"},
		{"...", ""},
	}
	for _, tc := range tests {
		if got := sanitizeFileName(tc.in); got != tc.want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
