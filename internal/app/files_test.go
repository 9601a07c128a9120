package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskpilot/internal/api"
)

type fakeFileBackend struct{ content string }

func (f *fakeFileBackend) FileContent(ctx context.Context, signedURL string) (string, error) {
	return f.content, nil
}

func TestPreviewable(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.md", true},
		{"notes.TXT", true},
		{"archive.zip", false},
		{"photo.png", false},
		{"noext", false},
	}
	for _, tc := range tests {
		if got := Previewable(tc.name); got != tc.want {
			t.Fatalf("Previewable(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestContentRefusesBinaryFiles(t *testing.T) {
	svc := NewFileService(&fakeFileBackend{}, t.TempDir(), NewLogger(io.Discard))
	_, err := svc.Content(context.Background(), api.SessionFile{Filename: "archive.zip", SignedURL: "https://x"})
	if err == nil {
		t.Fatalf("binary preview must be refused")
	}
}

func TestDownloadStreamsToDisk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "file payload")
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := NewFileService(&fakeFileBackend{}, dir, NewLogger(io.Discard))

	path, err := svc.Download(context.Background(), api.SessionFile{
		Filename:  "../../escape.txt",
		SignedURL: srv.URL + "/artifact",
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("download escaped the dir: %s", path)
	}
	if !strings.HasSuffix(path, "escape.txt") {
		t.Fatalf("unexpected name: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "file payload" {
		t.Fatalf("content = %q, %v", data, err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.md", "report.md"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\path.txt`, "path.txt"},
		{".hidden", "hidden"},
		{"", "download"},
	}
	for _, tc := range tests {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
