package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskpilot/internal/api"
)

// FileAPI is the backend surface file retrieval needs.
type FileAPI interface {
	FileContent(ctx context.Context, signedURL string) (string, error)
}

// FileService fetches and saves session artifacts. Text files are read
// through the backend (which dereferences the signed URL); binary files
// are streamed straight from the signed URL into the download dir.
type FileService struct {
	backend     FileAPI
	httpClient  *http.Client
	downloadDir string
	logger      *Logger
}

func NewFileService(backend FileAPI, downloadDir string, logger *Logger) *FileService {
	return &FileService{
		backend:     backend,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// Previewable reports whether the file renders as text in the client.
func Previewable(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// Content returns the text content of a previewable file.
func (f *FileService) Content(ctx context.Context, file api.SessionFile) (string, error) {
	if !Previewable(file.Filename) {
		return "", fmt.Errorf("%s cannot be previewed, download it instead", file.Filename)
	}
	return f.backend.FileContent(ctx, file.SignedURL)
}

// Download streams the file to the download dir and returns the local
// path. The filename is flattened so a crafted path cannot escape the dir.
func (f *FileService) Download(ctx context.Context, file api.SessionFile) (string, error) {
	if file.SignedURL == "" {
		return "", fmt.Errorf("file %s has no signed url", file.Filename)
	}
	if err := os.MkdirAll(f.downloadDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(f.downloadDir, sanitizeFilename(file.Filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.SignedURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	f.logger.Info("file downloaded", map[string]interface{}{"path": dest})
	return dest, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "download"
	}
	return name
}
