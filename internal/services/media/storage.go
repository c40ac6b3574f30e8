// File: internal/services/media/storage.go
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage persists generated scene images and resolves their public URLs.
type Storage interface {
	// SaveImage writes the image bytes. It returns the stored filename
	// and the public URL the file is served under.
	SaveImage(data []byte) (filename string, url string, err error)
	// DeleteImage removes a stored file by its public URL. Deleting an
	// already-absent file is not an error.
	DeleteImage(url string) error
}

// LocalStorage writes images to a directory on local disk.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images directory %s: %w", dir, err)
	}
	return &LocalStorage{
		dir:       dir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

func (s *LocalStorage) SaveImage(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("image data is empty")
	}

	filename := uuid.NewString() + ".png"
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write image file: %w", err)
	}
	return filename, s.urlPrefix + "/" + filename, nil
}

func (s *LocalStorage) DeleteImage(url string) error {
	filename := filepath.Base(url)
	// Reject anything that does not look like a file we wrote.
	if filename == "." || filename == "/" || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid image URL %q", url)
	}

	path := filepath.Join(s.dir, filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
