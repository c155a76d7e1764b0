package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps rendered reports on disk, served under BaseURL.
type FileStore struct {
	Dir     string
	BaseURL string
}

func NewFileStore(dir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &FileStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes data as name and returns its public URL.
func (s *FileStore) Save(name string, data []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", name, err)
	}
	return s.BaseURL + "/" + filepath.Base(name), nil
}

func (s *FileStore) Remove(name string) {
	_ = os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
}
