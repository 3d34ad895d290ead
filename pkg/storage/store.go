package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"site-scraper/pkg/utils"
)

// Store persists named artifacts produced by a crawl. Keys are
// slash-separated relative paths, e.g. "pages/about.html".
type Store interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
}

// FSStore writes artifacts under a single root directory on disk.
type FSStore struct {
	root string
	log  *logrus.Entry
}

func NewFSStore(root string, log *logrus.Entry) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving store root %q: %v", utils.ErrStoreIO, root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating store root %q: %v", utils.ErrStoreIO, abs, err)
	}
	return &FSStore{root: abs, log: log}, nil
}

// Root returns the absolute directory the store writes into.
func (s *FSStore) Root() string {
	return s.root
}

// resolve maps a key to an absolute path, rejecting keys that would
// escape the store root.
func (s *FSStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: invalid key %q", utils.ErrStoreIO, key)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *FSStore) Put(key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: creating directory for %q: %v", utils.ErrStoreIO, key, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing %q: %v", utils.ErrStoreIO, key, err)
	}
	s.log.WithFields(logrus.Fields{"key": key, "bytes": len(data)}).Debug("Stored artifact")
	return nil
}

func (s *FSStore) Get(key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", utils.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: reading %q: %v", utils.ErrStoreIO, key, err)
	}
	return data, nil
}
