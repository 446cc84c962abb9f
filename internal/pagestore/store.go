// Package pagestore persists raw page bodies under deterministic keys.
//
// A key is a slash-separated relative path such as
// "Computer_Vision/Image_Classification/ImageNet.html". The presence of a key is
// the only "already downloaded" signal; stored pages are never refreshed.
package pagestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotStored is returned by Get for unknown keys
var ErrNotStored = errors.New("page not stored")

// PageExt is the extension of every stored page. Keys lists nothing else,
// so logs or temp files next to the pages are never read as pages.
const PageExt = ".html"

// IsPageKey reports whether key names a stored page
func IsPageKey(key string) bool {
	return strings.EqualFold(path.Ext(key), PageExt)
}

// Store is a key to page body cache
type Store interface {
	Exists(key string) bool
	Get(key string) ([]byte, error)
	Put(key string, body []byte) error
	Keys() ([]string, error)
}

// DiskStore keeps pages as files below a root directory
type DiskStore struct {
	root string
	mu   sync.Mutex
}

// NewDiskStore creates the root directory if needed
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid page key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Exists reports whether a page is stored under key
func (s *DiskStore) Exists(key string) bool {
	p, err := s.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Get reads the page stored under key
func (s *DiskStore) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	body, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotStored, key)
	}
	return body, err
}

// Put writes body under key, creating directories as needed. The page is
// written to a temp file and renamed into place, so an interrupted write
// never leaves a truncated page that Exists would report as stored.
func (s *DiskStore) Put(key string, body []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	// Lock to prevent concurrent writers racing on the same directories
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp page: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp page: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp page: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp page: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

// Keys lists every stored page in lexical order. Files without the page
// extension are not pages and are left out.
func (s *DiskStore) Keys() ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsPageKey(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// MemoryStore is an in-memory Store. Like DiskStore it holds any key but
// lists only pages.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: make(map[string][]byte)}
}

func (m *MemoryStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pages[key]
	return ok
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.pages[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotStored, key)
	}
	return body, nil
}

func (m *MemoryStore) Put(key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[key] = append([]byte(nil), body...)
	return nil
}

func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.pages))
	for k := range m.pages {
		if IsPageKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
