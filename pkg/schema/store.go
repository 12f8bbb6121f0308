package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Extension is the canonical file suffix for form documents.
const Extension = ".iform"

// Store persists .iform payloads by name.
type Store interface {
	Read(ctx context.Context, name string) (Document, error)
	Write(ctx context.Context, name string, data []byte) error
	// Backup copies the current payload aside and returns the backup
	// location, or "" when there was nothing to back up.
	Backup(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]string, error)
}

// FileStore keeps documents as <dir>/<name>.iform with backups under
// <dir>/.backups.
type FileStore struct {
	dir string
	now func() time.Time
}

// FileStoreOption customises a FileStore.
type FileStoreOption func(*FileStore)

// WithClock overrides the clock used to stamp backups.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	store := &FileStore{dir: filepath.Clean(dir), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), Extension)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("schema: invalid document name %q", name)
	}
	return filepath.Join(s.dir, name+Extension), nil
}

// Read loads the named document.
func (s *FileStore) Read(ctx context.Context, name string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	path, err := s.path(name)
	if err != nil {
		return Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Document{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return NewDocument(SourceFromFile(path), data)
}

// Write replaces the named document atomically.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("schema: create %s: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-*"+Extension)
	if err != nil {
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schema: write %s: %w", path, err)
	}
	return nil
}

// Backup copies the current document to .backups/<name>.<timestamp>.iform.
func (s *FileStore) Backup(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("schema: backup %s: %w", path, err)
	}
	backupDir := filepath.Join(s.dir, ".backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("schema: backup %s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), Extension)
	stamp := s.now().UTC().Format("20060102T150405.000000000")
	target := filepath.Join(backupDir, base+"."+stamp+Extension)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("schema: backup %s: %w", path, err)
	}
	return target, nil
}

// List returns document names without extension, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("schema: list %s: %w", s.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if filepath.Ext(entry.Name()) != Extension {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), Extension))
	}
	sort.Strings(names)
	return names, nil
}

// MemoryStore is an in-memory Store for tests and previews.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	backups map[string][][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte), backups: make(map[string][][]byte)}
}

func (m *MemoryStore) Read(_ context.Context, name string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return NewDocument(SourceFromStore(name), data)
}

func (m *MemoryStore) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Backup(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return "", nil
	}
	m.backups[name] = append(m.backups[name], append([]byte(nil), data...))
	return fmt.Sprintf("%s#%d", name, len(m.backups[name])), nil
}

func (m *MemoryStore) List(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.docs), nil
}

// Backups returns the backed up payloads for name, oldest first.
func (m *MemoryStore) Backups(name string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.backups[name]...)
}
