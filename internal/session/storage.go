package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage persists small string values across embeddings, playing the role
// the browser's localStorage plays for the hosted widget. Implementations
// must be safe for concurrent use.
type Storage interface {
	// Get returns the stored value for key. found is false when the key has
	// never been set or has been removed.
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// FileStorage keeps one file per key under a base directory.
type FileStorage struct {
	baseDir string
}

// NewFileStorage expands a leading ~/ against the user's home directory and
// creates the base directory if needed.
func NewFileStorage(baseDir string) *FileStorage {
	if strings.HasPrefix(baseDir, "~/") {
		home, _ := os.UserHomeDir()
		baseDir = filepath.Join(home, baseDir[2:])
	}
	_ = os.MkdirAll(baseDir, 0755) // Ignore error - directory may already exist
	return &FileStorage{baseDir: baseDir}
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.baseDir, key+".json")
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileStorage) Set(key, value string) error {
	return os.WriteFile(f.path(key), []byte(value), 0644)
}

func (f *FileStorage) Remove(key string) error {
	err := os.Remove(f.path(key))
	// Ignore error if file doesn't exist - removal goal achieved
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemStorage is an in-memory Storage for tests and ephemeral embeddings.
type MemStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStorage() *MemStorage {
	return &MemStorage{values: make(map[string]string)}
}

func (m *MemStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, found := m.values[key]
	return value, found, nil
}

func (m *MemStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
