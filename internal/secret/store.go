package secret

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// Store is the injectable secret/config channel shared by the broker and
// the command executor. Write-once-then-read; no rollback.
type Store interface {
	// Get returns the current value for key, if present and non-empty.
	Get(key string) (string, bool)
	// Set persists the value so subsequent subprocesses can see it.
	Set(key, value string) error
}

// EnvFileStore is the production store: values live in the process
// environment (inherited by shell subprocesses) and are appended to a .env
// file in the workspace so they persist across runs. The value never goes
// anywhere else.
type EnvFileStore struct {
	fs      afero.Fs
	envPath string
}

// NewEnvFileStore creates a store appending to envPath (typically
// <workspace>/.env).
func NewEnvFileStore(fs afero.Fs, envPath string) *EnvFileStore {
	return &EnvFileStore{fs: fs, envPath: envPath}
}

func (s *EnvFileStore) Get(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *EnvFileStore) Set(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set %s in environment: %w", key, err)
	}

	f, err := s.fs.OpenFile(s.envPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		// Non-fatal: the process env already carries the value.
		return nil
	}
	defer f.Close()
	_, _ = fmt.Fprintf(f, "\n%s=%s\n", key, value)
	return nil
}

// MemStore is an in-memory store for tests; it never touches the real
// environment.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: map[string]string{}}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Keys lists stored key names, sorted. Values stay private to the store.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
