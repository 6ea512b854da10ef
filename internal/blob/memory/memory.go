package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"billtracker/internal/blob"
)

var _ blob.Store = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	items map[string][]byte
}

func New() *Store {
	return &Store{items: make(map[string][]byte)}
}

// NewFromFiles seeds the store from <base>/<key>.json files when present,
// so a local data directory can pre-populate bills and bill types.
func NewFromFiles(base string) *Store {
	s := New()
	for _, key := range []string{blob.KeyBills, blob.KeyBillTypes} {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil || strings.TrimSpace(string(data)) == "" {
			continue
		}
		s.items[key] = data
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Close() error { return nil }
