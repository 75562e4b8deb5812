package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/store"
)

var errStoreDown = errors.New("store down")

// mockStore wraps a MemoryStore and can be told to fail reads or writes.
type mockStore struct {
	m        sync.Mutex
	inner    *store.MemoryStore
	getErr   error
	setErr   error
	sets     int
	removals int
}

func newMockStore() *mockStore {
	return &mockStore{inner: store.NewMemoryStore()}
}

func (s *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.m.Lock()
	err := s.getErr
	s.m.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

func (s *mockStore) Set(ctx context.Context, key string, value []byte) error {
	s.m.Lock()
	s.sets++
	err := s.setErr
	s.m.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, value)
}

func (s *mockStore) Remove(ctx context.Context, key string) error {
	s.m.Lock()
	s.removals++
	s.m.Unlock()
	return s.inner.Remove(ctx, key)
}

func (s *mockStore) failWrites(err error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.setErr = err
}
