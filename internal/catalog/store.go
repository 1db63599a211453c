// Package catalog holds the in-memory product snapshot the ranking
// engine reads on every request.
package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// Loader fetches the full product table. Implemented by a repository
// backed by Postgres in production, by a fixture in tests.
type Loader interface {
	LoadAll(ctx context.Context) ([]model.Product, error)
}

type snapshot struct {
	byID        map[int64]model.Product
	mains       []model.Product
	accessories []model.Product
}

// Store is a read-mostly snapshot of the product catalog. Reads never
// block: they dereference an atomic pointer to the current snapshot.
// reload() builds a brand new snapshot and swaps the pointer, so a
// reader that started before a reload observes either the old or the
// new snapshot in full, never a mix.
type Store struct {
	loader Loader
	ptr    atomic.Pointer[snapshot]
}

// New creates a Store and performs the initial load. Failure here is
// fatal: callers should refuse to start serving.
func New(ctx context.Context, loader Loader) (*Store, error) {
	s := &Store{loader: loader}
	if err := s.Reload(ctx); err != nil {
		return nil, fmt.Errorf("catalog.New: initial load: %w", err)
	}
	return s, nil
}

// Reload replaces the snapshot atomically. A failed reload leaves the
// previous snapshot intact.
func (s *Store) Reload(ctx context.Context) error {
	products, err := s.loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("catalog.Reload: %w", err)
	}

	next := &snapshot{
		byID: make(map[int64]model.Product, len(products)),
	}
	for _, p := range products {
		next.byID[p.ID] = p
		switch p.Role {
		case model.RoleMain:
			next.mains = append(next.mains, p)
		case model.RoleAccessory:
			next.accessories = append(next.accessories, p)
		}
	}

	s.ptr.Store(next)
	return nil
}

// Get returns the product with the given id, if present in the
// current snapshot.
func (s *Store) Get(id int64) (model.Product, bool) {
	snap := s.ptr.Load()
	p, ok := snap.byID[id]
	return p, ok
}

// All returns every product in the current snapshot.
func (s *Store) All() []model.Product {
	snap := s.ptr.Load()
	out := make([]model.Product, 0, len(snap.byID))
	for _, p := range snap.byID {
		out = append(out, p)
	}
	return out
}

// Mains returns every product with role=main in the current snapshot.
func (s *Store) Mains() []model.Product {
	snap := s.ptr.Load()
	out := make([]model.Product, len(snap.mains))
	copy(out, snap.mains)
	return out
}

// Accessories returns every product with role=accessory in the
// current snapshot.
func (s *Store) Accessories() []model.Product {
	snap := s.ptr.Load()
	out := make([]model.Product, len(snap.accessories))
	copy(out, snap.accessories)
	return out
}
