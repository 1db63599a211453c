package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/connexus-ai/companion-rank/internal/model"
)

type fakeLoader struct {
	mu       sync.Mutex
	products []model.Product
	err      error
	calls    int
}

func (f *fakeLoader) LoadAll(ctx context.Context) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func TestStore_GetAndRoleViews(t *testing.T) {
	loader := &fakeLoader{products: []model.Product{
		{ID: 1, Role: model.RoleMain, Name: "Drill"},
		{ID: 2, Role: model.RoleAccessory, Name: "Drill bit"},
		{ID: 3, Role: model.RoleAccessory, Name: "Battery"},
	}}

	s, err := New(context.Background(), loader)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, ok := s.Get(1); !ok {
		t.Fatal("expected product 1 to be present")
	}
	if _, ok := s.Get(999); ok {
		t.Fatal("expected product 999 to be absent")
	}
	if len(s.Mains()) != 1 {
		t.Errorf("Mains() len = %d, want 1", len(s.Mains()))
	}
	if len(s.Accessories()) != 2 {
		t.Errorf("Accessories() len = %d, want 2", len(s.Accessories()))
	}
	if len(s.All()) != 3 {
		t.Errorf("All() len = %d, want 3", len(s.All()))
	}
}

func TestNew_InitialLoadFailureIsFatal(t *testing.T) {
	loader := &fakeLoader{err: errors.New("db unreachable")}
	_, err := New(context.Background(), loader)
	if err == nil {
		t.Fatal("expected error when initial load fails")
	}
}

func TestReload_FailurePreservesPreviousSnapshot(t *testing.T) {
	loader := &fakeLoader{products: []model.Product{
		{ID: 1, Role: model.RoleMain},
	}}
	s, err := New(context.Background(), loader)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	loader.err = errors.New("transient failure")
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("expected Reload to return an error")
	}

	if _, ok := s.Get(1); !ok {
		t.Fatal("expected previous snapshot to survive a failed reload")
	}
}

func TestReload_ReplacesSnapshot(t *testing.T) {
	loader := &fakeLoader{products: []model.Product{
		{ID: 1, Role: model.RoleMain},
	}}
	s, err := New(context.Background(), loader)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	loader.products = []model.Product{
		{ID: 2, Role: model.RoleMain},
	}
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	if _, ok := s.Get(1); ok {
		t.Fatal("expected product 1 to be gone after reload")
	}
	if _, ok := s.Get(2); !ok {
		t.Fatal("expected product 2 to be present after reload")
	}
}
