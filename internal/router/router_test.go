package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/connexus-ai/companion-rank/internal/apperr"
	"github.com/connexus-ai/companion-rank/internal/model"
)

type fakeRecommender struct {
	items []model.RecommendationItem
	err   error
}

func (f *fakeRecommender) Recommend(ctx context.Context, mainID int64) ([]model.RecommendationItem, error) {
	return f.items, f.err
}

type fakeFeedbackApplier struct {
	id  int64
	err error
}

func (f *fakeFeedbackApplier) Feedback(ctx context.Context, mainID, recID int64, isRelevant bool) (int64, error) {
	return f.id, f.err
}

type fakeMainLister struct {
	products []model.Product
}

func (f *fakeMainLister) Mains() []model.Product {
	return f.products
}

type fakeDB struct {
	err error
}

func (f *fakeDB) Ping(ctx context.Context) error {
	return f.err
}

func testDeps() *Dependencies {
	return &Dependencies{
		DB:          &fakeDB{},
		Version:     "test",
		FrontendURL: "*",
		Recommender: &fakeRecommender{},
		Feedback:    &fakeFeedbackApplier{},
		MainLister:  &fakeMainLister{},
	}
}

func TestHealthzRoute(t *testing.T) {
	r := New(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRecommendationsRoute(t *testing.T) {
	deps := testDeps()
	deps.Recommender = &fakeRecommender{items: []model.RecommendationItem{{ID: 1}}}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/recommendations/42", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestRecommendationsRouteNotFound(t *testing.T) {
	deps := testDeps()
	deps.Recommender = &fakeRecommender{err: apperr.ErrNotFound}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/recommendations/999", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFeedbackRoute(t *testing.T) {
	r := New(testDeps())

	body := `{"product_id":1,"recommended_product_id":2,"is_relevant":true}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestMainProductsRoute(t *testing.T) {
	deps := testDeps()
	deps.MainLister = &fakeMainLister{products: []model.Product{{ID: 1, Role: model.RoleMain}}}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/main-products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestNotFoundRoute(t *testing.T) {
	r := New(testDeps())

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
