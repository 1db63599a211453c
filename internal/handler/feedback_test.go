package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/connexus-ai/companion-rank/internal/apperr"
)

type fakeFeedbackApplier struct {
	id  int64
	err error
}

func (f *fakeFeedbackApplier) Feedback(ctx context.Context, mainID, recID int64, isRelevant bool) (int64, error) {
	return f.id, f.err
}

func TestFeedback_OK(t *testing.T) {
	applier := &fakeFeedbackApplier{id: 7}
	h := Feedback(applier)

	body := `{"product_id":1,"recommended_product_id":2,"is_relevant":true}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"id":7`) {
		t.Errorf("expected response to carry the inserted id, got %s", w.Body.String())
	}
}

func TestFeedback_InvalidBody(t *testing.T) {
	h := Feedback(&fakeFeedbackApplier{})

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestFeedback_MissingFields(t *testing.T) {
	h := Feedback(&fakeFeedbackApplier{})

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"product_id":0,"recommended_product_id":0}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestFeedback_UnknownProductIsBadRequest(t *testing.T) {
	applier := &fakeFeedbackApplier{err: apperr.ErrInvalidInput}
	h := Feedback(applier)

	body := `{"product_id":1,"recommended_product_id":2,"is_relevant":false}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestFeedback_PartialPersistenceAcknowledgesSuccess(t *testing.T) {
	applier := &fakeFeedbackApplier{id: 9, err: apperr.ErrPersistencePartial}
	h := Feedback(applier)

	body := `{"product_id":1,"recommended_product_id":2,"is_relevant":true}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (acknowledge despite partial persistence)", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":9`) {
		t.Errorf("expected the durable id even on partial persistence, got %s", w.Body.String())
	}
}

func TestFeedback_OtherErrorIsInternalServerError(t *testing.T) {
	applier := &fakeFeedbackApplier{err: context.DeadlineExceeded}
	h := Feedback(applier)

	body := `{"product_id":1,"recommended_product_id":2,"is_relevant":true}`
	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
