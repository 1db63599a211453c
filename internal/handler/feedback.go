package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/connexus-ai/companion-rank/internal/apperr"
)

// FeedbackApplier applies one relevance judgment to the bandit state
// and persists it.
type FeedbackApplier interface {
	Feedback(ctx context.Context, mainID, recID int64, isRelevant bool) (int64, error)
}

// feedbackRequest is the request body of POST /feedback.
type feedbackRequest struct {
	ProductID            int64 `json:"product_id"`
	RecommendedProductID int64 `json:"recommended_product_id"`
	IsRelevant           bool  `json:"is_relevant"`
}

// feedbackResponse echoes the request with a server-assigned id.
type feedbackResponse struct {
	ID                   int64 `json:"id"`
	ProductID            int64 `json:"product_id"`
	RecommendedProductID int64 `json:"recommended_product_id"`
	IsRelevant           bool  `json:"is_relevant"`
}

// Feedback handles POST /feedback: the write endpoint that drives
// online learning.
func Feedback(applier FeedbackApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req feedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
			return
		}
		if req.ProductID <= 0 || req.RecommendedProductID <= 0 {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "product_id and recommended_product_id are required"})
			return
		}

		id, err := applier.Feedback(r.Context(), req.ProductID, req.RecommendedProductID, req.IsRelevant)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidInput) {
				respondJSON(w, http.StatusBadRequest, errorBody{Error: "unknown product_id or recommended_product_id"})
				return
			}
			if errors.Is(err, apperr.ErrPersistencePartial) {
				// The feedback row is durable; only the arm upsert
				// failed. Acknowledge success: the arm can always be
				// rebuilt from feedback history on the next reload.
				respondJSON(w, http.StatusOK, feedbackResponse{
					ID:                   id,
					ProductID:            req.ProductID,
					RecommendedProductID: req.RecommendedProductID,
					IsRelevant:           req.IsRelevant,
				})
				return
			}
			respondJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to record feedback"})
			return
		}

		respondJSON(w, http.StatusOK, feedbackResponse{
			ID:                   id,
			ProductID:            req.ProductID,
			RecommendedProductID: req.RecommendedProductID,
			IsRelevant:           req.IsRelevant,
		})
	}
}
