package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/connexus-ai/companion-rank/internal/apperr"
	"github.com/connexus-ai/companion-rank/internal/model"
)

// Recommender runs the Ranking Pipeline for one main product.
type Recommender interface {
	Recommend(ctx context.Context, mainID int64) ([]model.RecommendationItem, error)
}

// recommendationView is the wire shape of one row of
// GET /recommendations/{product_id}.
type recommendationView struct {
	ID                 int64       `json:"id"`
	SimilarityScore    float64     `json:"similarity_score"`
	CreatedAt          string      `json:"created_at"`
	RecommendedProduct productView `json:"recommended_product"`
}

// Recommendations handles GET /recommendations/{product_id}: the
// ranking read endpoint.
func Recommendations(rec Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "product_id")
		productID, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "product_id must be an integer"})
			return
		}

		items, err := rec.Recommend(r.Context(), productID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondJSON(w, http.StatusNotFound, errorBody{Error: "product not found"})
				return
			}
			respondJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to compute recommendations"})
			return
		}

		out := make([]recommendationView, len(items))
		for i, it := range items {
			out[i] = recommendationView{
				ID:                 it.ID,
				SimilarityScore:    it.SimilarityScore,
				CreatedAt:          it.CreatedAt.Format(httpTimeFormat),
				RecommendedProduct: newProductView(it.RecommendedProduct),
			}
		}

		respondJSON(w, http.StatusOK, out)
	}
}

const httpTimeFormat = "2006-01-02T15:04:05Z07:00"
