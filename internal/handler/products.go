package handler

import (
	"net/http"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// MainProductLister returns every catalog product with role=main.
type MainProductLister interface {
	Mains() []model.Product
}

// MainProducts handles GET /main-products: the catalog listing used to
// populate the picker UI.
func MainProducts(lister MainProductLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, newProductViews(lister.Mains()))
	}
}
