package handler

import "github.com/connexus-ai/companion-rank/internal/model"

// productView is the wire shape of a product. The domain model
// (internal/model.Product) stays free of JSON tags and transport
// concerns; this is the one place that maps it onto the public
// contract.
type productView struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Price        *float64 `json:"price"`
	CategoryID   string   `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Vendor       string   `json:"vendor"`
	PictureURL   string   `json:"picture_url"`
	ProductRole  string   `json:"product_role"`
	Type         string   `json:"type"`
	URL          string   `json:"url"`
	Description  string   `json:"description"`

	// ParentID, ParentName, and the physical-attribute fields below
	// are surfaced for display; the ranking math never reads them.
	ParentID   string            `json:"parent_id,omitempty"`
	ParentName string            `json:"parent_name,omitempty"`
	WeightKg   *float64          `json:"weight_kg,omitempty"`
	ShippingKg *float64          `json:"shipping_weight_kg,omitempty"`
	VolumeL    *float64          `json:"volume_l,omitempty"`
	LengthMm   *float64          `json:"length_mm,omitempty"`
	KeyParams  map[string]string `json:"key_params,omitempty"`
}

func newProductView(p model.Product) productView {
	return productView{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Vendor:       p.Vendor,
		PictureURL:   p.PictureURL,
		ProductRole:  string(p.Role),
		Type:         p.Type,
		URL:          p.URL,
		Description:  p.Description,
		ParentID:     p.ParentID,
		ParentName:   p.ParentName,
		WeightKg:     p.WeightKg,
		ShippingKg:   p.ShippingKg,
		VolumeL:      p.VolumeL,
		LengthMm:     p.LengthMm,
		KeyParams:    p.KeyParams,
	}
}

func newProductViews(products []model.Product) []productView {
	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = newProductView(p)
	}
	return out
}
