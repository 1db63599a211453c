package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// ProductRepository reads the product catalog from Postgres. It
// implements catalog.Loader.
type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// LoadAll fetches every product row. Called once at startup and on
// every catalog.Store.Reload.
func (r *ProductRepository) LoadAll(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, price, category_name, category_id, type, vendor,
		       parent_id, parent_name, url, picture_url, description,
		       weight_kg, shipping_weight_kg, volume_l, length_mm, key_params,
		       embedding, created_at
		FROM products
	`)
	if err != nil {
		return nil, fmt.Errorf("repository.LoadAll: query: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.LoadAll: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.LoadAll: rows: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (model.Product, error) {
	var (
		p           model.Product
		role        string
		categoryID  *string
		typ         *string
		vendor      *string
		parentID    *string
		parentName  *string
		url         *string
		pictureURL  *string
		description *string
		keyParams   []byte
		embedding   *pgvector.Vector
	)

	if err := row.Scan(
		&p.ID, &p.Name, &role, &p.Price, &p.CategoryName, &categoryID, &typ, &vendor,
		&parentID, &parentName, &url, &pictureURL, &description,
		&p.WeightKg, &p.ShippingKg, &p.VolumeL, &p.LengthMm, &keyParams,
		&embedding, &p.CreatedAt,
	); err != nil {
		return model.Product{}, err
	}

	p.Role = model.Role(role)
	p.CategoryID = derefStr(categoryID)
	p.Type = derefStr(typ)
	p.Vendor = derefStr(vendor)
	p.ParentID = derefStr(parentID)
	p.ParentName = derefStr(parentName)
	p.URL = derefStr(url)
	p.PictureURL = derefStr(pictureURL)
	p.Description = derefStr(description)

	if len(keyParams) > 0 {
		var kp map[string]string
		if err := json.Unmarshal(keyParams, &kp); err == nil {
			p.KeyParams = kp
		}
	}
	if embedding != nil {
		p.Embedding = embedding.Slice()
	}

	return p, nil
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Get fetches a single product by id directly from Postgres, bypassing
// the in-memory catalog snapshot.
func (r *ProductRepository) Get(ctx context.Context, id int64) (model.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, role, price, category_name, category_id, type, vendor,
		       parent_id, parent_name, url, picture_url, description,
		       weight_kg, shipping_weight_kg, volume_l, length_mm, key_params,
		       embedding, created_at
		FROM products WHERE id = $1
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Product{}, fmt.Errorf("repository.Get: product %d not found: %w", id, err)
		}
		return model.Product{}, fmt.Errorf("repository.Get: %w", err)
	}
	return p, nil
}
