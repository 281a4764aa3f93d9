package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID                  string             `json:"id"`
	StoreID             string             `json:"store_id"`
	Name                string             `json:"name"`
	Description         string             `json:"description,omitempty"`
	Category            string             `json:"category,omitempty"`
	ShippingCost        decimal.Decimal    `json:"shipping_cost"`
	DetailedDescription []DescriptionBlock `json:"detailed_description"`
	Specifications      []Specification    `json:"specifications"`
	CreatedAt           time.Time          `json:"created_at"`

	Variants []Variant `json:"variants,omitempty"`
	Images   []Image   `json:"images,omitempty"`
}

type DescriptionBlock struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Specification struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	StoreID   string          `json:"store_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
}

type Image struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type ProductInput struct {
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	Category            string             `json:"category"`
	ShippingCost        decimal.Decimal    `json:"shipping_cost"`
	DetailedDescription []DescriptionBlock `json:"detailed_description"`
	Specifications      []Specification    `json:"specifications"`
}

// VariantInput with an empty ID creates a new variant; a non-empty ID updates
// the existing one. Variants absent from the submitted set are removed.
type VariantInput struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}
