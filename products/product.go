package products

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Product is the inventory entity as the backend returns it. IDs are assigned
// by the backend on creation; the client never fabricates one.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

// Validate checks an existing product before it is sent back on update.
func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Category, validation.Required),
		validation.Field(&p.Price, validation.Min(0.0)),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

// ProductRequest is the mutable subset of Product submitted on create.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Stock       int     `json:"stock"`
}

// Validate checks a create payload before it leaves the client.
func (r ProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Stock, validation.Min(0)),
	)
}

// DeleteResult is the backend's acknowledgement of a delete.
type DeleteResult struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// ClassifyRequest is the payload for the classification backend.
type ClassifyRequest struct {
	ProductIDs []int64 `json:"productIds"`
}

// ByCategory returns the items whose Category equals category. It is a pure
// projection; the input slice is not modified.
func ByCategory(items []Product, category string) []Product {
	var out []Product
	for _, p := range items {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
