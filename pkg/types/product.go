package types

import (
	"encoding/json"
	"fmt"
)

// WishlistProduct is one entry of the wishlist
type WishlistProduct struct {
	ID     string       `json:"id" yaml:"id"`
	Custom CustomFields `json:"custom" yaml:"custom,omitempty"`
}

// Canonical returns the deterministic serialized form of the product
func (w WishlistProduct) Canonical() (string, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("failed to serialize wishlist product %s: %w", w.ID, err)
	}
	return string(data), nil
}

// CanonicalWishlist serializes every product in order, keeping duplicates
func CanonicalWishlist(products []WishlistProduct) ([]string, error) {
	out := make([]string, 0, len(products))
	for _, p := range products {
		s, err := p.Canonical()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ViewedProduct is the product shown on a product detail screen
type ViewedProduct struct {
	ID     string       `json:"id"`
	Custom CustomFields `json:"custom"`
}
