package types

import (
	"encoding/json"
	"fmt"
)

// CartProduct is one line item of a cart
type CartProduct struct {
	ID       string       `json:"id" yaml:"id"`
	Price    *float64     `json:"price" yaml:"price"`
	Quantity *float64     `json:"quantity" yaml:"quantity"`
	Custom   CustomFields `json:"custom" yaml:"custom,omitempty"`
}

// NewCartProduct is a convenience constructor for a priced line item
func NewCartProduct(id string, price, quantity float64) CartProduct {
	return CartProduct{ID: id, Price: &price, Quantity: &quantity}
}

// Cart is the shopping cart snapshot reported to the backend
type Cart struct {
	Products []CartProduct `yaml:"products"`
	OrderID  string        `yaml:"orderId,omitempty"`
	Paid     bool          `yaml:"cartPaid,omitempty"`
}

// ActiveCart creates an unpaid cart
func ActiveCart(products []CartProduct) Cart {
	return Cart{Products: products}
}

// PaidCart creates a paid cart for a completed order
func PaidCart(products []CartProduct, orderID string) Cart {
	return Cart{Products: products, OrderID: orderID, Paid: true}
}

type wireCart struct {
	Products []CartProduct `json:"products"`
	OrderID  *string       `json:"orderId"`
	Paid     bool          `json:"cartPaid"`
}

func (c Cart) MarshalJSON() ([]byte, error) {
	w := wireCart{Products: c.Products, Paid: c.Paid}
	if w.Products == nil {
		w.Products = []CartProduct{}
	}
	if c.OrderID != "" {
		orderID := c.OrderID
		w.OrderID = &orderID
	}
	return json.Marshal(w)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var w wireCart
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Products = w.Products
	c.Paid = w.Paid
	c.OrderID = ""
	if w.OrderID != nil {
		c.OrderID = *w.OrderID
	}
	return nil
}

// Canonical returns the deterministic serialized form used both for change
// detection and as the persisted cart snapshot. Two carts with equal
// products, order id and paid flag always serialize identically.
func (c Cart) Canonical() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to serialize cart: %w", err)
	}
	return string(data), nil
}
