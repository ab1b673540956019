package client

import (
	"github.com/releva-ai/releva-go/pkg/tracking"
	"github.com/releva-ai/releva-go/pkg/types"
)

// ScreenView is the context of a generic screen
type ScreenView struct {
	PageURL     string
	ScreenToken string
	ProductIDs  []string
	Categories  []string
	Filter      types.Filter
	Locale      string
	Currency    string
}

func (v ScreenView) request(events []types.CustomEvent) tracking.Request {
	return tracking.Request{
		PageURL:     v.PageURL,
		ScreenToken: v.ScreenToken,
		ProductIDs:  v.ProductIDs,
		Categories:  v.Categories,
		Filter:      v.Filter,
		Locale:      v.Locale,
		Currency:    v.Currency,
		Events:      events,
	}
}

// ProductView is the context of a product detail screen
type ProductView struct {
	PageURL     string
	ProductID   string
	ScreenToken string
	// CustomFields uses the loose map form accepted by types.CustomFieldsFromMap
	CustomFields map[string]interface{}
	Categories   []string
	Locale       string
	Currency     string
}

func (v ProductView) request() tracking.Request {
	product := types.ViewedProduct{ID: v.ProductID}
	if v.CustomFields != nil {
		product.Custom = types.CustomFieldsFromMap(v.CustomFields)
	}
	return tracking.Request{
		PageURL:     v.PageURL,
		ScreenToken: v.ScreenToken,
		Categories:  v.Categories,
		Locale:      v.Locale,
		Currency:    v.Currency,
		Product:     &product,
	}
}

// SearchView is the context of a search results screen
type SearchView struct {
	PageURL          string
	Query            string
	ScreenToken      string
	ResultProductIDs []string
	Filter           types.Filter
	Locale           string
	Currency         string
}

func (v SearchView) request() tracking.Request {
	return tracking.Request{
		PageURL:     v.PageURL,
		ScreenToken: v.ScreenToken,
		ProductIDs:  v.ResultProductIDs,
		Query:       v.Query,
		Filter:      v.Filter,
		Locale:      v.Locale,
		Currency:    v.Currency,
	}
}

// Checkout is the context of an order confirmation screen
type Checkout struct {
	PageURL     string
	OrderedCart types.Cart
	ScreenToken string
	Locale      string
	Currency    string
}

func (v Checkout) request() tracking.Request {
	cart := v.OrderedCart
	return tracking.Request{
		PageURL:     v.PageURL,
		ScreenToken: v.ScreenToken,
		Locale:      v.Locale,
		Currency:    v.Currency,
		Cart:        &cart,
	}
}
