package tracking

import (
	"encoding/json"

	"github.com/releva-ai/releva-go/pkg/tracker"
	"github.com/releva-ai/releva-go/pkg/types"
)

// Vendor and Platform identify this SDK in the request options
const (
	Vendor   = "Releva"
	Platform = "go"
)

// Version is reported to the backend with every push
var Version = "0.1.0-go"

// Request carries the per-call context of one tracking push. It is built in
// one step by the caller and never modified by the composer.
type Request struct {
	PageURL     string
	ScreenToken string
	ProductIDs  []string
	Categories  []string
	Query       string
	Filter      types.Filter
	Locale      string
	Currency    string

	Product *types.ViewedProduct
	Events  []types.CustomEvent

	// Cart replaces the tracked cart in this request's payload only
	Cart *types.Cart
}

// Payload is the body of a push request
type Payload struct {
	Context PushContext `json:"context"`
	Options Options     `json:"options"`
}

// PushContext is the tracked state plus page context of one push
type PushContext struct {
	DeviceID        string               `json:"deviceId"`
	DeviceIDChanged bool                 `json:"deviceIdChanged"`
	SessionID       string               `json:"sessionId"`
	Profile         Profile              `json:"profile"`
	Product         *types.ViewedProduct `json:"product,omitempty"`
	ProfileChanged  bool                 `json:"profileChanged"`
	Page            Page                 `json:"page"`
	Cart            json.RawMessage      `json:"cart,omitempty"`
	CartChanged     bool                 `json:"cartChanged"`
	Wishlist        Wishlist             `json:"wishlist"`
	WishlistChanged bool                 `json:"wishlistChanged"`
	MergeProfileIDs []string             `json:"mergeProfileIds"`
	Events          []types.CustomEvent  `json:"events,omitempty"`
}

type Profile struct {
	ID string `json:"id,omitempty"`
}

type Page struct {
	URL        string       `json:"url,omitempty"`
	Token      string       `json:"token,omitempty"`
	IDs        []string     `json:"ids,omitempty"`
	Categories []string     `json:"categories,omitempty"`
	Query      string       `json:"query,omitempty"`
	Filter     types.Filter `json:"filter,omitempty"`
	Locale     string       `json:"locale,omitempty"`
	Currency   string       `json:"currency,omitempty"`
}

type Wishlist struct {
	Products []json.RawMessage `json:"products"`
}

type Options struct {
	Client ClientInfo `json:"client"`
}

type ClientInfo struct {
	Vendor   string `json:"vendor"`
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// BuildPayload assembles the push body from a tracker snapshot, the current
// session and the per-call request. An explicit request cart wins over the
// tracked one. Stored entries that are not valid JSON are left out.
func BuildPayload(snap tracker.Snapshot, sessionID string, req Request) (*Payload, error) {
	ctx := PushContext{
		DeviceID:        snap.DeviceID,
		DeviceIDChanged: snap.DeviceChanged,
		SessionID:       sessionID,
		Product:         req.Product,
		ProfileChanged:  snap.ProfileChanged,
		Page: Page{
			URL:        req.PageURL,
			Token:      req.ScreenToken,
			IDs:        req.ProductIDs,
			Categories: req.Categories,
			Query:      req.Query,
			Filter:     req.Filter,
			Locale:     req.Locale,
			Currency:   req.Currency,
		},
		CartChanged:     snap.CartChanged,
		WishlistChanged: snap.WishlistChanged,
		MergeProfileIDs: snap.MergeProfileIDs,
		Wishlist:        Wishlist{Products: make([]json.RawMessage, 0, len(snap.Wishlist))},
	}
	if snap.HasProfile {
		ctx.Profile.ID = snap.ProfileID
	}
	if ctx.MergeProfileIDs == nil {
		ctx.MergeProfileIDs = []string{}
	}
	if len(req.Events) > 0 {
		ctx.Events = req.Events
	}

	switch {
	case req.Cart != nil:
		data, err := req.Cart.Canonical()
		if err != nil {
			return nil, err
		}
		ctx.Cart = json.RawMessage(data)
	case snap.HasCart && json.Valid([]byte(snap.Cart)):
		ctx.Cart = json.RawMessage(snap.Cart)
	}

	for _, item := range snap.Wishlist {
		if json.Valid([]byte(item)) {
			ctx.Wishlist.Products = append(ctx.Wishlist.Products, json.RawMessage(item))
		}
	}

	return &Payload{
		Context: ctx,
		Options: Options{
			Client: ClientInfo{
				Vendor:   Vendor,
				Platform: Platform,
				Version:  Version,
			},
		},
	}, nil
}
