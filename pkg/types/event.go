package types

import "encoding/json"

// CustomEvent records a host-defined user interaction
type CustomEvent struct {
	Action   string               `json:"action"`
	Products []CustomEventProduct `json:"products"`
	Tags     []string             `json:"tags"`
	Custom   CustomFields         `json:"custom"`
}

func (e CustomEvent) MarshalJSON() ([]byte, error) {
	w := struct {
		Action   string               `json:"action"`
		Tags     []string             `json:"tags"`
		Products []CustomEventProduct `json:"products"`
		Custom   *CustomFields        `json:"custom,omitempty"`
	}{
		Action:   e.Action,
		Tags:     e.Tags,
		Products: e.Products,
	}
	if w.Tags == nil {
		w.Tags = []string{}
	}
	if w.Products == nil {
		w.Products = []CustomEventProduct{}
	}
	if !e.Custom.IsEmpty() {
		custom := e.Custom
		w.Custom = &custom
	}
	return json.Marshal(w)
}

// CustomEventProduct references a product involved in a custom event
type CustomEventProduct struct {
	ID       string   `json:"id"`
	Quantity *float64 `json:"quantity,omitempty"`
}
