package types

import (
	"encoding/json"
	"strconv"
)

// Filter narrows or reorders the products the backend recommends for a page.
// SimpleFilter and NestedFilter are the two implementations.
type Filter interface {
	json.Marshaler
	isFilter()
}

// FilterOperator compares a product field against a value
type FilterOperator string

const (
	OperatorEq     FilterOperator = "eq"
	OperatorLt     FilterOperator = "lt"
	OperatorGt     FilterOperator = "gt"
	OperatorLte    FilterOperator = "lte"
	OperatorGte    FilterOperator = "gte"
	OperatorGteLte FilterOperator = "gte,lte"
	OperatorGteLt  FilterOperator = "gte,lt"
	OperatorGtLte  FilterOperator = "gt,lte"
	OperatorGtLt   FilterOperator = "gt,lt"
)

// FilterAction says what happens to matching products
type FilterAction string

const (
	ActionInclude FilterAction = "include"
	ActionExclude FilterAction = "exclude"
	ActionBury    FilterAction = "bury"
	ActionBoost   FilterAction = "boost"
)

// SimpleFilter is a single field condition
type SimpleFilter struct {
	Key      string
	Operator FilterOperator
	Value    string
	Action   FilterAction
	Weight   *int
}

func (SimpleFilter) isFilter() {}

func (f SimpleFilter) MarshalJSON() ([]byte, error) {
	w := struct {
		Key      string         `json:"key"`
		Operator FilterOperator `json:"operator"`
		Value    string         `json:"value"`
		Action   FilterAction   `json:"action"`
		Weight   string         `json:"weight,omitempty"`
	}{
		Key:      f.Key,
		Operator: f.Operator,
		Value:    f.Value,
		Action:   f.Action,
	}
	if f.Weight != nil {
		w.Weight = strconv.Itoa(*f.Weight)
	}
	return json.Marshal(w)
}

// WithWeight returns a copy of the filter with the given weight
func (f SimpleFilter) WithWeight(weight int) SimpleFilter {
	f.Weight = &weight
	return f
}

// StandardField filters on a built-in product field such as price or name
func StandardField(field string, op FilterOperator, value string, action FilterAction) SimpleFilter {
	return SimpleFilter{Key: field, Operator: op, Value: value, Action: action}
}

// CustomString filters on a custom string field
func CustomString(field string, op FilterOperator, value string, action FilterAction) SimpleFilter {
	return StandardField("custom.string."+field, op, value, action)
}

// CustomNumeric filters on a custom numeric field
func CustomNumeric(field string, op FilterOperator, value string, action FilterAction) SimpleFilter {
	return StandardField("custom.numeric."+field, op, value, action)
}

// CustomDate filters on a custom date field
func CustomDate(field string, op FilterOperator, value string, action FilterAction) SimpleFilter {
	return StandardField("custom.date."+field, op, value, action)
}

// PriceRange matches products priced within [min, max]
func PriceRange(minPrice, maxPrice float64, action FilterAction) SimpleFilter {
	value := formatPrice(minPrice) + "," + formatPrice(maxPrice)
	return StandardField("price", OperatorGteLte, value, action)
}

// Size matches the custom size attribute
func Size(size string, action FilterAction) SimpleFilter {
	return CustomString("size", OperatorEq, size, action)
}

// Brand matches the custom brand attribute
func Brand(brand string, action FilterAction) SimpleFilter {
	return CustomString("brand", OperatorEq, brand, action)
}

// Color matches the custom color attribute
func Color(color string, action FilterAction) SimpleFilter {
	return CustomString("color", OperatorEq, color, action)
}

// formatPrice always keeps a decimal point so 10 renders as "10.0"
func formatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' {
			return s
		}
	}
	return s + ".0"
}

// NestedOperation joins nested filters
type NestedOperation string

const (
	NestedAnd NestedOperation = "and"
	NestedOr  NestedOperation = "or"
)

// NestedFilter combines several filters with AND or OR
type NestedFilter struct {
	Operation NestedOperation
	Nested    []Filter
}

func (NestedFilter) isFilter() {}

func (f NestedFilter) MarshalJSON() ([]byte, error) {
	nested := f.Nested
	if nested == nil {
		nested = []Filter{}
	}
	return json.Marshal(struct {
		Operator NestedOperation `json:"operator"`
		Nested   []Filter        `json:"nested"`
	}{Operator: f.Operation, Nested: nested})
}

// And requires every filter to match
func And(filters ...Filter) NestedFilter {
	return NestedFilter{Operation: NestedAnd, Nested: filters}
}

// Or requires at least one filter to match
func Or(filters ...Filter) NestedFilter {
	return NestedFilter{Operation: NestedOr, Nested: filters}
}
