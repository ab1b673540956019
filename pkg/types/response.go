package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Response is what the backend returns for a tracking push: the
// recommenders and banners to render for the tracked screen.
type Response struct {
	Recommenders []RecommenderResponse `json:"recommenders"`
	Banners      []BannerResponse      `json:"banners"`
	Push         *PushInfo             `json:"push,omitempty"`
}

// EmptyResponse is returned when tracking is disabled
func EmptyResponse() *Response {
	return &Response{
		Recommenders: []RecommenderResponse{},
		Banners:      []BannerResponse{},
	}
}

// ParseResponse decodes a push response body. An empty body yields an empty response.
func ParseResponse(body []byte) (*Response, error) {
	resp := EmptyResponse()
	if len(body) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Recommenders == nil {
		resp.Recommenders = []RecommenderResponse{}
	}
	if resp.Banners == nil {
		resp.Banners = []BannerResponse{}
	}
	return resp, nil
}

// HasRecommenders reports whether any recommender was returned
func (r *Response) HasRecommenders() bool {
	return len(r.Recommenders) > 0
}

// HasBanners reports whether any banner was returned
func (r *Response) HasBanners() bool {
	return len(r.Banners) > 0
}

// RecommendersByTag returns the recommenders carrying tag
func (r *Response) RecommendersByTag(tag string) []RecommenderResponse {
	var out []RecommenderResponse
	for _, rec := range r.Recommenders {
		if contains(rec.Tags, tag) {
			out = append(out, rec)
		}
	}
	return out
}

// BannersByTag returns the banners carrying tag
func (r *Response) BannersByTag(tag string) []BannerResponse {
	var out []BannerResponse
	for _, b := range r.Banners {
		if contains(b.Tags, tag) {
			out = append(out, b)
		}
	}
	return out
}

// RecommenderByToken looks a recommender up by its token
func (r *Response) RecommenderByToken(token string) (RecommenderResponse, bool) {
	for _, rec := range r.Recommenders {
		if rec.Token == token {
			return rec, true
		}
	}
	return RecommenderResponse{}, false
}

// BannerByToken looks a banner up by its token
func (r *Response) BannerByToken(token string) (BannerResponse, bool) {
	for _, b := range r.Banners {
		if b.Token == token {
			return b, true
		}
	}
	return BannerResponse{}, false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// RecommenderResponse is one block of recommended products
type RecommenderResponse struct {
	Token           string                  `json:"token"`
	Name            string                  `json:"name"`
	Meta            map[string]interface{}  `json:"meta,omitempty"`
	Tags            []string                `json:"tags,omitempty"`
	CSSSelector     string                  `json:"cssSelector,omitempty"`
	DisplayStrategy string                  `json:"displayStrategy,omitempty"`
	Template        *Template               `json:"template,omitempty"`
	Products        []ProductRecommendation `json:"response"`
}

// Template is the markup used to render a recommender
type Template struct {
	ID   int    `json:"id"`
	Body string `json:"body"`
}

// ProductRecommendation is a single recommended product
type ProductRecommendation struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Available       bool                   `json:"available"`
	Price           float64                `json:"price"`
	ListPrice       *float64               `json:"listPrice,omitempty"`
	DiscountPrice   *float64               `json:"discountPrice,omitempty"`
	Discount        *float64               `json:"discount,omitempty"`
	DiscountPercent *float64               `json:"discountPercent,omitempty"`
	Currency        string                 `json:"currency,omitempty"`
	Locale          string                 `json:"locale,omitempty"`
	Description     string                 `json:"description,omitempty"`
	URL             string                 `json:"url,omitempty"`
	ImageURL        string                 `json:"imageUrl,omitempty"`
	Categories      []string               `json:"categories,omitempty"`
	Custom          map[string]interface{} `json:"custom,omitempty"`
	Data            map[string]interface{} `json:"data,omitempty"`
	MergeContext    map[string]string      `json:"mergeContext,omitempty"`
	CreatedAt       Timestamp              `json:"createdAt"`
	UpdatedAt       Timestamp              `json:"updatedAt"`
	PublishedAt     Timestamp              `json:"publishedAt"`
}

// BannerResponse is a banner to render
type BannerResponse struct {
	Token     string                 `json:"token"`
	Content   string                 `json:"content,omitempty"`
	ImageURL  string                 `json:"imageUrl,omitempty"`
	TargetURL string                 `json:"targetUrl,omitempty"`
	Tags      []string               `json:"tags,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// PushInfo carries web-push configuration
type PushInfo struct {
	VapidPublicKey string `json:"vapidPublicKey,omitempty"`
}

// Timestamp is a leniently parsed response time. Values that are missing or
// not in DateLayout decode to the zero time instead of failing the response.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(DateLayout))
}
