package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/releva-ai/releva-go/pkg/session"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/tracker"
	"github.com/releva-ai/releva-go/pkg/transport"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport records requests and answers them with respond
type stubTransport struct {
	mu       sync.Mutex
	requests []transport.Request
	respond  func(req transport.Request) (*transport.Response, error)
}

func (s *stubTransport) Execute(ctx context.Context, req transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(req)
}

func (s *stubTransport) last(t *testing.T) transport.Request {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *stubTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func status(code int, body string) func(transport.Request) (*transport.Response, error) {
	return func(transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: code, Body: []byte(body)}, nil
	}
}

type fixture struct {
	store     storage.Store
	tracker   *tracker.Tracker
	transport *stubTransport
	composer  *Composer
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	store := storage.NewPrefs(storage.NewMemoryStore(), "test")
	tr, err := tracker.New(store)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := session.NewManager(store,
		session.WithClock(func() time.Time { return now }),
		session.WithIDGenerator(func() string { return "session-1" }),
	)

	stub := &stubTransport{respond: status(http.StatusOK, `{"recommenders":[],"banners":[]}`)}
	return &fixture{
		store:     store,
		tracker:   tr,
		transport: stub,
		composer:  NewComposer(cfg, tr, sessions, stub),
	}
}

func enabled() Config {
	return Config{Realm: "demo", AccessToken: "secret", Enabled: true}
}

func decodeContext(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	ctx, ok := payload["context"].(map[string]interface{})
	require.True(t, ok, "payload has a context object")
	return ctx
}

func TestSendEndToEnd(t *testing.T) {
	f := newFixture(t, enabled())

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetProfileID("p1")
	require.NoError(t, err)
	_, err = f.tracker.SetCart(types.ActiveCart([]types.CartProduct{types.NewCartProduct("x", 10, 1)}))
	require.NoError(t, err)

	resp, err := f.composer.Send(context.Background(), Request{})
	require.NoError(t, err)
	assert.NotNil(t, resp)

	first := decodeContext(t, f.transport.last(t).Body)
	assert.Equal(t, "d1", first["deviceId"])
	assert.Equal(t, true, first["profileChanged"])
	assert.Equal(t, true, first["cartChanged"])
	assert.Equal(t, []interface{}{}, first["mergeProfileIds"])

	_, err = f.composer.Send(context.Background(), Request{})
	require.NoError(t, err)

	second := decodeContext(t, f.transport.last(t).Body)
	assert.Equal(t, false, second["profileChanged"])
	assert.Equal(t, false, second["cartChanged"])
	assert.Equal(t, false, second["deviceIdChanged"])
	assert.NotNil(t, second["cart"], "cart is still reported, only the flag is cleared")
}

func TestSendRequestShape(t *testing.T) {
	f := newFixture(t, enabled())
	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)

	_, err = f.composer.Send(context.Background(), Request{})
	require.NoError(t, err)

	req := f.transport.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://demo.releva.ai/api/v0/push", req.URL)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, "Bearer secret", req.Headers["Authorization"])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, map[string]interface{}{
		"client": map[string]interface{}{
			"vendor":   "Releva",
			"platform": "go",
			"version":  Version,
		},
	}, payload["options"])
}

func TestPayloadGolden(t *testing.T) {
	f := newFixture(t, enabled())

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetProfileID("p1")
	require.NoError(t, err)
	_, err = f.tracker.SetCart(types.ActiveCart([]types.CartProduct{types.NewCartProduct("x", 10, 1)}))
	require.NoError(t, err)
	_, err = f.tracker.SetWishlist([]types.WishlistProduct{{ID: "w1"}})
	require.NoError(t, err)

	payload, _, err := f.composer.Compose(Request{
		PageURL:     "https://shop.example.com/home",
		ScreenToken: "home-screen",
	})
	require.NoError(t, err)

	data, err := json.MarshalIndent(payload, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "push_payload", append(data, '\n'))
}

func TestSendFailureKeepsDirtyState(t *testing.T) {
	tests := []struct {
		name    string
		respond func(transport.Request) (*transport.Response, error)
		check   func(t *testing.T, err error)
	}{
		{
			name:    "server error",
			respond: status(http.StatusInternalServerError, "boom"),
			check: func(t *testing.T, err error) {
				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
				assert.Equal(t, PushPath, se.Endpoint)
				assert.Equal(t, "boom", se.Body)
			},
		},
		{
			name:    "accepted is not success for push",
			respond: status(http.StatusAccepted, ""),
			check: func(t *testing.T, err error) {
				assert.True(t, IsStatus(err, http.StatusAccepted))
			},
		},
		{
			name: "transport error",
			respond: func(transport.Request) (*transport.Response, error) {
				return nil, errors.New("connection refused")
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, enabled())
			f.transport.respond = tt.respond

			_, err := f.tracker.SetDeviceID("d1")
			require.NoError(t, err)
			_, err = f.tracker.SetProfileID("a")
			require.NoError(t, err)
			_, err = f.tracker.SetProfileID("b")
			require.NoError(t, err)

			_, err = f.composer.Send(context.Background(), Request{})
			require.Error(t, err)
			tt.check(t, err)

			snap := f.tracker.Snapshot()
			assert.True(t, snap.ProfileChanged)
			assert.True(t, snap.DeviceChanged)
			assert.Equal(t, []string{"a"}, snap.MergeProfileIDs)

			// the next call retries the same delta
			f.transport.respond = status(http.StatusOK, "")
			_, err = f.composer.Send(context.Background(), Request{})
			require.NoError(t, err)

			retried := decodeContext(t, f.transport.last(t).Body)
			assert.Equal(t, []interface{}{"a"}, retried["mergeProfileIds"])
			assert.False(t, f.tracker.Snapshot().Dirty())
		})
	}
}

func TestSendDisabled(t *testing.T) {
	f := newFixture(t, Config{Enabled: false})

	_, err := f.tracker.SetProfileID("p1")
	require.NoError(t, err)

	resp, err := f.composer.Send(context.Background(), Request{})
	require.NoError(t, err, "disabled tracking does not need a device id")
	assert.Empty(t, resp.Recommenders)
	assert.Empty(t, resp.Banners)
	assert.Equal(t, 0, f.transport.count())
	assert.True(t, f.tracker.Snapshot().ProfileChanged)
}

func TestSendRequiresDevice(t *testing.T) {
	f := newFixture(t, enabled())

	_, err := f.composer.Send(context.Background(), Request{})
	assert.ErrorIs(t, err, tracker.ErrMissingDeviceID)
	assert.Equal(t, 0, f.transport.count())
}

func TestSendParsesResponse(t *testing.T) {
	f := newFixture(t, enabled())
	f.transport.respond = status(http.StatusOK, `{"recommenders":[{"token":"r1","name":"Top","tags":["home"],"response":[]}],"banners":[{"token":"b1"}]}`)

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)

	resp, err := f.composer.Send(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, resp.HasRecommenders())
	assert.Len(t, resp.RecommendersByTag("home"), 1)
	_, ok := resp.BannerByToken("b1")
	assert.True(t, ok)
}

func TestExplicitCartOverridesTrackedCart(t *testing.T) {
	f := newFixture(t, enabled())
	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetCart(types.ActiveCart([]types.CartProduct{types.NewCartProduct("tracked", 1, 1)}))
	require.NoError(t, err)

	paid := types.PaidCart([]types.CartProduct{types.NewCartProduct("ordered", 5, 2)}, "order-7")
	_, err = f.composer.Send(context.Background(), Request{Cart: &paid})
	require.NoError(t, err)

	ctx := decodeContext(t, f.transport.last(t).Body)
	cart := ctx["cart"].(map[string]interface{})
	assert.Equal(t, "order-7", cart["orderId"])
	assert.Equal(t, true, cart["cartPaid"])
	products := cart["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "ordered", products[0].(map[string]interface{})["id"])
}

func TestPayloadPageContext(t *testing.T) {
	snap := tracker.Snapshot{DeviceID: "d1", HasDevice: true}
	viewed := types.ViewedProduct{ID: "p-9"}

	payload, err := BuildPayload(snap, "s1", Request{
		PageURL:    "https://shop.example.com/search",
		ProductIDs: []string{"1", "2"},
		Categories: []string{"shoes"},
		Query:      "red shoes",
		Filter:     types.Brand("acme", types.ActionInclude),
		Locale:     "en",
		Currency:   "EUR",
		Product:    &viewed,
		Events:     []types.CustomEvent{{Action: "liked"}},
	})
	require.NoError(t, err)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	ctx := decodeContext(t, data)

	page := ctx["page"].(map[string]interface{})
	assert.Equal(t, "https://shop.example.com/search", page["url"])
	assert.Equal(t, []interface{}{"1", "2"}, page["ids"])
	assert.Equal(t, []interface{}{"shoes"}, page["categories"])
	assert.Equal(t, "red shoes", page["query"])
	assert.Equal(t, "en", page["locale"])
	assert.Equal(t, "EUR", page["currency"])
	assert.NotNil(t, page["filter"])
	assert.NotContains(t, page, "token")

	assert.Equal(t, "p-9", ctx["product"].(map[string]interface{})["id"])
	assert.Len(t, ctx["events"], 1)
	assert.NotContains(t, ctx, "cart", "no cart is tracked yet")
	assert.Equal(t, map[string]interface{}{}, ctx["profile"])
}

func TestPayloadSkipsCorruptStoredEntries(t *testing.T) {
	snap := tracker.Snapshot{
		DeviceID:  "d1",
		HasDevice: true,
		Cart:      "{not json",
		HasCart:   true,
		Wishlist:  []string{`{"id":"ok","custom":{}}`, "broken"},
	}

	payload, err := BuildPayload(snap, "s1", Request{})
	require.NoError(t, err)
	assert.Nil(t, payload.Context.Cart)
	require.Len(t, payload.Context.Wishlist.Products, 1)
	assert.JSONEq(t, `{"id":"ok","custom":{}}`, string(payload.Context.Wishlist.Products[0]))

	_, err = json.Marshal(payload)
	assert.NoError(t, err)
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "realm", cfg: Config{Realm: "shop"}, want: "https://shop.releva.ai"},
		{name: "no realm", cfg: Config{}, want: "https://releva.ai"},
		{name: "override", cfg: Config{Realm: "shop", Endpoint: "http://localhost:8080"}, want: "http://localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.BaseURL())
		})
	}
}

func TestRegisterPushToken(t *testing.T) {
	f := newFixture(t, enabled())
	f.transport.respond = status(http.StatusAccepted, "")

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetProfileID("p1")
	require.NoError(t, err)

	err = f.composer.RegisterPushToken(context.Background(), types.DeviceTypeAndroid, "tok-1")
	require.NoError(t, err)

	req := f.transport.last(t)
	assert.Equal(t, "https://demo.releva.ai/api/v0/appPush/tokens", req.URL)
	assert.JSONEq(t, `{"profileId":"p1","deviceType":"android","deviceId":"d1","pushToken":"tok-1"}`, string(req.Body))
	assert.False(t, f.tracker.Snapshot().Dirty(), "accepted registration acknowledges dirty state")
}

func TestRegisterPushTokenPreconditions(t *testing.T) {
	f := newFixture(t, enabled())

	err := f.composer.RegisterPushToken(context.Background(), types.DeviceTypeIOS, "tok")
	assert.ErrorIs(t, err, tracker.ErrMissingDeviceID)

	_, err = f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	err = f.composer.RegisterPushToken(context.Background(), types.DeviceTypeIOS, "tok")
	assert.ErrorIs(t, err, ErrMissingProfileID)

	assert.Equal(t, 0, f.transport.count())
}

func TestRegisterPushTokenRejected(t *testing.T) {
	f := newFixture(t, enabled())

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetProfileID("p1")
	require.NoError(t, err)

	err = f.composer.RegisterPushToken(context.Background(), types.DeviceTypeAndroid, "tok")
	assert.True(t, IsStatus(err, http.StatusOK), "200 is not the accepted status for token registration")
	assert.True(t, f.tracker.Snapshot().Dirty())
}

func TestBannerClicked(t *testing.T) {
	f := newFixture(t, enabled())

	_, err := f.tracker.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = f.tracker.SetProfileID("p1")
	require.NoError(t, err)

	err = f.composer.BannerClicked(context.Background(), types.BannerResponse{Token: "banner-1"}, "close")
	require.NoError(t, err)

	req := f.transport.last(t)
	assert.Equal(t, "https://demo.releva.ai/api/v0/push", req.URL)
	assert.JSONEq(t, `{"context":{"deviceId":"d1","sessionId":"session-1","profile":{"id":"p1"},"bid":"banner-1","action":"close"}}`, string(req.Body))
	assert.True(t, f.tracker.Snapshot().ProfileChanged, "banner clicks leave tracked state alone")
}
