package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/releva-ai/releva-go/pkg/config"
	"github.com/releva-ai/releva-go/pkg/connectivity"
	"github.com/releva-ai/releva-go/pkg/engagement"
	"github.com/releva-ai/releva-go/pkg/events"
	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/metrics"
	"github.com/releva-ai/releva-go/pkg/session"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/tracker"
	"github.com/releva-ai/releva-go/pkg/tracking"
	"github.com/releva-ai/releva-go/pkg/transport"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingDeviceID is returned by sends attempted before SetDeviceID
	ErrMissingDeviceID = tracker.ErrMissingDeviceID

	// ErrMissingProfileID is returned by RegisterPushToken before SetProfileID
	ErrMissingProfileID = tracking.ErrMissingProfileID

	// ErrEngagementNotEnabled is returned by engagement operations before
	// EnablePushEngagementTracking
	ErrEngagementNotEnabled = errors.New("push engagement tracking is not enabled")
)

// Client is the entry point of the SDK for one realm
type Client struct {
	cfg    *config.Config
	logger zerolog.Logger

	backend     storage.Backend
	ownsBackend bool
	store       storage.Store

	sessions  *session.Manager
	tracker   *tracker.Tracker
	composer  *tracking.Composer
	transport transport.Transport
	checker   connectivity.Checker

	broker     *events.Broker
	ownsBroker bool

	mu                  sync.Mutex
	cartInitialized     bool
	wishlistInitialized bool
	engagement          *engagement.Queue

	closeOnce sync.Once
	closeErr  error
}

// New creates a client from a validated configuration
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		cfg:    cfg,
		logger: log.WithRealm(cfg.Realm).With().Str("component", "client").Logger(),
	}

	if o.backend != nil {
		c.backend = o.backend
	} else {
		backend, err := storage.Open(string(cfg.StoreDriver), cfg.DataDir)
		if err != nil {
			metrics.UpdateComponent(metrics.ComponentStore, false, err.Error())
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		c.backend = backend
		c.ownsBackend = true
	}
	metrics.UpdateComponent(metrics.ComponentStore, true, "")
	c.store = storage.NewPrefs(c.backend, cfg.Realm)

	c.transport = o.transport
	if c.transport == nil {
		c.transport = transport.NewHTTPTransport(cfg.RequestTimeout).
			WithUserAgent("releva-go/" + tracking.Version)
	}

	c.checker = o.checker
	if c.checker == nil {
		if cfg.ConnectivityProbe != "" {
			c.checker = connectivity.NewTCPProbe(cfg.ConnectivityProbe)
		} else {
			c.checker = connectivity.Always{}
		}
	}

	c.broker = o.broker
	if c.broker == nil {
		c.broker = events.NewBroker()
		c.broker.Start()
		c.ownsBroker = true
	}

	sessionOpts := []session.Option{
		session.WithDuration(cfg.SessionDuration),
		session.WithRotateHook(func(s session.Session) {
			c.broker.Publish(&events.Event{
				Type:     events.EventSessionRotated,
				Message:  "new session",
				Metadata: map[string]string{"session_id": s.ID},
			})
		}),
	}
	if o.now != nil {
		sessionOpts = append(sessionOpts, session.WithClock(o.now))
	}
	if o.newID != nil {
		sessionOpts = append(sessionOpts, session.WithIDGenerator(o.newID))
	}
	c.sessions = session.NewManager(c.store, sessionOpts...)

	t, err := tracker.New(c.store)
	if err != nil {
		c.release()
		return nil, err
	}
	c.tracker = t

	c.composer = tracking.NewComposer(tracking.Config{
		Realm:       cfg.Realm,
		Endpoint:    cfg.Endpoint,
		AccessToken: cfg.AccessToken,
		Enabled:     cfg.Features.EnableTracking,
	}, c.tracker, c.sessions, c.transport)

	return c, nil
}

// Events returns the broker the client publishes on
func (c *Client) Events() *events.Broker {
	return c.broker
}

// SetProfileID sets the active profile. A previous profile is merged into
// the new one on the next push.
func (c *Client) SetProfileID(id string) error {
	changed, err := c.tracker.SetProfileID(id)
	if err != nil {
		return err
	}
	if changed {
		logger := log.WithProfileID(id)
		logger.Debug().Str("realm", c.cfg.Realm).Msg("active profile set")
	}
	return nil
}

// SetDeviceID sets the device identity every push is attributed to
func (c *Client) SetDeviceID(id string) error {
	_, err := c.tracker.SetDeviceID(id)
	return err
}

// SetCart records the cart. A genuine change pushes the new state without
// page context, except for the first cart under SuppressInitialSync.
func (c *Client) SetCart(ctx context.Context, cart types.Cart) error {
	changed, err := c.tracker.SetCart(cart)
	if err != nil {
		return err
	}

	c.mu.Lock()
	initialized := c.cartInitialized
	c.cartInitialized = true
	c.mu.Unlock()

	return c.syncChange(ctx, "cart", changed, initialized)
}

// ClearCartStorage stores an empty active cart and marks it changed without
// a push. The next cart set counts as the first one again.
func (c *Client) ClearCartStorage() error {
	if err := c.tracker.ClearCartToEmptyActive(); err != nil {
		return err
	}

	c.mu.Lock()
	c.cartInitialized = false
	c.mu.Unlock()

	c.logger.Debug().Msg("cart storage cleared")
	return nil
}

// SetWishlist records the wishlist, pushing genuine changes like SetCart
func (c *Client) SetWishlist(ctx context.Context, products []types.WishlistProduct) error {
	changed, err := c.tracker.SetWishlist(products)
	if err != nil {
		return err
	}

	c.mu.Lock()
	initialized := c.wishlistInitialized
	c.wishlistInitialized = true
	c.mu.Unlock()

	return c.syncChange(ctx, "wishlist", changed, initialized)
}

func (c *Client) syncChange(ctx context.Context, what string, changed, initialized bool) error {
	if !changed {
		return nil
	}
	if !initialized && c.cfg.InitialSync == config.SuppressInitialSync {
		c.logger.Debug().Str("state", what).Msg("initial state recorded without push")
		return nil
	}

	if _, err := c.send(ctx, what, tracking.Request{}); err != nil {
		return fmt.Errorf("failed to push %s change: %w", what, err)
	}
	return nil
}

// TrackScreenView reports a screen view
func (c *Client) TrackScreenView(ctx context.Context, view ScreenView) (*types.Response, error) {
	return c.send(ctx, "screen", view.request(nil))
}

// TrackScreenViewWithEvents reports a screen view carrying custom events
func (c *Client) TrackScreenViewWithEvents(ctx context.Context, view ScreenView, customEvents []types.CustomEvent) (*types.Response, error) {
	return c.send(ctx, "screen", view.request(customEvents))
}

// TrackProductView reports a product detail view
func (c *Client) TrackProductView(ctx context.Context, view ProductView) (*types.Response, error) {
	return c.send(ctx, "product", view.request())
}

// TrackSearchView reports a search results view
func (c *Client) TrackSearchView(ctx context.Context, view SearchView) (*types.Response, error) {
	return c.send(ctx, "search", view.request())
}

// TrackCheckoutSuccess reports a completed order. The ordered cart is
// recorded and forced dirty before the push and carried explicitly in it.
// After a successful push the cart is reset to an empty active cart unless
// the checkout policy keeps the paid cart.
func (c *Client) TrackCheckoutSuccess(ctx context.Context, checkout Checkout) (*types.Response, error) {
	if !c.composer.Enabled() {
		return c.send(ctx, "checkout", checkout.request())
	}

	if _, err := c.tracker.SetCart(checkout.OrderedCart); err != nil {
		return nil, err
	}
	c.tracker.MarkCartChanged()

	resp, err := c.send(ctx, "checkout", checkout.request())
	if err != nil {
		return nil, err
	}

	if c.cfg.Checkout == config.ClearCartAfterCheckout {
		if err := c.ClearCartStorage(); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// RegisterPushToken registers the device's push token for the current profile
func (c *Client) RegisterPushToken(ctx context.Context, deviceType types.DeviceType, token string) error {
	return c.composer.RegisterPushToken(ctx, deviceType, token)
}

// BannerClicked reports a banner click with an optional action
func (c *Client) BannerClicked(ctx context.Context, banner types.BannerResponse, action string) error {
	return c.composer.BannerClicked(ctx, banner, action)
}

// Session returns the current session, rotating it when expired
func (c *Client) Session() (session.Session, error) {
	return c.sessions.GetOrCreate()
}

// State returns the tracked state the next push would carry
func (c *Client) State() tracker.Snapshot {
	return c.tracker.Snapshot()
}

func (c *Client) send(ctx context.Context, kind string, req tracking.Request) (*types.Response, error) {
	resp, err := c.composer.Send(ctx, req)
	if err != nil {
		metrics.UpdateComponent(metrics.ComponentBackend, false, err.Error())
		c.broker.Publish(&events.Event{
			Type:     events.EventTrackingFailed,
			Message:  err.Error(),
			Metadata: map[string]string{"kind": kind},
		})
		return nil, err
	}

	if c.composer.Enabled() {
		metrics.UpdateComponent(metrics.ComponentBackend, true, "")
		c.broker.Publish(&events.Event{
			Type:     events.EventTrackingSent,
			Message:  "push acknowledged",
			Metadata: map[string]string{"kind": kind},
		})
	}
	return resp, nil
}

// Close stops background work and releases the store. Pending engagement
// callbacks stay persisted. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		queue := c.engagement
		c.mu.Unlock()

		if queue != nil {
			queue.Close()
		}
		c.closeErr = c.release()
	})
	return c.closeErr
}

func (c *Client) release() error {
	if c.ownsBroker {
		c.broker.Stop()
	}
	if c.ownsBackend {
		if err := c.backend.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}
	return nil
}
