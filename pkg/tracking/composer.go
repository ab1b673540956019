package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/metrics"
	"github.com/releva-ai/releva-go/pkg/session"
	"github.com/releva-ai/releva-go/pkg/tracker"
	"github.com/releva-ai/releva-go/pkg/transport"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/rs/zerolog"
)

// Backend paths
const (
	PushPath       = "/api/v0/push"
	PushTokensPath = "/api/v0/appPush/tokens"
)

// Config holds the static settings of a composer
type Config struct {
	// Realm selects https://<realm>.releva.ai; empty means https://releva.ai
	Realm string

	// Endpoint overrides the realm-derived base URL when set
	Endpoint string

	AccessToken string

	// Enabled turns tracking pushes on
	Enabled bool
}

// BaseURL returns the backend base URL for the configuration
func (c Config) BaseURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.Realm != "" {
		return "https://" + c.Realm + ".releva.ai"
	}
	return "https://releva.ai"
}

// Composer turns tracked state plus per-call context into backend pushes
type Composer struct {
	cfg       Config
	tracker   *tracker.Tracker
	sessions  *session.Manager
	transport transport.Transport
	logger    zerolog.Logger
}

// NewComposer creates a composer
func NewComposer(cfg Config, t *tracker.Tracker, sessions *session.Manager, tr transport.Transport) *Composer {
	return &Composer{
		cfg:       cfg,
		tracker:   t,
		sessions:  sessions,
		transport: tr,
		logger:    log.WithComponent("tracking").With().Str("realm", cfg.Realm).Logger(),
	}
}

// Enabled reports whether pushes are sent
func (c *Composer) Enabled() bool {
	return c.cfg.Enabled
}

// Compose builds the push payload for req from the current tracked state
// without sending it. The returned snapshot is what a successful send acknowledges.
func (c *Composer) Compose(req Request) (*Payload, tracker.Snapshot, error) {
	snap := c.tracker.Snapshot()
	if err := snap.RequireDevice(); err != nil {
		return nil, snap, err
	}

	sess, err := c.sessions.GetOrCreate()
	if err != nil {
		return nil, snap, fmt.Errorf("failed to get session: %w", err)
	}

	payload, err := BuildPayload(snap, sess.ID, req)
	if err != nil {
		return nil, snap, err
	}
	return payload, snap, nil
}

// Send composes and delivers one push. On a 200 response the dirty state the
// push carried is acknowledged; on any failure it is left untouched so the
// next push repeats it. With tracking disabled nothing is sent and an empty
// response is returned.
func (c *Composer) Send(ctx context.Context, req Request) (*types.Response, error) {
	if !c.cfg.Enabled {
		metrics.TrackingSkippedTotal.Inc()
		return types.EmptyResponse(), nil
	}

	payload, snap, err := c.Compose(req)
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, PushPath, payload, http.StatusOK)
	if err != nil {
		return nil, err
	}

	c.tracker.AcknowledgeSend(snap)

	c.logger.Debug().
		Bool("profile_changed", snap.ProfileChanged).
		Bool("cart_changed", snap.CartChanged).
		Bool("wishlist_changed", snap.WishlistChanged).
		Int("merged_profiles", len(snap.MergeProfileIDs)).
		Msg("push acknowledged")

	resp, err := types.ParseResponse(body)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type pushToken struct {
	ProfileID  string           `json:"profileId"`
	DeviceType types.DeviceType `json:"deviceType"`
	DeviceID   string           `json:"deviceId"`
	PushToken  string           `json:"pushToken"`
}

// RegisterPushToken sends a device push token. The backend accepts it with
// 202, which also acknowledges the tracked dirty state.
func (c *Composer) RegisterPushToken(ctx context.Context, deviceType types.DeviceType, token string) error {
	snap := c.tracker.Snapshot()
	if err := snap.RequireDevice(); err != nil {
		return err
	}
	if !snap.HasProfile || snap.ProfileID == "" {
		return ErrMissingProfileID
	}

	req := pushToken{
		ProfileID:  snap.ProfileID,
		DeviceType: deviceType,
		DeviceID:   snap.DeviceID,
		PushToken:  token,
	}
	if _, err := c.post(ctx, PushTokensPath, req, http.StatusAccepted); err != nil {
		return err
	}

	c.tracker.AcknowledgeSend(snap)
	c.logger.Info().Str("device_type", string(deviceType)).Msg("push token registered")
	return nil
}

type bannerClick struct {
	Context bannerClickContext `json:"context"`
}

type bannerClickContext struct {
	DeviceID  string  `json:"deviceId,omitempty"`
	SessionID string  `json:"sessionId"`
	Profile   Profile `json:"profile"`
	BannerID  string  `json:"bid"`
	Action    string  `json:"action,omitempty"`
}

// BannerClicked reports a click on a banner. It does not touch tracked state.
func (c *Composer) BannerClicked(ctx context.Context, banner types.BannerResponse, action string) error {
	snap := c.tracker.Snapshot()

	sess, err := c.sessions.GetOrCreate()
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	req := bannerClick{
		Context: bannerClickContext{
			DeviceID:  snap.DeviceID,
			SessionID: sess.ID,
			BannerID:  banner.Token,
			Action:    action,
		},
	}
	if snap.HasProfile {
		req.Context.Profile.ID = snap.ProfileID
	}

	_, err = c.post(ctx, PushPath, req, http.StatusOK)
	return err
}

// post sends a JSON body and returns the response body when the status
// matches want
func (c *Composer) post(ctx context.Context, path string, v interface{}, want int) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	timer := metrics.NewTimer()
	resp, err := c.transport.Execute(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.cfg.BaseURL() + path,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + c.cfg.AccessToken,
		},
		Body: data,
	})
	timer.ObserveDurationVec(metrics.TrackingRequestDuration, path)

	if err != nil {
		metrics.TrackingRequestsTotal.WithLabelValues(path, "error").Inc()
		c.logger.Warn().Err(err).Str("endpoint", path).Msg("tracking request failed")
		return nil, fmt.Errorf("failed to send request to %s: %w", path, err)
	}

	metrics.TrackingRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != want {
		c.logger.Warn().
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Msg("unexpected backend status")
		return nil, &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	return resp.Body, nil
}
