package client

import (
	"context"

	"github.com/releva-ai/releva-go/pkg/engagement"
	"github.com/releva-ai/releva-go/pkg/events"
	"github.com/releva-ai/releva-go/pkg/metrics"
)

var notificationEvents = map[engagement.Result]events.EventType{
	engagement.ResultEnqueued:  events.EventEngagementEnqueued,
	engagement.ResultDelivered: events.EventEngagementDelivered,
	engagement.ResultRequeued:  events.EventEngagementRequeued,
}

// EnablePushEngagementTracking loads pending engagement callbacks and starts
// their periodic delivery. Calling it again has no effect.
func (c *Client) EnablePushEngagementTracking() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engagement != nil {
		return nil
	}

	queue := engagement.New(c.store, c.transport,
		engagement.WithChecker(c.checker),
		engagement.WithInterval(c.cfg.FlushInterval),
		engagement.WithNotifier(c.publishEngagement),
	)
	if err := queue.Initialize(); err != nil {
		return err
	}
	c.engagement = queue

	c.logger.Debug().Int("pending", queue.PendingCount()).Msg("push engagement tracking enabled")
	return nil
}

func (c *Client) publishEngagement(n engagement.Notification) {
	event := &events.Event{
		Type:     notificationEvents[n.Result],
		Message:  n.URL,
		Metadata: map[string]string{"url": n.URL},
	}
	switch {
	case n.Err != nil:
		event.Metadata["error"] = n.Err.Error()
		metrics.UpdateComponent(metrics.ComponentQueue, false, n.Err.Error())
	case n.Result == engagement.ResultDelivered:
		metrics.UpdateComponent(metrics.ComponentQueue, true, "")
	}
	c.broker.Publish(event)
}

func (c *Client) queue() (*engagement.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engagement == nil {
		return nil, ErrEngagementNotEnabled
	}
	return c.engagement, nil
}

// TrackEngagement queues the callback of a Releva push message for delivery.
// It reports whether the message carried a callback. Delivery failures are
// retried in the background and never returned.
func (c *Client) TrackEngagement(ctx context.Context, data map[string]string) (bool, error) {
	q, err := c.queue()
	if err != nil {
		return false, err
	}
	return q.TrackEngagement(ctx, data)
}

// FlushPendingEngagementEvents attempts delivery of every pending callback now
func (c *Client) FlushPendingEngagementEvents(ctx context.Context) error {
	q, err := c.queue()
	if err != nil {
		return err
	}
	q.Flush(ctx)
	return nil
}

// PendingEngagementCount returns the number of undelivered callbacks
func (c *Client) PendingEngagementCount() int {
	q, err := c.queue()
	if err != nil {
		return 0
	}
	return q.PendingCount()
}

// PendingEngagementEvents returns the undelivered callback URLs in order
func (c *Client) PendingEngagementEvents() []string {
	q, err := c.queue()
	if err != nil {
		return nil
	}
	return q.Pending()
}
