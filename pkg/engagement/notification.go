package engagement

import "context"

// Notification payload keys set by the backend on push messages
const (
	ClickActionKey = "click_action"
	CallbackURLKey = "callbackUrl"

	// ClickAction marks a push message as sent by Releva
	ClickAction = "RELEVA_NOTIFICATION_CLICK"
)

// IsRelevaMessage reports whether push message data was sent by Releva
func IsRelevaMessage(data map[string]string) bool {
	return data[ClickActionKey] == ClickAction
}

// TrackEngagement enqueues the callback URL carried by a Releva push message.
// Other messages and messages without a callback URL are ignored. It reports
// whether a URL was enqueued.
func (q *Queue) TrackEngagement(ctx context.Context, data map[string]string) (bool, error) {
	if !IsRelevaMessage(data) {
		return false, nil
	}
	url, ok := data[CallbackURLKey]
	if !ok || url == "" {
		return false, nil
	}
	if err := q.Enqueue(ctx, url); err != nil {
		return false, err
	}
	return true, nil
}
