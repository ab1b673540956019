package storage

// Persisted keys. Each piece of state lives under its own key so that a
// corrupt or partially written value only affects that piece.
const (
	KeyProfileID               = "rprofile_id"
	KeyDeviceID                = "device_id"
	KeySessionID               = "session_id"
	KeySessionTimestamp        = "session_timestamp"
	KeyCartData                = "cart_data"
	KeyWishlistData            = "wishlist_data"
	KeyPendingEngagementEvents = "pending_engagement_events"

	// Changes not yet acknowledged by the backend
	KeyProfileChanged  = "profile_changed"
	KeyDeviceChanged   = "device_changed"
	KeyCartChanged     = "cart_changed"
	KeyWishlistChanged = "wishlist_changed"
	KeyMergeProfileIDs = "merge_profile_ids"
)
