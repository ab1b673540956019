package tracker

// Snapshot is an immutable view of tracked state taken when a request is composed
type Snapshot struct {
	ProfileID  string
	HasProfile bool
	DeviceID   string
	HasDevice  bool

	ProfileChanged  bool
	DeviceChanged   bool
	CartChanged     bool
	WishlistChanged bool

	MergeProfileIDs []string

	// Cart is the canonical serialized cart, valid when HasCart is set
	Cart    string
	HasCart bool
	// Wishlist holds one canonical serialized product per entry
	Wishlist []string

	revs revisions
}

type revisions struct {
	profile  uint64
	device   uint64
	cart     uint64
	wishlist uint64
	mergeEnd uint64
}

// RequireDevice fails with ErrMissingDeviceID when no device id is known
func (s Snapshot) RequireDevice() error {
	if !s.HasDevice || s.DeviceID == "" {
		return ErrMissingDeviceID
	}
	return nil
}

// Dirty reports whether any tracked state is waiting to be acknowledged
func (s Snapshot) Dirty() bool {
	return s.ProfileChanged || s.DeviceChanged || s.CartChanged ||
		s.WishlistChanged || len(s.MergeProfileIDs) > 0
}
