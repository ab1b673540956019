package tracker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/rs/zerolog"
)

// ErrMissingDeviceID is returned when a send is attempted before a device id is known
var ErrMissingDeviceID = errors.New("device id is not set: call SetDeviceID before tracking")

// Tracker owns the identity, cart and wishlist mirrors and records which of
// them changed since the last acknowledged send. All state is guarded by a
// single mutex so a snapshot can never interleave with an acknowledgement.
type Tracker struct {
	store  storage.Store
	logger zerolog.Logger

	mu sync.Mutex

	profileID   string
	hasProfile  bool
	deviceID    string
	hasDevice   bool
	cart        string
	hasCart     bool
	wishlist    []string
	hasWishlist bool

	profileChanged bool
	deviceChanged  bool
	cartDirty      bool
	wishlistDirty  bool

	// rev increments on every mutation; each flag remembers the revision that
	// last set it so AcknowledgeSend only clears what the snapshot carried.
	rev         uint64
	profileRev  uint64
	deviceRev   uint64
	cartRev     uint64
	wishlistRev uint64

	mergeProfileIDs []string
	// mergeBase counts merge entries already acknowledged and dropped
	mergeBase uint64
}

// New creates a tracker and loads the persisted identity, cart and wishlist
// together with the changes no send has acknowledged yet, so a restarted
// process still reports them.
func New(store storage.Store) (*Tracker, error) {
	t := &Tracker{
		store:  store,
		logger: log.WithComponent("tracker"),
	}

	var err error
	if t.profileID, t.hasProfile, err = store.GetString(storage.KeyProfileID); err != nil {
		return nil, fmt.Errorf("failed to load profile id: %w", err)
	}
	if t.deviceID, t.hasDevice, err = store.GetString(storage.KeyDeviceID); err != nil {
		return nil, fmt.Errorf("failed to load device id: %w", err)
	}
	if t.cart, t.hasCart, err = store.GetString(storage.KeyCartData); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if t.wishlist, t.hasWishlist, err = store.GetStringList(storage.KeyWishlistData); err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	if err := t.loadPending(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tracker) loadPending() error {
	flags := []struct {
		key  string
		flag *bool
		rev  *uint64
	}{
		{storage.KeyProfileChanged, &t.profileChanged, &t.profileRev},
		{storage.KeyDeviceChanged, &t.deviceChanged, &t.deviceRev},
		{storage.KeyCartChanged, &t.cartDirty, &t.cartRev},
		{storage.KeyWishlistChanged, &t.wishlistDirty, &t.wishlistRev},
	}
	for _, f := range flags {
		v, _, err := t.store.GetBool(f.key)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", f.key, err)
		}
		if v {
			*f.flag = true
			*f.rev = t.bump()
		}
	}

	merges, _, err := t.store.GetStringList(storage.KeyMergeProfileIDs)
	if err != nil {
		return fmt.Errorf("failed to load pending merges: %w", err)
	}
	t.mergeProfileIDs = merges
	return nil
}

func (t *Tracker) persistFlag(key string, value bool) error {
	if err := t.store.SetBool(key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (t *Tracker) persistMerges() error {
	if err := t.store.SetStringList(storage.KeyMergeProfileIDs, t.mergeProfileIDs); err != nil {
		return fmt.Errorf("failed to persist pending merges: %w", err)
	}
	return nil
}

// SetProfileID records the active profile. Replacing a previous profile id
// queues the old id for merging on the next send. Setting the current value
// again is a no-op. It reports whether anything changed.
func (t *Tracker) SetProfileID(id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasProfile && t.profileID == id {
		return false, nil
	}

	if err := t.store.SetString(storage.KeyProfileID, id); err != nil {
		return false, fmt.Errorf("failed to persist profile id: %w", err)
	}

	merged := t.hasProfile
	if merged {
		t.mergeProfileIDs = append(t.mergeProfileIDs, t.profileID)
	}
	t.profileID = id
	t.hasProfile = true
	t.profileChanged = true
	t.profileRev = t.bump()

	t.logger.Debug().
		Str("profile_id", id).
		Int("pending_merges", len(t.mergeProfileIDs)).
		Msg("profile id changed")

	if merged {
		if err := t.persistMerges(); err != nil {
			return true, err
		}
	}
	return true, t.persistFlag(storage.KeyProfileChanged, true)
}

// SetDeviceID records the device identity. Setting the current value again is a no-op.
func (t *Tracker) SetDeviceID(id string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasDevice && t.deviceID == id {
		return false, nil
	}

	if err := t.store.SetString(storage.KeyDeviceID, id); err != nil {
		return false, fmt.Errorf("failed to persist device id: %w", err)
	}

	t.deviceID = id
	t.hasDevice = true
	t.deviceChanged = true
	t.deviceRev = t.bump()

	t.logger.Debug().Str("device_id", id).Msg("device id changed")
	return true, t.persistFlag(storage.KeyDeviceChanged, true)
}

// SetCart stores the cart when its canonical form differs from the stored one
// and marks the cart dirty. It reports whether the cart changed.
func (t *Tracker) SetCart(cart types.Cart) (bool, error) {
	serialized, err := cart.Canonical()
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasCart && t.cart == serialized {
		return false, nil
	}
	if err := t.storeCart(serialized); err != nil {
		return false, err
	}
	return true, nil
}

// ClearCartToEmptyActive stores an empty unpaid cart and marks the cart dirty
// even when the stored cart was already empty.
func (t *Tracker) ClearCartToEmptyActive() error {
	serialized, err := types.ActiveCart(nil).Canonical()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.storeCart(serialized)
}

// MarkCartChanged flags the cart dirty without touching the stored value
func (t *Tracker) MarkCartChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cartDirty = true
	t.cartRev = t.bump()
	if err := t.persistFlag(storage.KeyCartChanged, true); err != nil {
		t.logger.Warn().Err(err).Msg("cart change kept in memory only")
	}
}

func (t *Tracker) storeCart(serialized string) error {
	if err := t.store.SetString(storage.KeyCartData, serialized); err != nil {
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	t.cart = serialized
	t.hasCart = true
	t.cartDirty = true
	t.cartRev = t.bump()
	return t.persistFlag(storage.KeyCartChanged, true)
}

// SetWishlist stores the wishlist when its ordered canonical form differs from
// the stored one. Duplicates are kept as given.
func (t *Tracker) SetWishlist(products []types.WishlistProduct) (bool, error) {
	serialized, err := types.CanonicalWishlist(products)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasWishlist && equalStrings(t.wishlist, serialized) {
		return false, nil
	}

	if err := t.store.SetStringList(storage.KeyWishlistData, serialized); err != nil {
		return false, fmt.Errorf("failed to persist wishlist: %w", err)
	}
	t.wishlist = serialized
	t.hasWishlist = true
	t.wishlistDirty = true
	t.wishlistRev = t.bump()
	return true, t.persistFlag(storage.KeyWishlistChanged, true)
}

// Snapshot returns an immutable copy of the state a send should carry.
// It never mutates the tracker.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ProfileID:       t.profileID,
		HasProfile:      t.hasProfile,
		DeviceID:        t.deviceID,
		HasDevice:       t.hasDevice,
		ProfileChanged:  t.profileChanged,
		DeviceChanged:   t.deviceChanged,
		CartChanged:     t.cartDirty,
		WishlistChanged: t.wishlistDirty,
		MergeProfileIDs: append([]string{}, t.mergeProfileIDs...),
		Cart:            t.cart,
		HasCart:         t.hasCart,
		Wishlist:        append([]string{}, t.wishlist...),
		revs: revisions{
			profile:  t.profileRev,
			device:   t.deviceRev,
			cart:     t.cartRev,
			wishlist: t.wishlistRev,
			mergeEnd: t.mergeBase + uint64(len(t.mergeProfileIDs)),
		},
	}
	return s
}

// AcknowledgeSend clears the dirty state carried by a delivered snapshot.
// Flags raised again after the snapshot was taken stay set, and merge ids
// queued after it stay queued. Acknowledging the same snapshot twice is a no-op.
// Call it only once the backend has confirmed delivery.
func (t *Tracker) AcknowledgeSend(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cleared := make([]string, 0, 4)
	if t.profileChanged && t.profileRev == s.revs.profile {
		t.profileChanged = false
		cleared = append(cleared, storage.KeyProfileChanged)
	}
	if t.deviceChanged && t.deviceRev == s.revs.device {
		t.deviceChanged = false
		cleared = append(cleared, storage.KeyDeviceChanged)
	}
	if t.cartDirty && t.cartRev == s.revs.cart {
		t.cartDirty = false
		cleared = append(cleared, storage.KeyCartChanged)
	}
	if t.wishlistDirty && t.wishlistRev == s.revs.wishlist {
		t.wishlistDirty = false
		cleared = append(cleared, storage.KeyWishlistChanged)
	}

	mergesAcked := false
	if s.revs.mergeEnd > t.mergeBase && len(t.mergeProfileIDs) > 0 {
		n := s.revs.mergeEnd - t.mergeBase
		if n > uint64(len(t.mergeProfileIDs)) {
			n = uint64(len(t.mergeProfileIDs))
		}
		t.mergeProfileIDs = append([]string(nil), t.mergeProfileIDs[n:]...)
		t.mergeBase += n
		mergesAcked = true
	}

	// a failed write only means the change is reported again after a restart
	for _, key := range cleared {
		if err := t.persistFlag(key, false); err != nil {
			t.logger.Warn().Err(err).Msg("failed to clear acknowledged change")
		}
	}
	if mergesAcked {
		if err := t.persistMerges(); err != nil {
			t.logger.Warn().Err(err).Msg("failed to clear acknowledged merges")
		}
	}
}

// ProfileID returns the current profile id
func (t *Tracker) ProfileID() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.profileID, t.hasProfile
}

// DeviceID returns the current device id
func (t *Tracker) DeviceID() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deviceID, t.hasDevice
}

func (t *Tracker) bump() uint64 {
	t.rev++
	return t.rev
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
