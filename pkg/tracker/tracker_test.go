package tracker

import (
	"errors"
	"sync"
	"testing"

	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/releva-ai/releva-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, storage.Store) {
	t.Helper()
	store := storage.NewPrefs(storage.NewMemoryStore(), "test")
	tr, err := New(store)
	require.NoError(t, err)
	return tr, store
}

func TestSetProfileIDRepeatedIsNoop(t *testing.T) {
	tr, _ := newTestTracker(t)

	changed, err := tr.SetProfileID("a")
	require.NoError(t, err)
	assert.True(t, changed)
	tr.AcknowledgeSend(tr.Snapshot())

	for i := 0; i < 3; i++ {
		changed, err = tr.SetProfileID("a")
		require.NoError(t, err)
		assert.False(t, changed)
	}

	s := tr.Snapshot()
	assert.False(t, s.ProfileChanged)
	assert.Empty(t, s.MergeProfileIDs)
}

func TestFirstProfileIsNotMerged(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.SetProfileID("a")
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.True(t, s.ProfileChanged)
	assert.Empty(t, s.MergeProfileIDs)
}

func TestReplacedProfileQueuedForMerge(t *testing.T) {
	tr, store := newTestTracker(t)

	_, err := tr.SetProfileID("a")
	require.NoError(t, err)
	_, err = tr.SetProfileID("b")
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.Equal(t, []string{"a"}, s.MergeProfileIDs)
	assert.Equal(t, "b", s.ProfileID)

	persisted, _, err := store.GetString(storage.KeyProfileID)
	require.NoError(t, err)
	assert.Equal(t, "b", persisted, "profile id is persisted immediately")

	tr.AcknowledgeSend(s)
	assert.Empty(t, tr.Snapshot().MergeProfileIDs)
}

func TestMergeKeepsEveryReplacement(t *testing.T) {
	tr, _ := newTestTracker(t)

	for _, id := range []string{"a", "b", "a", "b"} {
		_, err := tr.SetProfileID(id)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "a"}, tr.Snapshot().MergeProfileIDs)
}

func TestPersistedProfileCountsAsCurrent(t *testing.T) {
	store := storage.NewPrefs(storage.NewMemoryStore(), "test")
	require.NoError(t, store.SetString(storage.KeyProfileID, "from-last-run"))

	tr, err := New(store)
	require.NoError(t, err)

	changed, err := tr.SetProfileID("from-last-run")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = tr.SetProfileID("new")
	require.NoError(t, err)
	assert.Equal(t, []string{"from-last-run"}, tr.Snapshot().MergeProfileIDs)
}

func TestSetDeviceID(t *testing.T) {
	tr, store := newTestTracker(t)

	assert.ErrorIs(t, tr.Snapshot().RequireDevice(), ErrMissingDeviceID)

	changed, err := tr.SetDeviceID("d1")
	require.NoError(t, err)
	assert.True(t, changed)

	s := tr.Snapshot()
	assert.NoError(t, s.RequireDevice())
	assert.True(t, s.DeviceChanged)

	persisted, ok, err := store.GetString(storage.KeyDeviceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "d1", persisted)

	tr.AcknowledgeSend(s)
	changed, err = tr.SetDeviceID("d1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, tr.Snapshot().DeviceChanged)
}

func TestSetCartChangeDetection(t *testing.T) {
	tr, store := newTestTracker(t)

	c1 := types.ActiveCart([]types.CartProduct{types.NewCartProduct("x", 10, 1)})
	c2 := types.ActiveCart([]types.CartProduct{types.NewCartProduct("x", 10, 1)})

	changed, err := tr.SetCart(c1)
	require.NoError(t, err)
	assert.True(t, changed)
	first := tr.Snapshot()
	assert.True(t, first.CartChanged)

	changed, err = tr.SetCart(c2)
	require.NoError(t, err)
	assert.False(t, changed, "semantically identical cart is not a change")

	tr.AcknowledgeSend(first)
	changed, err = tr.SetCart(c2)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, tr.Snapshot().CartChanged)

	stored, _, err := store.GetString(storage.KeyCartData)
	require.NoError(t, err)
	want, _ := c1.Canonical()
	assert.Equal(t, want, stored)

	changed, err = tr.SetCart(types.PaidCart(c1.Products, "o-1"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestFirstCartIsDirtyEvenWhenEmpty(t *testing.T) {
	tr, _ := newTestTracker(t)

	changed, err := tr.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)
	assert.True(t, changed, "absent to empty is a change")
	assert.True(t, tr.Snapshot().CartChanged)
}

func TestClearCartToEmptyActive(t *testing.T) {
	tr, store := newTestTracker(t)

	_, err := tr.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)
	tr.AcknowledgeSend(tr.Snapshot())

	require.NoError(t, tr.ClearCartToEmptyActive())
	s := tr.Snapshot()
	assert.True(t, s.CartChanged, "clearing always marks the cart dirty")

	stored, _, err := store.GetString(storage.KeyCartData)
	require.NoError(t, err)
	assert.Equal(t, `{"products":[],"orderId":null,"cartPaid":false}`, stored)
}

func TestMarkCartChanged(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.MarkCartChanged()
	s := tr.Snapshot()
	assert.True(t, s.CartChanged)
	tr.AcknowledgeSend(s)
	assert.False(t, tr.Snapshot().CartChanged)
}

func TestSetWishlistRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		products []types.WishlistProduct
	}{
		{name: "empty", products: []types.WishlistProduct{}},
		{name: "ordered", products: []types.WishlistProduct{{ID: "b"}, {ID: "a"}}},
		{name: "duplicates", products: []types.WishlistProduct{{ID: "a"}, {ID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, store := newTestTracker(t)

			changed, err := tr.SetWishlist(tt.products)
			require.NoError(t, err)
			assert.True(t, changed)

			want, err := types.CanonicalWishlist(tt.products)
			require.NoError(t, err)

			stored, ok, err := store.GetStringList(storage.KeyWishlistData)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, stored)
			assert.Equal(t, want, tr.Snapshot().Wishlist)
		})
	}
}

func TestSetWishlistOrderSensitive(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.SetWishlist([]types.WishlistProduct{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	tr.AcknowledgeSend(tr.Snapshot())

	changed, err := tr.SetWishlist([]types.WishlistProduct{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = tr.SetWishlist([]types.WishlistProduct{{ID: "b"}, {ID: "a"}})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tr.Snapshot().WishlistChanged)
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.SetProfileID("a")
	require.NoError(t, err)
	_, err = tr.SetProfileID("b")
	require.NoError(t, err)

	s1 := tr.Snapshot()
	s1.MergeProfileIDs[0] = "tampered"
	s2 := tr.Snapshot()

	assert.Equal(t, []string{"a"}, s2.MergeProfileIDs)
	assert.True(t, s2.ProfileChanged)
}

func TestAcknowledgeSendIdempotent(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.SetDeviceID("d")
	require.NoError(t, err)
	_, err = tr.SetProfileID("a")
	require.NoError(t, err)
	_, err = tr.SetProfileID("b")
	require.NoError(t, err)
	_, err = tr.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)
	_, err = tr.SetWishlist(nil)
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.True(t, s.Dirty())

	tr.AcknowledgeSend(s)
	once := tr.Snapshot()
	tr.AcknowledgeSend(s)
	twice := tr.Snapshot()

	assert.False(t, once.Dirty())
	assert.Equal(t, once.ProfileChanged, twice.ProfileChanged)
	assert.Equal(t, once.MergeProfileIDs, twice.MergeProfileIDs)
	assert.False(t, twice.Dirty())
}

// TestAcknowledgeKeepsLaterChanges covers a mutation landing while a send is
// in flight: it must survive the acknowledgement of the earlier snapshot
func TestAcknowledgeKeepsLaterChanges(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.SetProfileID("a")
	require.NoError(t, err)
	_, err = tr.SetProfileID("b")
	require.NoError(t, err)

	inFlight := tr.Snapshot()

	_, err = tr.SetProfileID("c")
	require.NoError(t, err)
	_, err = tr.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)

	tr.AcknowledgeSend(inFlight)

	after := tr.Snapshot()
	assert.True(t, after.ProfileChanged)
	assert.True(t, after.CartChanged)
	assert.Equal(t, []string{"b"}, after.MergeProfileIDs)

	// A stale snapshot acknowledged again does not eat newer merges
	tr.AcknowledgeSend(inFlight)
	assert.Equal(t, []string{"b"}, tr.Snapshot().MergeProfileIDs)

	tr.AcknowledgeSend(after)
	assert.False(t, tr.Snapshot().Dirty())
}

type failingStore struct {
	storage.Store
}

var errDisk = errors.New("disk full")

func (failingStore) SetString(string, string) error               { return errDisk }
func (failingStore) SetStringList(string, []string) error         { return errDisk }
func (failingStore) GetString(string) (string, bool, error)       { return "", false, nil }
func (failingStore) GetStringList(string) ([]string, bool, error) { return nil, false, nil }
func (failingStore) GetBool(string) (bool, bool, error)           { return false, false, nil }
func (failingStore) SetBool(string, bool) error                   { return errDisk }

func TestPersistFailureLeavesStateUntouched(t *testing.T) {
	tr, err := New(failingStore{})
	require.NoError(t, err)

	_, err = tr.SetProfileID("a")
	assert.ErrorIs(t, err, errDisk)
	_, err = tr.SetCart(types.ActiveCart(nil))
	assert.ErrorIs(t, err, errDisk)
	_, err = tr.SetWishlist(nil)
	assert.ErrorIs(t, err, errDisk)
	assert.ErrorIs(t, tr.ClearCartToEmptyActive(), errDisk)

	s := tr.Snapshot()
	assert.False(t, s.Dirty())
	assert.False(t, s.HasProfile)
}

func TestNewLoadsPersistedState(t *testing.T) {
	store := storage.NewPrefs(storage.NewMemoryStore(), "test")
	require.NoError(t, store.SetString(storage.KeyDeviceID, "d1"))
	require.NoError(t, store.SetString(storage.KeyCartData, `{"products":[],"orderId":null,"cartPaid":false}`))
	require.NoError(t, store.SetStringList(storage.KeyWishlistData, []string{`{"id":"a","custom":{}}`}))

	tr, err := New(store)
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.Equal(t, "d1", s.DeviceID)
	assert.True(t, s.HasCart)
	assert.Equal(t, []string{`{"id":"a","custom":{}}`}, s.Wishlist)
	assert.False(t, s.Dirty(), "loaded state is not dirty")

	changed, err := tr.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)
	assert.False(t, changed, "same cart as persisted")
}

func TestPendingChangesSurviveRestart(t *testing.T) {
	store := storage.NewPrefs(storage.NewMemoryStore(), "test")
	first, err := New(store)
	require.NoError(t, err)

	_, err = first.SetDeviceID("d1")
	require.NoError(t, err)
	_, err = first.SetProfileID("p1")
	require.NoError(t, err)
	first.AcknowledgeSend(first.Snapshot())

	_, err = first.SetProfileID("p2")
	require.NoError(t, err)
	_, err = first.SetCart(types.ActiveCart(nil))
	require.NoError(t, err)

	second, err := New(store)
	require.NoError(t, err)
	s := second.Snapshot()
	assert.True(t, s.ProfileChanged)
	assert.True(t, s.CartChanged)
	assert.False(t, s.DeviceChanged)
	assert.False(t, s.WishlistChanged)
	assert.Equal(t, []string{"p1"}, s.MergeProfileIDs)

	second.AcknowledgeSend(s)

	third, err := New(store)
	require.NoError(t, err)
	assert.False(t, third.Snapshot().Dirty())
}

func TestLaterChangeSurvivesAckAcrossRestart(t *testing.T) {
	tr, store := newTestTracker(t)
	_, err := tr.SetProfileID("p1")
	require.NoError(t, err)
	_, err = tr.SetProfileID("p2")
	require.NoError(t, err)

	inFlight := tr.Snapshot()
	_, err = tr.SetProfileID("p3")
	require.NoError(t, err)
	tr.AcknowledgeSend(inFlight)

	reloaded, err := New(store)
	require.NoError(t, err)
	s := reloaded.Snapshot()
	assert.True(t, s.ProfileChanged)
	assert.Equal(t, []string{"p2"}, s.MergeProfileIDs)
}

func TestMarkCartChangedIsPersisted(t *testing.T) {
	tr, store := newTestTracker(t)
	tr.MarkCartChanged()

	v, ok, err := store.GetBool(storage.KeyCartChanged)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, v)
}

func TestConcurrentMutationsAndAcks(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.SetDeviceID("d")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = tr.SetCart(types.ActiveCart([]types.CartProduct{types.NewCartProduct("x", float64(i), float64(j))}))
				_, _ = tr.SetProfileID("p")
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.AcknowledgeSend(tr.Snapshot())
			}
		}()
	}
	wg.Wait()

	final := tr.Snapshot()
	tr.AcknowledgeSend(final)
	assert.False(t, tr.Snapshot().Dirty())
}
