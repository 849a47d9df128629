package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vipclub/internal/catalog"
	"vipclub/internal/models"
	"vipclub/internal/repositories/interfaces"
	"vipclub/internal/repositories/memory"
	"vipclub/pkg/metrics"

	"github.com/stretchr/testify/require"
)

var (
	testStart   = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	farFuture   = time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC)
	errBackend  = errors.New("backend unavailable")
	testUserID  = "u1"
	testDevice  = "device-1"
	expiringEnd = testStart.Add(24 * time.Hour)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyBlobs wraps a memory repository and can be told to fail.
type flakyBlobs struct {
	inner interfaces.BlobRepository

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	failKeys map[string]bool
	sets     int
}

func newFlakyBlobs() *flakyBlobs {
	return &flakyBlobs{inner: memory.NewBlobRepository()}
}

func (f *flakyBlobs) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet || f.failKeys[key]
	f.mu.Unlock()
	if fail {
		return "", false, errBackend
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyBlobs) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	fail := f.failSet
	if !fail {
		f.sets++
	}
	f.mu.Unlock()
	if fail {
		return errBackend
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyBlobs) setFailures(get, set bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = get
	f.failSet = set
	f.failKeys = nil
}

// failGetFor makes reads of key fail until the next setFailures.
func (f *flakyBlobs) failGetFor(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys == nil {
		f.failKeys = make(map[string]bool)
	}
	f.failKeys[key] = true
}

func (f *flakyBlobs) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

func (f *flakyBlobs) raw(t *testing.T, key string) string {
	t.Helper()
	value, found, err := f.inner.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found, "expected %s to be stored", key)
	return value
}

type failingLedger struct{}

func (failingLedger) SpendPoints(ctx context.Context, userID string, amount int64, meta interfaces.SpendMetadata) (bool, error) {
	return false, errBackend
}

func (failingLedger) GetPoints(ctx context.Context, userID string) (int64, error) {
	return 0, errBackend
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.Spec{
		EntryCoupon: "c1",
		Coupons: []models.CouponDefinition{
			{ID: "c1", Tier: models.TierSilver, ValidTo: farFuture, Repeatable: false},
			{ID: "c9", Tier: models.TierGold, ValidTo: farFuture, Repeatable: true, CostPoints: 50},
			{ID: "once", Tier: models.TierSilver, ValidTo: farFuture, Repeatable: false, CostPoints: 1},
			{ID: "snack", Tier: models.TierSilver, ValidTo: expiringEnd, Repeatable: true, CostPoints: 5},
			{ID: "old", Tier: models.TierSilver, ValidTo: testStart.Add(-time.Hour), Repeatable: true, CostPoints: 10},
			{ID: "lounge", Tier: models.TierDiamond, ValidTo: farFuture, Repeatable: true, CostPoints: 20},
			{ID: "gift-gold", Tier: models.TierGold, ValidTo: farFuture, Repeatable: false},
			{ID: "gift-diamond", Tier: models.TierDiamond, ValidTo: farFuture, Repeatable: false},
		},
		TierGifts: map[models.Tier][]string{
			models.TierGold:    {"gift-gold"},
			models.TierDiamond: {"gift-diamond"},
		},
	})
	require.NoError(t, err)
	return c
}

type fixture struct {
	clock    *fakeClock
	blobs    *flakyBlobs
	accounts *memory.AccountRepository
	metrics  *metrics.Recorder
	deps     EntitlementDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    newFakeClock(),
		blobs:    newFlakyBlobs(),
		accounts: memory.NewAccountRepository(),
		metrics:  metrics.NewRecorder(nil),
	}
	f.deps = EntitlementDeps{
		Catalog: newTestCatalog(t),
		Blobs:   f.blobs,
		Ledger:  f.accounts,
		Clock:   f.clock,
		Metrics: f.metrics,
	}
	return f
}

func (f *fixture) hydrated(tier models.Tier) *EntitlementStore {
	store := NewEntitlementStore(f.deps)
	store.Hydrate(context.Background(), testUserID, tier)
	return store
}

func (f *fixture) points(t *testing.T) int64 {
	t.Helper()
	points, err := f.accounts.GetPoints(context.Background(), testUserID)
	require.NoError(t, err)
	return points
}

func countInstances(coupons []models.ClaimedCoupon, couponID string) int {
	n := 0
	for _, c := range coupons {
		if c.Coupon.CouponID == couponID {
			n++
		}
	}
	return n
}

func couponIDs(coupons []models.ClaimedCoupon) []string {
	ids := make([]string, 0, len(coupons))
	for _, c := range coupons {
		ids = append(ids, c.Coupon.CouponID)
	}
	return ids
}
