package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vipclub/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateSeedsEntryCouponForFreshUser(t *testing.T) {
	f := newFixture(t)
	store := f.hydrated(models.TierSilver)

	require.True(t, store.Hydrated())
	claimed := store.ClaimedCoupons()
	require.Len(t, claimed, 1)
	assert.Equal(t, "c1", claimed[0].Coupon.CouponID)
	assert.Equal(t, models.CouponStatusAvailable, claimed[0].EffectiveStatus)
	assert.Equal(t, testStart, claimed[0].Coupon.ClaimedAt)

	_, err := store.Claim(context.Background(), "c1")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, 1, countInstances(store.ClaimedCoupons(), "c1"))
}

func TestHydrateSeedsFreeCouponsUnlockedByTier(t *testing.T) {
	f := newFixture(t)
	store := f.hydrated(models.TierDiamond)

	assert.ElementsMatch(t, []string{"c1", "gift-gold", "gift-diamond"}, couponIDs(store.ClaimedCoupons()))
}

func TestHydratePersistsSeedAndTier(t *testing.T) {
	f := newFixture(t)
	f.hydrated(models.TierGold)

	assert.Contains(t, f.blobs.raw(t, "user_coupons:u1"), `"couponId":"c1"`)
	assert.JSONEq(t, `{"tier":"gold"}`, f.blobs.raw(t, "user_last_tier:u1"))
}

func TestHydrateWithoutUser(t *testing.T) {
	f := newFixture(t)
	store := NewEntitlementStore(f.deps)
	store.Hydrate(context.Background(), "", models.TierGold)

	assert.True(t, store.Hydrated())
	assert.Empty(t, store.ClaimedCoupons())
	assert.Zero(t, f.blobs.setCount())

	_, err := store.Claim(context.Background(), "c1")
	require.ErrorIs(t, err, ErrNoUser)
}

func TestClaimNonRepeatableIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 10)
	store := f.hydrated(models.TierSilver)

	first, err := store.Claim(context.Background(), "once")
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusAvailable, first.Status)

	_, err = store.Claim(context.Background(), "once")
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	_, err = store.Redeem(context.Background(), first.ID)
	require.NoError(t, err)
	_, err = store.Claim(context.Background(), "once")
	require.ErrorIs(t, err, ErrAlreadyClaimed, "single-use coupons stay blocked after use")

	assert.Equal(t, 1, countInstances(store.ClaimedCoupons(), "once"))
	assert.Equal(t, int64(9), f.points(t))
}

func TestClaimNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 10)
	store := f.hydrated(models.TierSilver)

	_, err := store.Claim(context.Background(), "once")
	require.NoError(t, err)

	assert.Equal(t, []string{"once", "c1"}, couponIDs(store.ClaimedCoupons()))
}

func TestClaimTierGating(t *testing.T) {
	required := map[string]models.Tier{
		"c1":     models.TierSilver,
		"c9":     models.TierGold,
		"lounge": models.TierDiamond,
	}

	for _, userTier := range models.TierOrder {
		for couponID, needed := range required {
			t.Run(fmt.Sprintf("%s claims %s", userTier, couponID), func(t *testing.T) {
				f := newFixture(t)
				f.accounts.SetPoints(testUserID, 1000)
				store := NewEntitlementStore(f.deps)
				require.NoError(t, f.blobs.Set(context.Background(), "user_coupons:u1", "[]"))
				store.Hydrate(context.Background(), testUserID, userTier)

				_, err := store.Claim(context.Background(), couponID)
				if models.IsAtLeast(userTier, needed) {
					require.NoError(t, err)
					return
				}
				require.ErrorIs(t, err, ErrTierLocked)
				assert.Zero(t, countInstances(store.ClaimedCoupons(), couponID))
				assert.Equal(t, int64(1000), f.points(t))
			})
		}
	}
}

func TestClaimPointsGating(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 30)
	store := f.hydrated(models.TierGold)

	_, err := store.Claim(context.Background(), "c9")
	require.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Zero(t, countInstances(store.ClaimedCoupons(), "c9"))
	assert.Equal(t, int64(30), f.points(t))

	f.accounts.SetPoints(testUserID, 60)
	coupon, err := store.Claim(context.Background(), "c9")
	require.NoError(t, err)
	assert.Equal(t, "c9", coupon.CouponID)
	assert.Equal(t, 1, countInstances(store.ClaimedCoupons(), "c9"))
	assert.Equal(t, int64(10), f.points(t))

	spends := f.accounts.Spends()
	require.Len(t, spends, 1)
	assert.Equal(t, int64(50), spends[0].Amount)
	assert.Equal(t, "c9", spends[0].Metadata.CouponID)
}

func TestClaimRepeatableBlockedWhileUsable(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 200)
	store := f.hydrated(models.TierGold)

	first, err := store.Claim(context.Background(), "c9")
	require.NoError(t, err)

	_, err = store.Claim(context.Background(), "c9")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.Equal(t, int64(150), f.points(t), "declined claims spend nothing")

	_, err = store.Redeem(context.Background(), first.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := store.Claim(context.Background(), "c9")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, countInstances(store.ClaimedCoupons(), "c9"))
	assert.Equal(t, int64(100), f.points(t))
}

func TestClaimDeclinesUnknownAndExpiredDefinitions(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 100)
	store := f.hydrated(models.TierSilver)

	_, err := store.Claim(context.Background(), "nope")
	require.ErrorIs(t, err, ErrCouponNotFound)

	_, err = store.Claim(context.Background(), "old")
	require.ErrorIs(t, err, ErrCouponExpired)
	assert.Equal(t, int64(100), f.points(t))
}

func TestClaimLedgerFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	f.deps.Ledger = failingLedger{}
	store := f.hydrated(models.TierGold)

	_, err := store.Claim(context.Background(), "c9")
	require.ErrorIs(t, err, ErrPointsUnavailable)
	require.ErrorIs(t, err, errBackend)
	assert.NotErrorIs(t, err, ErrInsufficientPoints)
	assert.Zero(t, countInstances(store.ClaimedCoupons(), "c9"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Claims.WithLabelValues("points_unavailable")))
}

func TestConcurrentClaimsGrantExactlyOne(t *testing.T) {
	for _, couponID := range []string{"once", "c9"} {
		t.Run(couponID, func(t *testing.T) {
			f := newFixture(t)
			f.accounts.SetPoints(testUserID, 1000)
			store := f.hydrated(models.TierGold)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for i := 0; i < 3; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := store.Claim(context.Background(), couponID); err == nil {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, 1, countInstances(store.ClaimedCoupons(), couponID))
			assert.Len(t, f.accounts.Spends(), 1)
		})
	}
}

func TestExpiryIsDerivedAtReadTime(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 100)
	store := f.hydrated(models.TierSilver)

	snack, err := store.Claim(context.Background(), "snack")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	detail := store.GetCoupon("snack", snack.ID)
	require.NotNil(t, detail)
	require.NotNil(t, detail.Instance)
	assert.Equal(t, models.CouponStatusExpired, detail.Instance.EffectiveStatus)
	assert.True(t, detail.Instance.Expired)
	assert.Equal(t, models.CouponStatusAvailable, detail.Instance.Coupon.Status)

	segments := store.Segments()
	require.Len(t, segments.Expired, 1)
	assert.Equal(t, snack.ID, segments.Expired[0].Coupon.ID)
	assert.Contains(t, f.blobs.raw(t, "user_coupons:u1"), `"status":"available"`)
	assert.NotContains(t, f.blobs.raw(t, "user_coupons:u1"), `"status":"expired"`)

	_, err = store.Redeem(context.Background(), snack.ID)
	require.ErrorIs(t, err, ErrCouponExpired)

	_, err = store.Claim(context.Background(), "snack")
	require.ErrorIs(t, err, ErrCouponExpired)
}

func TestRedeemTransitionsOnce(t *testing.T) {
	f := newFixture(t)
	store := f.hydrated(models.TierSilver)
	instanceID := store.ClaimedCoupons()[0].Coupon.ID

	f.clock.Advance(time.Hour)
	used, err := store.Redeem(context.Background(), instanceID)
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	usedAt := *used.UsedAt
	assert.Equal(t, testStart.Add(time.Hour), usedAt)

	f.clock.Advance(time.Hour)
	_, err = store.Redeem(context.Background(), instanceID)
	require.ErrorIs(t, err, ErrCouponNotAvailable)

	detail := store.GetCoupon("c1", instanceID)
	require.NotNil(t, detail.Instance)
	assert.Equal(t, models.CouponStatusUsed, detail.Instance.Coupon.Status)
	assert.Equal(t, usedAt, *detail.Instance.Coupon.UsedAt)

	segments := store.Segments()
	assert.Len(t, segments.Used, 1)
	assert.Empty(t, segments.Available)

	_, err = store.Redeem(context.Background(), "missing")
	require.ErrorIs(t, err, ErrCouponNotFound)
}

func TestTierUpgradeGiftsEachCrossedTierOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store := f.hydrated(models.TierSilver)
	assert.Equal(t, []string{"c1"}, couponIDs(store.ClaimedCoupons()))

	f.clock.Advance(time.Hour)
	store.Refresh(ctx, models.TierDiamond)
	claimed := store.ClaimedCoupons()
	assert.Equal(t, 1, countInstances(claimed, "gift-gold"))
	assert.Equal(t, 1, countInstances(claimed, "gift-diamond"))
	assert.Equal(t, 1, countInstances(claimed, "c1"))
	assert.Len(t, claimed, 3)
	assert.JSONEq(t, `{"tier":"diamond"}`, f.blobs.raw(t, "user_last_tier:u1"))

	f.clock.Advance(time.Hour)
	store.Refresh(ctx, models.TierDiamond)
	assert.Len(t, store.ClaimedCoupons(), 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GiftsGranted.WithLabelValues("gold")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GiftsGranted.WithLabelValues("diamond")))
}

func TestFirstObservedTierRecordsBaselineOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.blobs.Set(context.Background(), "user_coupons:u1", "[]"))

	store := f.hydrated(models.TierDiamond)
	assert.Empty(t, store.ClaimedCoupons())
	assert.JSONEq(t, `{"tier":"diamond"}`, f.blobs.raw(t, "user_last_tier:u1"))
}

func TestTierDowngradeThenUpgradeDoesNotRegrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store := f.hydrated(models.TierSilver)
	store.Refresh(ctx, models.TierDiamond)
	store.Refresh(ctx, models.TierGold)
	assert.JSONEq(t, `{"tier":"gold"}`, f.blobs.raw(t, "user_last_tier:u1"))

	store.Refresh(ctx, models.TierDiamond)
	claimed := store.ClaimedCoupons()
	assert.Equal(t, 1, countInstances(claimed, "gift-diamond"))
	assert.Equal(t, 1, countInstances(claimed, "gift-gold"))
}

func TestCorruptTierRecordIsTreatedAsAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.blobs.Set(ctx, "user_coupons:u1", "[]"))
	require.NoError(t, f.blobs.Set(ctx, "user_last_tier:u1", `{"tier":"bronze"}`))

	store := f.hydrated(models.TierGold)
	assert.Empty(t, store.ClaimedCoupons())
	assert.JSONEq(t, `{"tier":"gold"}`, f.blobs.raw(t, "user_last_tier:u1"))
}

func TestRoundTripReproducesInstances(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 100)
	ctx := context.Background()

	store := f.hydrated(models.TierGold)
	c9, err := store.Claim(ctx, "c9")
	require.NoError(t, err)
	f.clock.Advance(1500 * time.Millisecond)
	_, err = store.Redeem(ctx, c9.ID)
	require.NoError(t, err)

	before := store.ClaimedCoupons()
	raw := f.blobs.raw(t, "user_coupons:u1")
	sets := f.blobs.setCount()

	reloaded := f.hydrated(models.TierGold)
	after := reloaded.ClaimedCoupons()

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Coupon.ID, after[i].Coupon.ID)
		assert.Equal(t, before[i].Coupon.Status, after[i].Coupon.Status)
		assert.True(t, before[i].Coupon.ClaimedAt.Equal(after[i].Coupon.ClaimedAt))
		if before[i].Coupon.UsedAt == nil {
			assert.Nil(t, after[i].Coupon.UsedAt)
		} else {
			require.NotNil(t, after[i].Coupon.UsedAt)
			assert.True(t, before[i].Coupon.UsedAt.Equal(*after[i].Coupon.UsedAt))
		}
	}
	assert.Equal(t, raw, f.blobs.raw(t, "user_coupons:u1"))
	assert.Equal(t, sets, f.blobs.setCount(), "unchanged state is not rewritten")
}

func TestInvalidCacheFailsClosedToSeed(t *testing.T) {
	cases := map[string]string{
		"not json":            `{{{`,
		"unknown status":      `[{"id":"c9-1","couponId":"c9","status":"available","claimedAt":"2025-05-01T00:00:00.000Z"},{"id":"x","couponId":"c1","status":"gone","claimedAt":"2025-05-01T00:00:00.000Z"}]`,
		"used without usedAt": `[{"id":"c9-1","couponId":"c9","status":"used","claimedAt":"2025-05-01T00:00:00.000Z"}]`,
		"duplicate ids":       `[{"id":"a","couponId":"c9","status":"available","claimedAt":"2025-05-01T00:00:00.000Z"},{"id":"a","couponId":"c1","status":"available","claimedAt":"2025-05-01T00:00:00.000Z"}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.blobs.Set(context.Background(), "user_coupons:u1", raw))

			store := f.hydrated(models.TierSilver)
			assert.Equal(t, []string{"c1"}, couponIDs(store.ClaimedCoupons()))
			assert.NotEqual(t, raw, f.blobs.raw(t, "user_coupons:u1"))
		})
	}
}

func TestLegacyExpiredStatusIsNormalised(t *testing.T) {
	f := newFixture(t)
	raw := `[{"id":"c9-1","couponId":"c9","status":"expired","claimedAt":"2025-05-01T00:00:00.000Z"}]`
	require.NoError(t, f.blobs.Set(context.Background(), "user_coupons:u1", raw))

	store := f.hydrated(models.TierGold)
	claimed := store.ClaimedCoupons()
	require.Len(t, claimed, 1)
	assert.Equal(t, models.CouponStatusAvailable, claimed[0].EffectiveStatus)
	assert.Contains(t, f.blobs.raw(t, "user_coupons:u1"), `"status":"available"`)
}

func TestUnknownDefinitionsAreFilteredFromViews(t *testing.T) {
	f := newFixture(t)
	raw := `[{"id":"retired-1","couponId":"retired","status":"available","claimedAt":"2025-05-01T00:00:00.000Z"},{"id":"c1-1","couponId":"c1","status":"available","claimedAt":"2025-05-01T00:00:00.000Z"}]`
	require.NoError(t, f.blobs.Set(context.Background(), "user_coupons:u1", raw))

	store := f.hydrated(models.TierSilver)
	assert.Equal(t, []string{"c1"}, couponIDs(store.ClaimedCoupons()))

	_, err := store.Redeem(context.Background(), "retired-1")
	require.ErrorIs(t, err, ErrCouponNotFound)
	assert.Contains(t, f.blobs.raw(t, "user_coupons:u1"), "retired-1", "unknown instances are kept in storage")
}

func TestStorageWriteFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 100)
	f.blobs.setFailures(false, true)
	ctx := context.Background()

	store := f.hydrated(models.TierSilver)
	assert.Equal(t, []string{"c1"}, couponIDs(store.ClaimedCoupons()))
	assert.True(t, store.Synced())
	require.ErrorIs(t, store.StorageErr(), errBackend)

	_, err := store.Claim(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, 2, len(store.ClaimedCoupons()))
	assert.Greater(t, testutil.ToFloat64(f.metrics.StorageErrors.WithLabelValues("set")), 0.0)

	f.blobs.setFailures(false, false)
	_, err = store.Claim(ctx, "snack")
	require.NoError(t, err)
	assert.NoError(t, store.StorageErr())
	assert.Contains(t, f.blobs.raw(t, "user_coupons:u1"), `"couponId":"once"`)
}

func TestReadFailureNeverOverwritesStoredCoupons(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 100)
	ctx := context.Background()

	store := f.hydrated(models.TierSilver)
	welcome := store.ClaimedCoupons()[0].Coupon.ID
	_, err := store.Redeem(ctx, welcome)
	require.NoError(t, err)
	_, err = store.Claim(ctx, "once")
	require.NoError(t, err)
	require.Equal(t, int64(99), f.points(t))

	storedCoupons := f.blobs.raw(t, "user_coupons:u1")
	storedTier := f.blobs.raw(t, "user_last_tier:u1")

	f.blobs.setFailures(true, false)
	reopened := f.hydrated(models.TierGold)
	assert.False(t, reopened.Synced())
	require.ErrorIs(t, reopened.StorageErr(), errBackend)
	assert.Equal(t, 1, countInstances(reopened.ClaimedCoupons(), "c1"), "defaults are served in memory")
	assert.Zero(t, countInstances(reopened.ClaimedCoupons(), "once"))
	assert.Equal(t, storedCoupons, f.blobs.raw(t, "user_coupons:u1"))
	assert.Equal(t, storedTier, f.blobs.raw(t, "user_last_tier:u1"))

	_, err = reopened.Claim(ctx, "once")
	require.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, int64(99), f.points(t))

	_, err = reopened.Redeem(ctx, reopened.ClaimedCoupons()[0].Coupon.ID)
	require.NoError(t, err, "free actions still work offline")
	assert.Equal(t, storedCoupons, f.blobs.raw(t, "user_coupons:u1"))

	f.blobs.setFailures(false, false)
	_, err = reopened.Claim(ctx, "once")
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.True(t, reopened.Synced())
	assert.Equal(t, int64(99), f.points(t))
	assert.Equal(t, 1, countInstances(reopened.ClaimedCoupons(), "gift-gold"), "gifts resume once the tier record is readable")

	detail := reopened.GetCoupon("c1", welcome)
	require.NotNil(t, detail)
	require.NotNil(t, detail.Instance)
	assert.Equal(t, models.CouponStatusUsed, detail.Instance.EffectiveStatus)
}

func TestTierReadFailureKeepsBaseline(t *testing.T) {
	f := newFixture(t)
	f.hydrated(models.TierSilver)

	f.blobs.failGetFor("user_last_tier:u1")
	store := f.hydrated(models.TierGold)
	assert.True(t, store.Synced())
	assert.Zero(t, countInstances(store.ClaimedCoupons(), "gift-gold"))
	assert.JSONEq(t, `{"tier":"silver"}`, f.blobs.raw(t, "user_last_tier:u1"))

	f.blobs.setFailures(false, false)
	store = f.hydrated(models.TierGold)
	assert.Equal(t, 1, countInstances(store.ClaimedCoupons(), "gift-gold"))
	assert.JSONEq(t, `{"tier":"gold"}`, f.blobs.raw(t, "user_last_tier:u1"))
}

func TestGetCoupon(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 500)
	ctx := context.Background()
	store := f.hydrated(models.TierGold)

	assert.Nil(t, store.GetCoupon("nope", ""))

	detail := store.GetCoupon("c9", "")
	require.NotNil(t, detail)
	assert.Equal(t, "c9", detail.Definition.ID)
	assert.Nil(t, detail.Instance)

	first, err := store.Claim(ctx, "c9")
	require.NoError(t, err)
	_, err = store.Redeem(ctx, first.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	detail = store.GetCoupon("c9", "")
	require.NotNil(t, detail.Instance)
	assert.Equal(t, first.ID, detail.Instance.Coupon.ID, "falls back to the latest instance")

	second, err := store.Claim(ctx, "c9")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	detail = store.GetCoupon("c9", "")
	assert.Equal(t, second.ID, detail.Instance.Coupon.ID, "prefers a usable instance")

	detail = store.GetCoupon("c9", first.ID)
	assert.Equal(t, first.ID, detail.Instance.Coupon.ID)
	assert.Nil(t, store.GetCoupon("c1", first.ID), "instance must match the coupon")
	assert.Nil(t, store.GetCoupon("c9", "missing"))
}

func TestOffers(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 500)
	ctx := context.Background()

	guest := NewEntitlementStore(f.deps)
	offers := guest.Offers()
	require.Len(t, offers, f.deps.Catalog.Len())
	for _, offer := range offers {
		assert.False(t, offer.Unlocked, offer.Definition.ID)
	}

	store := f.hydrated(models.TierSilver)
	unlocked := map[string]bool{}
	for _, offer := range store.Offers() {
		unlocked[offer.Definition.ID] = offer.Unlocked
	}
	assert.NotContains(t, unlocked, "c1", "held single-use coupons are not offered")
	assert.NotContains(t, unlocked, "old", "expired definitions are not offered")
	assert.True(t, unlocked["snack"])
	assert.False(t, unlocked["c9"])
	assert.False(t, unlocked["lounge"])

	_, err := store.Claim(ctx, "snack")
	require.NoError(t, err)
	for _, offer := range store.Offers() {
		assert.NotEqual(t, "snack", offer.Definition.ID, "usable instance hides the offer")
	}
}

func TestTeardownForgetsUser(t *testing.T) {
	f := newFixture(t)
	store := f.hydrated(models.TierGold)

	store.Teardown()
	assert.False(t, store.Hydrated())
	assert.Empty(t, store.UserID())
	assert.Empty(t, store.ClaimedCoupons())

	_, err := store.Claim(context.Background(), "c1")
	require.ErrorIs(t, err, ErrNoUser)
}

func TestClaimMetricsByOutcome(t *testing.T) {
	f := newFixture(t)
	f.accounts.SetPoints(testUserID, 60)
	store := f.hydrated(models.TierGold)
	ctx := context.Background()

	_, _ = store.Claim(ctx, "c9")
	_, _ = store.Claim(ctx, "c9")
	_, _ = store.Claim(ctx, "lounge")
	_, _ = store.Redeem(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Claims.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Claims.WithLabelValues("already_claimed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Claims.WithLabelValues("tier_locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Redemptions.WithLabelValues("not_found")))
}

func TestNewInstanceIDDisambiguatesCollisions(t *testing.T) {
	at := time.UnixMilli(1700000000000).UTC()
	base := "c9-1700000000000"

	assert.Equal(t, base, newInstanceID("c9", at, nil))

	existing := []models.UserCoupon{{ID: base}, {ID: base + "-2"}}
	assert.Equal(t, base+"-3", newInstanceID("c9", at, existing))
}
