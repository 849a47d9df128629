package services

import (
	"context"
	"time"

	"vipclub/internal/models"
)

// reconcileTierGifts compares the tier recorded on the previous hydrate with
// the current one. On an upgrade it grants the gifts of every tier crossed,
// skipping gifts already held. The current tier is recorded afterwards, so a
// first hydrate only sets the baseline. When the record cannot be read nothing
// is granted or written, so the next hydrate still sees the old baseline.
// Called with s.mu held.
func (s *EntitlementStore) reconcileTierGifts(ctx context.Context, userID string, tier models.Tier, coupons []models.UserCoupon, now time.Time) []models.UserCoupon {
	if !tier.Valid() {
		return coupons
	}

	log := s.deps.Logger.WithUserID(userID)
	key := s.deps.Keys.Tier(userID)

	raw, found, err := s.load(ctx, key)
	if err != nil {
		return coupons
	}

	var last models.Tier
	if found {
		decoded, err := decodeTier(raw)
		if err != nil {
			log.WithError(err).Warn("Ignoring invalid last observed tier")
		} else {
			last = decoded
		}
	}

	if last != "" && tier.Rank() > last.Rank() {
		for _, crossed := range models.TiersBetween(last, tier) {
			for _, giftID := range s.deps.Catalog.GiftsFor(crossed) {
				def, ok := s.deps.Catalog.Get(giftID)
				if !ok || def.ExpiredAt(now) || holdsAnyInstance(coupons, giftID) {
					continue
				}
				gift := newUserCoupon(giftID, now, coupons)
				coupons = append([]models.UserCoupon{gift}, coupons...)

				s.deps.Metrics.Gift(string(crossed))
				log.LogCouponEvent(userID, "gifted", map[string]interface{}{
					"coupon_id":   giftID,
					"instance_id": gift.ID,
					"tier":        string(crossed),
				})
			}
		}
	}

	if last != tier {
		encoded, err := encodeTier(tier)
		if err != nil {
			log.WithError(err).Error("Failed to encode tier")
			return coupons
		}
		s.save(ctx, key, encoded)
	}
	return coupons
}
