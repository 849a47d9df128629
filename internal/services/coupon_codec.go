package services

import (
	"encoding/json"
	"fmt"
	"time"

	"vipclub/internal/models"
	"vipclub/internal/validators"
)

// isoLayout matches the millisecond ISO-8601 timestamps already in storage.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func encodeCoupons(coupons []models.UserCoupon) (string, error) {
	records := make([]validators.StoredCouponRecord, 0, len(coupons))
	for _, c := range coupons {
		record := validators.StoredCouponRecord{
			ID:        c.ID,
			CouponID:  c.CouponID,
			Status:    string(c.Status),
			ClaimedAt: formatTimestamp(c.ClaimedAt),
		}
		if c.UsedAt != nil {
			usedAt := formatTimestamp(*c.UsedAt)
			record.UsedAt = &usedAt
		}
		records = append(records, record)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode coupons: %w", err)
	}
	return string(data), nil
}

// decodeCoupons parses and validates a stored coupon list. Any invalid record
// rejects the whole list.
func decodeCoupons(raw string) ([]models.UserCoupon, error) {
	var records []validators.StoredCouponRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to decode coupons: %w", err)
	}
	if err := validators.ValidateStoredCoupons(records); err != nil {
		return nil, err
	}

	coupons := make([]models.UserCoupon, 0, len(records))
	for _, record := range records {
		claimedAt, _ := time.Parse(time.RFC3339, record.ClaimedAt)
		coupon := models.UserCoupon{
			ID:        record.ID,
			CouponID:  record.CouponID,
			Status:    models.CouponStatus(record.Status),
			ClaimedAt: claimedAt.UTC(),
		}
		// Older app versions persisted derived expiry; it is recomputed on read.
		if coupon.Status == models.CouponStatusExpired {
			coupon.Status = models.CouponStatusAvailable
		}
		if record.UsedAt != nil {
			usedAt, _ := time.Parse(time.RFC3339, *record.UsedAt)
			usedAt = usedAt.UTC()
			coupon.UsedAt = &usedAt
		}
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

func encodeTier(tier models.Tier) (string, error) {
	data, err := json.Marshal(validators.TierRecord{Tier: string(tier)})
	if err != nil {
		return "", fmt.Errorf("failed to encode tier: %w", err)
	}
	return string(data), nil
}

func decodeTier(raw string) (models.Tier, error) {
	var record validators.TierRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return "", fmt.Errorf("failed to decode tier: %w", err)
	}
	if err := validators.ValidateTierRecord(&record); err != nil {
		return "", err
	}
	return models.Tier(record.Tier), nil
}
