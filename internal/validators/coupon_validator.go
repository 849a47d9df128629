package validators

import (
	"fmt"

	"vipclub/internal/models"

	"github.com/go-playground/validator/v10"
)

// StoredCouponRecord is the persisted shape of a user coupon. Field names
// match the blobs written by earlier app versions.
type StoredCouponRecord struct {
	ID        string  `json:"id" validate:"required"`
	CouponID  string  `json:"couponId" validate:"required"`
	Status    string  `json:"status" validate:"required,coupon_status"`
	ClaimedAt string  `json:"claimedAt" validate:"required,rfc3339"`
	UsedAt    *string `json:"usedAt,omitempty" validate:"omitempty,rfc3339"`
}

type TierRecord struct {
	Tier string `json:"tier" validate:"required,tier"`
}

// ValidateStoredCoupons checks every record and rejects duplicate ids.
// Any failure invalidates the whole list.
func ValidateStoredCoupons(records []StoredCouponRecord) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if errs := ValidateStruct(&records[i]); len(errs) > 0 {
			return fmt.Errorf("record %d: %w", i, errs)
		}
		if _, dup := seen[records[i].ID]; dup {
			return fmt.Errorf("record %d: %w: %s", i, ErrDuplicateInstanceID, records[i].ID)
		}
		seen[records[i].ID] = struct{}{}
	}
	return nil
}

func ValidateTierRecord(record *TierRecord) error {
	if errs := ValidateStruct(record); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTier, errs.Error())
	}
	return nil
}

// validateStoredCouponUsage enforces that usedAt is present exactly when the
// coupon is used.
func validateStoredCouponUsage(sl validator.StructLevel) {
	record := sl.Current().Interface().(StoredCouponRecord)
	used := models.CouponStatus(record.Status) == models.CouponStatusUsed

	if used && record.UsedAt == nil {
		sl.ReportError(record.UsedAt, "usedAt", "UsedAt", "used_at_required", "")
	}
	if !used && record.UsedAt != nil {
		sl.ReportError(record.UsedAt, "usedAt", "UsedAt", "used_at_forbidden", "")
	}
}
