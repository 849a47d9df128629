package services

import (
	"errors"
)

// Declined operations. None of them change state.
var (
	ErrNoUser             = errors.New("no user session")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrTierLocked         = errors.New("coupon requires a higher tier")
	ErrAlreadyClaimed     = errors.New("coupon already claimed")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrCouponNotAvailable = errors.New("coupon is not available")
	ErrPointsUnavailable  = errors.New("points ledger unavailable")
	ErrStorageUnavailable = errors.New("stored coupons unavailable")
)

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoUser):
		return "no_user"
	case errors.Is(err, ErrCouponNotFound):
		return "not_found"
	case errors.Is(err, ErrCouponExpired):
		return "expired"
	case errors.Is(err, ErrTierLocked):
		return "tier_locked"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrCouponNotAvailable):
		return "not_available"
	case errors.Is(err, ErrPointsUnavailable):
		return "points_unavailable"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
