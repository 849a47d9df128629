package interfaces

import (
	"context"
)

type SpendMetadata struct {
	CouponID string `json:"coupon_id"`
}

type PointsLedger interface {
	// SpendPoints deducts amount from the user's point balance. It returns
	// false without error when the balance is insufficient.
	SpendPoints(ctx context.Context, userID string, amount int64, metadata SpendMetadata) (bool, error)
	GetPoints(ctx context.Context, userID string) (int64, error)
}

type AccountRepository interface {
	// GetBalance returns the cumulative account balance used for tier resolution
	GetBalance(ctx context.Context, userID string) (float64, error)
}
