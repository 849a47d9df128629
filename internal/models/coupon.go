package models

import (
	"time"
)

type CouponStatus string

const (
	CouponStatusAvailable CouponStatus = "available"
	CouponStatusUsed      CouponStatus = "used"
	// CouponStatusExpired is never stored; it is derived from ValidTo at read time.
	CouponStatusExpired CouponStatus = "expired"
)

type CouponDefinition struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title,omitempty" yaml:"title"`
	Tier       Tier       `json:"tier" yaml:"tier"`
	ValidFrom  *time.Time `json:"valid_from,omitempty" yaml:"valid_from"`
	ValidTo    time.Time  `json:"valid_to" yaml:"valid_to"`
	Repeatable bool       `json:"repeatable" yaml:"repeatable"`
	CostPoints int64      `json:"cost_points" yaml:"cost_points"`
}

// ExpiredAt reports whether the definition's validity window has closed.
func (d *CouponDefinition) ExpiredAt(now time.Time) bool {
	return !d.ValidTo.IsZero() && now.After(d.ValidTo)
}

// UserCoupon is one grant of a CouponDefinition to a user.
type UserCoupon struct {
	ID        string       `json:"id"`
	CouponID  string       `json:"coupon_id"`
	Status    CouponStatus `json:"status"`
	ClaimedAt time.Time    `json:"claimed_at"`
	UsedAt    *time.Time   `json:"used_at,omitempty"`
}

func (c *UserCoupon) EffectiveStatus(def *CouponDefinition, now time.Time) CouponStatus {
	if c.Status == CouponStatusUsed {
		return CouponStatusUsed
	}
	if def != nil && def.ExpiredAt(now) {
		return CouponStatusExpired
	}
	return CouponStatusAvailable
}

// IsUsable reports whether the instance can still be shown at checkout.
func (c *UserCoupon) IsUsable(def *CouponDefinition, now time.Time) bool {
	return c.EffectiveStatus(def, now) == CouponStatusAvailable
}

// MarkUsed flips an available coupon to used. It reports false when the
// coupon was not available.
func (c *UserCoupon) MarkUsed(at time.Time) bool {
	if c.Status != CouponStatusAvailable {
		return false
	}
	c.Status = CouponStatusUsed
	usedAt := at
	c.UsedAt = &usedAt
	return true
}

type ClaimedCoupon struct {
	Coupon          UserCoupon       `json:"coupon"`
	Definition      CouponDefinition `json:"definition"`
	EffectiveStatus CouponStatus     `json:"effective_status"`
	Expired         bool             `json:"expired"`
}

type CouponSegments struct {
	Available []ClaimedCoupon `json:"available"`
	Used      []ClaimedCoupon `json:"used"`
	Expired   []ClaimedCoupon `json:"expired"`
}

type Offer struct {
	Definition CouponDefinition `json:"definition"`
	Unlocked   bool             `json:"unlocked"`
}

type CouponDetail struct {
	Definition CouponDefinition `json:"definition"`
	Instance   *ClaimedCoupon   `json:"instance,omitempty"`
}
