package models

import (
	"math"
)

type Tier string

const (
	TierSilver    Tier = "silver"
	TierGold      Tier = "gold"
	TierDiamond   Tier = "diamond"
	TierPlatinum  Tier = "platinum"
	TierBlackGold Tier = "blackGold"
)

// TierOrder lists every tier from lowest to highest.
var TierOrder = []Tier{TierSilver, TierGold, TierDiamond, TierPlatinum, TierBlackGold}

type TierThreshold struct {
	Tier       Tier    `json:"tier" yaml:"tier"`
	MinBalance float64 `json:"min_balance" yaml:"min_balance"`
}

// TierSchedule is ordered from the lowest threshold to the highest.
type TierSchedule []TierThreshold

var DefaultTierSchedule = TierSchedule{
	{Tier: TierSilver, MinBalance: 0},
	{Tier: TierGold, MinBalance: 1000},
	{Tier: TierDiamond, MinBalance: 5000},
	{Tier: TierPlatinum, MinBalance: 20000},
	{Tier: TierBlackGold, MinBalance: 50000},
}

// Rank returns the position of t in TierOrder, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, candidate := range TierOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

func (t Tier) String() string {
	return string(t)
}

// Resolve returns the highest tier whose threshold is at or below balance.
// Non-finite and negative balances count as zero.
func (s TierSchedule) Resolve(balance float64) Tier {
	if math.IsNaN(balance) || math.IsInf(balance, 0) || balance < 0 {
		balance = 0
	}
	if len(s) == 0 {
		return TierOrder[0]
	}

	resolved := s[0].Tier
	for _, threshold := range s {
		if threshold.MinBalance <= balance {
			resolved = threshold.Tier
		}
	}
	return resolved
}

func TierFromBalance(balance float64) Tier {
	return DefaultTierSchedule.Resolve(balance)
}

func IsAtLeast(a, b Tier) bool {
	return a.Rank() >= b.Rank()
}

// TiersBetween returns the tiers ranked above from and up to and including to.
func TiersBetween(from, to Tier) []Tier {
	var tiers []Tier
	lo, hi := from.Rank(), to.Rank()
	for i, t := range TierOrder {
		if i > lo && i <= hi {
			tiers = append(tiers, t)
		}
	}
	return tiers
}
