package catalog

import (
	"time"

	"vipclub/internal/models"
)

const (
	WelcomeCouponID = "welcome-drink"
)

var defaultValidTo = time.Date(2030, time.December, 31, 23, 59, 59, 0, time.UTC)

// Default returns the catalog shipped with the app when no catalog file is configured.
func Default() *Catalog {
	c, err := New(Spec{
		EntryCoupon: WelcomeCouponID,
		Schedule:    models.DefaultTierSchedule,
		Coupons: []models.CouponDefinition{
			{ID: WelcomeCouponID, Title: "Welcome drink", Tier: models.TierSilver, ValidTo: defaultValidTo, Repeatable: false},
			{ID: "birthday-dessert", Title: "Birthday dessert", Tier: models.TierSilver, ValidTo: defaultValidTo, Repeatable: true, CostPoints: 100},
			{ID: "gold-upgrade-gift", Title: "Gold member gift", Tier: models.TierGold, ValidTo: defaultValidTo, Repeatable: false},
			{ID: "gold-coffee", Title: "Free coffee", Tier: models.TierGold, ValidTo: defaultValidTo, Repeatable: true, CostPoints: 50},
			{ID: "diamond-upgrade-gift", Title: "Diamond member gift", Tier: models.TierDiamond, ValidTo: defaultValidTo, Repeatable: false},
			{ID: "diamond-lounge", Title: "Lounge access", Tier: models.TierDiamond, ValidTo: defaultValidTo, Repeatable: true, CostPoints: 300},
			{ID: "platinum-upgrade-gift", Title: "Platinum member gift", Tier: models.TierPlatinum, ValidTo: defaultValidTo, Repeatable: false},
			{ID: "platinum-dinner", Title: "Chef's table dinner", Tier: models.TierPlatinum, ValidTo: defaultValidTo, Repeatable: true, CostPoints: 1000},
			{ID: "blackgold-upgrade-gift", Title: "Black gold member gift", Tier: models.TierBlackGold, ValidTo: defaultValidTo, Repeatable: false},
			{ID: "blackgold-concierge", Title: "Personal concierge day", Tier: models.TierBlackGold, ValidTo: defaultValidTo, Repeatable: false, CostPoints: 2500},
		},
		TierGifts: map[models.Tier][]string{
			models.TierGold:      {"gold-upgrade-gift"},
			models.TierDiamond:   {"diamond-upgrade-gift"},
			models.TierPlatinum:  {"platinum-upgrade-gift"},
			models.TierBlackGold: {"blackgold-upgrade-gift"},
		},
	})
	if err != nil {
		panic("catalog: invalid default catalog: " + err.Error())
	}
	return c
}
