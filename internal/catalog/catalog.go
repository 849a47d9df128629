// Package catalog holds the immutable coupon reference data: definitions, the
// entry coupon granted to new members and the gifts attached to each tier.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"vipclub/internal/models"

	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateCoupon = errors.New("duplicate coupon id")
	ErrInvalidTier     = errors.New("invalid tier")
	ErrUnknownGift     = errors.New("gift references unknown coupon")
)

type Catalog struct {
	definitions []models.CouponDefinition
	byID        map[string]int
	entryID     string
	gifts       map[models.Tier][]string
	schedule    models.TierSchedule
}

type Spec struct {
	EntryCoupon string
	Coupons     []models.CouponDefinition
	TierGifts   map[models.Tier][]string
	Schedule    models.TierSchedule
}

// New validates spec and builds a Catalog. The definitions are copied.
func New(spec Spec) (*Catalog, error) {
	c := &Catalog{
		definitions: make([]models.CouponDefinition, 0, len(spec.Coupons)),
		byID:        make(map[string]int, len(spec.Coupons)),
		entryID:     spec.EntryCoupon,
		gifts:       make(map[models.Tier][]string, len(spec.TierGifts)),
		schedule:    append(models.TierSchedule(nil), spec.Schedule...),
	}
	if len(c.schedule) == 0 {
		c.schedule = append(models.TierSchedule(nil), models.DefaultTierSchedule...)
	}
	for _, threshold := range c.schedule {
		if !threshold.Tier.Valid() {
			return nil, fmt.Errorf("tier schedule: %w: %q", ErrInvalidTier, threshold.Tier)
		}
	}
	sort.SliceStable(c.schedule, func(i, j int) bool {
		return c.schedule[i].MinBalance < c.schedule[j].MinBalance
	})

	for _, def := range spec.Coupons {
		if def.ID == "" {
			return nil, errors.New("coupon id is required")
		}
		if _, exists := c.byID[def.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCoupon, def.ID)
		}
		if !def.Tier.Valid() {
			return nil, fmt.Errorf("coupon %s: %w: %q", def.ID, ErrInvalidTier, def.Tier)
		}
		if def.CostPoints < 0 {
			def.CostPoints = 0
		}
		c.byID[def.ID] = len(c.definitions)
		c.definitions = append(c.definitions, def)
	}

	if c.entryID != "" {
		if _, ok := c.byID[c.entryID]; !ok {
			return nil, fmt.Errorf("entry coupon %s: %w", c.entryID, ErrUnknownGift)
		}
	}
	for tier, ids := range spec.TierGifts {
		if !tier.Valid() {
			return nil, fmt.Errorf("tier gifts: %w: %q", ErrInvalidTier, tier)
		}
		for _, id := range ids {
			if _, ok := c.byID[id]; !ok {
				return nil, fmt.Errorf("tier %s gift %s: %w", tier, id, ErrUnknownGift)
			}
		}
		c.gifts[tier] = append([]string(nil), ids...)
	}

	return c, nil
}

func (c *Catalog) Get(id string) (*models.CouponDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	def := c.definitions[i]
	return &def, true
}

// Definitions returns a copy of every definition in catalog order.
func (c *Catalog) Definitions() []models.CouponDefinition {
	return append([]models.CouponDefinition(nil), c.definitions...)
}

func (c *Catalog) EntryCouponID() string {
	return c.entryID
}

func (c *Catalog) GiftsFor(tier models.Tier) []string {
	return append([]string(nil), c.gifts[tier]...)
}

func (c *Catalog) Schedule() models.TierSchedule {
	return append(models.TierSchedule(nil), c.schedule...)
}

func (c *Catalog) Len() int {
	return len(c.definitions)
}

type fileCoupon struct {
	ID         string  `yaml:"id"`
	Title      string  `yaml:"title"`
	Tier       string  `yaml:"tier"`
	ValidFrom  string  `yaml:"valid_from"`
	ValidTo    string  `yaml:"valid_to"`
	Repeatable *bool   `yaml:"repeatable"`
	CostPoints float64 `yaml:"cost_points"`
}

type fileCatalog struct {
	EntryCoupon string                 `yaml:"entry_coupon"`
	Tiers       []models.TierThreshold `yaml:"tiers"`
	Coupons     []fileCoupon           `yaml:"coupons"`
	TierGifts   map[string][]string    `yaml:"tier_gifts"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var file fileCatalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	spec := Spec{
		EntryCoupon: file.EntryCoupon,
		Schedule:    models.TierSchedule(file.Tiers),
		TierGifts:   make(map[models.Tier][]string, len(file.TierGifts)),
	}
	for tier, ids := range file.TierGifts {
		spec.TierGifts[models.Tier(tier)] = ids
	}

	for _, fc := range file.Coupons {
		def, err := fc.definition()
		if err != nil {
			return nil, err
		}
		spec.Coupons = append(spec.Coupons, def)
	}

	return New(spec)
}

func (fc fileCoupon) definition() (models.CouponDefinition, error) {
	def := models.CouponDefinition{
		ID:         fc.ID,
		Title:      fc.Title,
		Tier:       models.Tier(fc.Tier),
		Repeatable: true,
	}
	if fc.Repeatable != nil {
		def.Repeatable = *fc.Repeatable
	}
	if !math.IsNaN(fc.CostPoints) && fc.CostPoints > 0 {
		def.CostPoints = int64(math.Floor(fc.CostPoints))
	}

	validTo, err := time.Parse(time.RFC3339, fc.ValidTo)
	if err != nil {
		return def, fmt.Errorf("coupon %s: invalid valid_to: %w", fc.ID, err)
	}
	def.ValidTo = validTo.UTC()

	if fc.ValidFrom != "" {
		validFrom, err := time.Parse(time.RFC3339, fc.ValidFrom)
		if err != nil {
			return def, fmt.Errorf("coupon %s: invalid valid_from: %w", fc.ID, err)
		}
		validFrom = validFrom.UTC()
		def.ValidFrom = &validFrom
	}

	return def, nil
}
