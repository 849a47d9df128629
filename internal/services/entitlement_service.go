package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vipclub/internal/catalog"
	"vipclub/internal/models"
	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/logger"
	"vipclub/pkg/metrics"
)

type EntitlementDeps struct {
	Catalog        *catalog.Catalog
	Blobs          interfaces.BlobRepository
	Ledger         interfaces.PointsLedger
	Clock          Clock
	Keys           StorageKeys
	StorageTimeout time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.Recorder
}

func (d EntitlementDeps) withDefaults() EntitlementDeps {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	d.Keys = d.Keys.withDefaults()
	return d
}

// EntitlementStore owns the coupons held by one signed-in user. Every
// operation runs under a single lock, so eligibility checks, point spends and
// state changes cannot interleave.
type EntitlementStore struct {
	deps EntitlementDeps

	mu         sync.RWMutex
	userID     string
	tier       models.Tier
	coupons    []models.UserCoupon
	hydrated   bool
	storageErr error
	// unsynced is set when the stored coupons could not be read. The
	// in-memory list is then a stand-in and is never written back.
	unsynced bool
}

func NewEntitlementStore(deps EntitlementDeps) *EntitlementStore {
	return &EntitlementStore{deps: deps.withDefaults()}
}

// Hydrate loads the user's coupons, seeds defaults when nothing valid is
// cached, grants tier upgrade gifts and writes back any change. It replaces
// all in-memory state and may be called again at any time.
func (s *EntitlementStore) Hydrate(ctx context.Context, userID string, tier models.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hydrateLocked(ctx, userID, tier)
}

func (s *EntitlementStore) hydrateLocked(ctx context.Context, userID string, tier models.Tier) {
	s.userID = userID
	s.tier = tier
	s.coupons = nil
	s.hydrated = false
	s.unsynced = false

	if userID == "" {
		s.hydrated = true
		return
	}

	now := s.now()
	key := s.deps.Keys.Coupons(userID)
	log := s.deps.Logger.WithUserID(userID)

	raw, found, err := s.load(ctx, key)
	if err != nil {
		// Serve defaults, but leave the stored list and tier record alone.
		s.coupons = s.seedCoupons(tier, now)
		s.unsynced = true
		s.hydrated = true
		log.Warn("Stored coupons unreadable, serving defaults without persisting")
		return
	}

	var coupons []models.UserCoupon
	loaded := false
	if found {
		decoded, err := decodeCoupons(raw)
		if err != nil {
			log.WithError(err).Warn("Discarding invalid cached coupons")
			s.deps.Metrics.StorageError("decode")
		} else {
			coupons = decoded
			loaded = true
		}
	}
	if !loaded {
		coupons = s.seedCoupons(tier, now)
	}

	coupons = s.reconcileTierGifts(ctx, userID, tier, coupons, now)
	s.coupons = coupons
	s.hydrated = true

	encoded, err := encodeCoupons(coupons)
	if err != nil {
		log.WithError(err).Error("Failed to encode coupons")
		return
	}
	if !loaded || encoded != raw {
		s.save(ctx, key, encoded)
	}

	log.WithFields(map[string]interface{}{
		"tier":    string(tier),
		"coupons": len(coupons),
		"cached":  loaded,
	}).Debug("Entitlements hydrated")
}

// resyncLocked retries a failed hydrate so writes start from stored state.
// In-memory changes made while unsynced are discarded. It reports whether
// the store is now in sync.
func (s *EntitlementStore) resyncLocked(ctx context.Context) bool {
	if !s.unsynced {
		return true
	}
	s.hydrateLocked(ctx, s.userID, s.tier)
	return !s.unsynced
}

// Synced reports whether the in-memory coupons were loaded from storage.
func (s *EntitlementStore) Synced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.unsynced
}

// Refresh re-hydrates the current user at the given tier.
func (s *EntitlementStore) Refresh(ctx context.Context, tier models.Tier) {
	s.Hydrate(ctx, s.UserID(), tier)
}

// Teardown forgets the user and all in-memory coupons.
func (s *EntitlementStore) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = ""
	s.tier = ""
	s.coupons = nil
	s.hydrated = false
	s.storageErr = nil
	s.unsynced = false
}

// Claim grants a new instance of couponID. Points are spent before the
// instance is created; a declined spend leaves state untouched.
func (s *EntitlementStore) Claim(ctx context.Context, couponID string) (*models.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, err := s.claimLocked(ctx, couponID)
	s.deps.Metrics.Claim(outcomeLabel(err))
	if err != nil {
		s.deps.Logger.WithUserID(s.userID).WithFields(map[string]interface{}{
			"coupon_id": couponID,
			"reason":    err.Error(),
		}).Debug("Coupon claim declined")
		return nil, err
	}

	s.deps.Logger.LogCouponEvent(s.userID, "claimed", map[string]interface{}{
		"coupon_id":   couponID,
		"instance_id": coupon.ID,
	})
	return coupon, nil
}

func (s *EntitlementStore) claimLocked(ctx context.Context, couponID string) (*models.UserCoupon, error) {
	if s.userID == "" {
		return nil, ErrNoUser
	}
	synced := s.resyncLocked(ctx)

	def, ok := s.deps.Catalog.Get(couponID)
	if !ok {
		return nil, ErrCouponNotFound
	}

	now := s.now()
	if def.ExpiredAt(now) {
		return nil, ErrCouponExpired
	}
	if !models.IsAtLeast(s.tier, def.Tier) {
		return nil, ErrTierLocked
	}
	if holdsBlockingInstance(s.coupons, def, now) {
		return nil, ErrAlreadyClaimed
	}

	if def.CostPoints > 0 {
		// Points are never spent against coupons that cannot be checked or saved.
		if !synced {
			return nil, ErrStorageUnavailable
		}
		if s.deps.Ledger == nil {
			return nil, fmt.Errorf("%w: no points ledger", ErrPointsUnavailable)
		}
		spent, err := s.deps.Ledger.SpendPoints(ctx, s.userID, def.CostPoints, interfaces.SpendMetadata{CouponID: def.ID})
		if err != nil {
			s.deps.Logger.WithUserID(s.userID).WithError(err).Warn("Points spend failed")
			return nil, fmt.Errorf("%w: %w", ErrPointsUnavailable, err)
		}
		if !spent {
			return nil, ErrInsufficientPoints
		}
	}

	coupon := newUserCoupon(def.ID, now, s.coupons)
	s.coupons = append([]models.UserCoupon{coupon}, s.coupons...)
	s.persistLocked(ctx)

	return &coupon, nil
}

// Redeem marks an available instance as used. There is no in-store
// verification; the client is trusted.
func (s *EntitlementStore) Redeem(ctx context.Context, instanceID string) (*models.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, err := s.redeemLocked(ctx, instanceID)
	s.deps.Metrics.Redeem(outcomeLabel(err))
	if err != nil {
		return nil, err
	}

	s.deps.Logger.LogCouponEvent(s.userID, "redeemed", map[string]interface{}{
		"coupon_id":   coupon.CouponID,
		"instance_id": coupon.ID,
	})
	return coupon, nil
}

func (s *EntitlementStore) redeemLocked(ctx context.Context, instanceID string) (*models.UserCoupon, error) {
	s.resyncLocked(ctx)

	idx := -1
	for i := range s.coupons {
		if s.coupons[i].ID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCouponNotFound
	}
	def, ok := s.deps.Catalog.Get(s.coupons[idx].CouponID)
	if !ok {
		return nil, ErrCouponNotFound
	}

	now := s.now()
	switch s.coupons[idx].EffectiveStatus(def, now) {
	case models.CouponStatusUsed:
		return nil, ErrCouponNotAvailable
	case models.CouponStatusExpired:
		return nil, ErrCouponExpired
	}

	if !s.coupons[idx].MarkUsed(now) {
		return nil, ErrCouponNotAvailable
	}
	s.persistLocked(ctx)

	coupon := s.coupons[idx]
	return &coupon, nil
}

// GetCoupon looks up a definition together with one of the user's instances.
// With an instanceID it returns that instance or nil. Otherwise it prefers a
// usable instance, then the most recently claimed one.
func (s *EntitlementStore) GetCoupon(couponID, instanceID string) *models.CouponDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.deps.Catalog.Get(couponID)
	if !ok {
		return nil
	}
	now := s.now()
	detail := &models.CouponDetail{Definition: *def}

	if instanceID != "" {
		for _, c := range s.coupons {
			if c.ID == instanceID && c.CouponID == couponID {
				claimed := buildClaimed(c, def, now)
				detail.Instance = &claimed
				return detail
			}
		}
		return nil
	}

	var latest *models.UserCoupon
	for i := range s.coupons {
		c := &s.coupons[i]
		if c.CouponID != couponID {
			continue
		}
		if c.IsUsable(def, now) {
			claimed := buildClaimed(*c, def, now)
			detail.Instance = &claimed
			return detail
		}
		if latest == nil || c.ClaimedAt.After(latest.ClaimedAt) {
			latest = c
		}
	}
	if latest != nil {
		claimed := buildClaimed(*latest, def, now)
		detail.Instance = &claimed
	}
	return detail
}

// ClaimedCoupons returns every held instance whose definition is still in the catalog.
func (s *EntitlementStore) ClaimedCoupons() []models.ClaimedCoupon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	claimed := make([]models.ClaimedCoupon, 0, len(s.coupons))
	for _, c := range s.coupons {
		def, ok := s.deps.Catalog.Get(c.CouponID)
		if !ok {
			continue
		}
		claimed = append(claimed, buildClaimed(c, def, now))
	}
	return claimed
}

func (s *EntitlementStore) Segments() models.CouponSegments {
	var segments models.CouponSegments
	for _, c := range s.ClaimedCoupons() {
		switch c.EffectiveStatus {
		case models.CouponStatusUsed:
			segments.Used = append(segments.Used, c)
		case models.CouponStatusExpired:
			segments.Expired = append(segments.Expired, c)
		default:
			segments.Available = append(segments.Available, c)
		}
	}
	return segments
}

// Offers lists catalog coupons the user could still claim, each flagged with
// whether the user's tier unlocks it. Without a user everything is locked.
func (s *EntitlementStore) Offers() []models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := s.deps.Catalog.Definitions()
	offers := make([]models.Offer, 0, len(defs))

	if s.userID == "" {
		for _, def := range defs {
			offers = append(offers, models.Offer{Definition: def, Unlocked: false})
		}
		return offers
	}

	now := s.now()
	for i := range defs {
		def := &defs[i]
		if def.ExpiredAt(now) || holdsBlockingInstance(s.coupons, def, now) {
			continue
		}
		offers = append(offers, models.Offer{
			Definition: *def,
			Unlocked:   models.IsAtLeast(s.tier, def.Tier),
		})
	}
	return offers
}

func (s *EntitlementStore) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *EntitlementStore) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *EntitlementStore) Tier() models.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tier
}

// StorageErr returns the most recent swallowed persistence failure, or nil
// once a later write succeeds.
func (s *EntitlementStore) StorageErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storageErr
}

// seedCoupons grants the entry coupon and every free coupon the tier unlocks.
// Coupons that cost points are left for the user to claim.
func (s *EntitlementStore) seedCoupons(tier models.Tier, now time.Time) []models.UserCoupon {
	var coupons []models.UserCoupon
	grant := func(def *models.CouponDefinition) {
		if def.ExpiredAt(now) || holdsAnyInstance(coupons, def.ID) {
			return
		}
		coupons = append(coupons, newUserCoupon(def.ID, now, coupons))
	}

	if entryID := s.deps.Catalog.EntryCouponID(); entryID != "" {
		if def, ok := s.deps.Catalog.Get(entryID); ok {
			grant(def)
		}
	}
	for _, def := range s.deps.Catalog.Definitions() {
		if def.CostPoints == 0 && models.IsAtLeast(tier, def.Tier) {
			grant(&def)
		}
	}
	return coupons
}

func (s *EntitlementStore) persistLocked(ctx context.Context) {
	if s.unsynced {
		return
	}
	encoded, err := encodeCoupons(s.coupons)
	if err != nil {
		s.deps.Logger.WithUserID(s.userID).WithError(err).Error("Failed to encode coupons")
		return
	}
	s.save(ctx, s.deps.Keys.Coupons(s.userID), encoded)
}

// load reads key. A read error is recorded and returned so callers can tell
// it apart from an absent key.
func (s *EntitlementStore) load(ctx context.Context, key string) (string, bool, error) {
	if s.deps.Blobs == nil {
		return "", false, nil
	}
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	value, found, err := s.deps.Blobs.Get(ctx, key)
	if err != nil {
		s.recordStorageError("get", key, err)
		return "", false, err
	}
	return value, found, nil
}

func (s *EntitlementStore) save(ctx context.Context, key, value string) {
	if s.deps.Blobs == nil {
		return
	}
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	if err := s.deps.Blobs.Set(ctx, key, value); err != nil {
		s.recordStorageError("set", key, err)
		return
	}
	s.storageErr = nil
}

func (s *EntitlementStore) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.StorageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deps.StorageTimeout)
}

func (s *EntitlementStore) recordStorageError(op, key string, err error) {
	s.storageErr = fmt.Errorf("%s %s: %w", op, key, err)
	s.deps.Logger.WithUserID(s.userID).LogStorageFailure(op, key, err)
	s.deps.Metrics.StorageError(op)
}

func (s *EntitlementStore) now() time.Time {
	return s.deps.Clock.Now().UTC().Truncate(time.Millisecond)
}

func buildClaimed(c models.UserCoupon, def *models.CouponDefinition, now time.Time) models.ClaimedCoupon {
	status := c.EffectiveStatus(def, now)
	return models.ClaimedCoupon{
		Coupon:          c,
		Definition:      *def,
		EffectiveStatus: status,
		Expired:         status == models.CouponStatusExpired,
	}
}

// holdsBlockingInstance reports whether an existing instance prevents a new
// claim: any instance of a single-use coupon, or a usable one otherwise.
func holdsBlockingInstance(coupons []models.UserCoupon, def *models.CouponDefinition, now time.Time) bool {
	for i := range coupons {
		if coupons[i].CouponID != def.ID {
			continue
		}
		if !def.Repeatable || coupons[i].IsUsable(def, now) {
			return true
		}
	}
	return false
}

func holdsAnyInstance(coupons []models.UserCoupon, couponID string) bool {
	for i := range coupons {
		if coupons[i].CouponID == couponID {
			return true
		}
	}
	return false
}

func newUserCoupon(couponID string, at time.Time, existing []models.UserCoupon) models.UserCoupon {
	return models.UserCoupon{
		ID:        newInstanceID(couponID, at, existing),
		CouponID:  couponID,
		Status:    models.CouponStatusAvailable,
		ClaimedAt: at,
	}
}

// newInstanceID derives "<couponID>-<unix millis>" and appends a counter
// when that id is already taken.
func newInstanceID(couponID string, at time.Time, existing []models.UserCoupon) string {
	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[c.ID] = struct{}{}
	}

	base := fmt.Sprintf("%s-%d", couponID, at.UnixMilli())
	if _, dup := taken[base]; !dup {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, dup := taken[candidate]; !dup {
			return candidate
		}
	}
}
