package services

import (
	"context"
	"fmt"
	"sync"

	"vipclub/internal/models"
	"vipclub/internal/repositories/interfaces"

	"golang.org/x/sync/singleflight"
)

// SessionManager owns one hydrated EntitlementStore per user. Concurrent
// first opens for the same user share a single hydrate.
type SessionManager struct {
	deps     EntitlementDeps
	accounts interfaces.AccountRepository

	group    singleflight.Group
	mu       sync.RWMutex
	sessions map[string]*EntitlementStore

	favMu     sync.Mutex
	favorites map[string]*FavoriteService

	guest *EntitlementStore
}

func NewSessionManager(deps EntitlementDeps, accounts interfaces.AccountRepository) *SessionManager {
	deps = deps.withDefaults()
	return &SessionManager{
		deps:      deps,
		accounts:  accounts,
		sessions:  make(map[string]*EntitlementStore),
		favorites: make(map[string]*FavoriteService),
		guest:     NewEntitlementStore(deps),
	}
}

// Session returns the user's store, hydrating it on first use.
func (m *SessionManager) Session(ctx context.Context, userID string) (*EntitlementStore, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	m.mu.RLock()
	store, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	// The hydrate is shared by every waiting caller, so one caller going away
	// must not cancel it.
	openCtx := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(userID, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.sessions[userID]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		tier, err := m.resolveTier(openCtx, userID)
		if err != nil {
			return nil, err
		}

		store := NewEntitlementStore(m.deps)
		store.Hydrate(openCtx, userID, tier)

		m.mu.Lock()
		m.sessions[userID] = store
		m.mu.Unlock()

		m.deps.Logger.WithUserID(userID).WithField("tier", string(tier)).Info("Session opened")
		return store, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*EntitlementStore), nil
}

// Refresh re-resolves the user's tier from their balance and re-hydrates.
func (m *SessionManager) Refresh(ctx context.Context, userID string) (*EntitlementStore, error) {
	store, err := m.Session(ctx, userID)
	if err != nil {
		return nil, err
	}
	tier, err := m.resolveTier(ctx, userID)
	if err != nil {
		return nil, err
	}
	store.Refresh(ctx, tier)
	return store, nil
}

// Close tears down and forgets the user's session.
func (m *SessionManager) Close(userID string) {
	m.mu.Lock()
	store, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		store.Teardown()
		m.deps.Logger.WithUserID(userID).Info("Session closed")
	}
}

// Points returns the user's spendable points balance.
func (m *SessionManager) Points(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	if m.deps.Ledger == nil {
		return 0, nil
	}
	points, err := m.deps.Ledger.GetPoints(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPointsUnavailable, err)
	}
	return points, nil
}

// Favorites returns the favorites ledger for a device scope, loading it on
// first use. An empty scope is the global ledger.
func (m *SessionManager) Favorites(ctx context.Context, scope string) *FavoriteService {
	m.favMu.Lock()
	defer m.favMu.Unlock()

	if fav, ok := m.favorites[scope]; ok {
		return fav
	}
	fav := NewFavoriteService(m.deps.Blobs, m.deps.Keys.Favorites(scope), m.deps.Logger, m.deps.Metrics)
	fav.Load(ctx)
	m.favorites[scope] = fav
	return fav
}

// Guest returns a store with no user. Its offers are all locked and it
// declines every claim.
func (m *SessionManager) Guest() *EntitlementStore {
	return m.guest
}

func (m *SessionManager) resolveTier(ctx context.Context, userID string) (models.Tier, error) {
	if m.accounts == nil {
		return m.deps.Catalog.Schedule().Resolve(0), nil
	}
	balance, err := m.accounts.GetBalance(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get balance for %s: %w", userID, err)
	}
	return m.deps.Catalog.Schedule().Resolve(balance), nil
}
