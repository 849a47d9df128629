package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/logger"
	"vipclub/pkg/metrics"
)

// FavoriteService is a persisted set of favorited coupon definition ids. It
// is scoped by storage key, not by account, and has no effect on entitlements.
type FavoriteService struct {
	blobs   interfaces.BlobRepository
	key     string
	logger  *logger.Logger
	metrics *metrics.Recorder

	mu         sync.RWMutex
	ids        map[string]struct{}
	storageErr error
	unsynced   bool
}

func NewFavoriteService(blobs interfaces.BlobRepository, key string, log *logger.Logger, rec *metrics.Recorder) *FavoriteService {
	if log == nil {
		log = logger.Discard()
	}
	return &FavoriteService{
		blobs:   blobs,
		key:     key,
		logger:  log,
		metrics: rec,
		ids:     make(map[string]struct{}),
	}
}

// Load replaces the in-memory set with the persisted one. A missing or
// invalid blob leaves an empty set. An unreadable one also leaves an empty
// set, which is not written back until a later read succeeds.
func (s *FavoriteService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)
}

func (s *FavoriteService) loadLocked(ctx context.Context) {
	s.ids = make(map[string]struct{})
	s.unsynced = false
	if s.blobs == nil {
		return
	}

	raw, found, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		s.recordStorageError("get", err)
		s.unsynced = true
		return
	}
	if !found {
		return
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Discarding invalid favorites")
		return
	}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

func (s *FavoriteService) IsFavorite(couponID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[couponID]
	return ok
}

// Toggle flips couponID in the set and returns whether it is now a favorite.
func (s *FavoriteService) Toggle(ctx context.Context, couponID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resyncLocked(ctx)

	_, present := s.ids[couponID]
	if present {
		delete(s.ids, couponID)
	} else {
		s.ids[couponID] = struct{}{}
	}
	s.persistLocked(ctx)
	return !present
}

func (s *FavoriteService) Add(ctx context.Context, couponID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resyncLocked(ctx)

	if _, ok := s.ids[couponID]; ok {
		return
	}
	s.ids[couponID] = struct{}{}
	s.persistLocked(ctx)
}

func (s *FavoriteService) Remove(ctx context.Context, couponID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resyncLocked(ctx)

	if _, ok := s.ids[couponID]; !ok {
		return
	}
	delete(s.ids, couponID)
	s.persistLocked(ctx)
}

// IDs returns the favorites in sorted order.
func (s *FavoriteService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *FavoriteService) StorageErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storageErr
}

// resyncLocked retries a failed load before a change is applied.
func (s *FavoriteService) resyncLocked(ctx context.Context) {
	if s.unsynced {
		s.loadLocked(ctx)
	}
}

func (s *FavoriteService) sortedLocked() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *FavoriteService) persistLocked(ctx context.Context) {
	if s.blobs == nil || s.unsynced {
		return
	}
	data, err := json.Marshal(s.sortedLocked())
	if err != nil {
		s.logger.WithError(err).Error("Failed to encode favorites")
		return
	}
	if err := s.blobs.Set(ctx, s.key, string(data)); err != nil {
		s.recordStorageError("set", err)
		return
	}
	s.storageErr = nil
}

func (s *FavoriteService) recordStorageError(op string, err error) {
	s.storageErr = fmt.Errorf("%s %s: %w", op, s.key, err)
	s.logger.LogStorageFailure(op, s.key, err)
	s.metrics.StorageError(op)
}
