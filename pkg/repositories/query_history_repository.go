package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/retry"
)

// QueryHistoryRepository stores the saved query history of a dashboard.
type QueryHistoryRepository interface {
	// Load returns the saved history, or apperrors.ErrNotFound when nothing is saved.
	Load(ctx context.Context, dashboardID string) ([]models.QueryHistoryItem, error)
	// Save replaces the saved history.
	Save(ctx context.Context, dashboardID string, items []models.QueryHistoryItem) error
	// Delete removes the saved history. Deleting a missing entry is not an error.
	Delete(ctx context.Context, dashboardID string) error
}

// memoryQueryHistoryRepository keeps saved history for the lifetime of the process.
type memoryQueryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]models.QueryHistoryItem
}

// NewMemoryQueryHistoryRepository creates an in-process repository.
func NewMemoryQueryHistoryRepository() QueryHistoryRepository {
	return &memoryQueryHistoryRepository{
		entries: make(map[string][]models.QueryHistoryItem),
	}
}

var _ QueryHistoryRepository = (*memoryQueryHistoryRepository)(nil)

func (r *memoryQueryHistoryRepository) Load(ctx context.Context, dashboardID string) ([]models.QueryHistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items, ok := r.entries[dashboardID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]models.QueryHistoryItem{}, items...), nil
}

func (r *memoryQueryHistoryRepository) Save(ctx context.Context, dashboardID string, items []models.QueryHistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[dashboardID] = append([]models.QueryHistoryItem{}, items...)
	return nil
}

func (r *memoryQueryHistoryRepository) Delete(ctx context.Context, dashboardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, dashboardID)
	return nil
}

// redisQueryHistoryRepository stores each dashboard's history as one JSON value with a TTL.
type redisQueryHistoryRepository struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retryCfg  *retry.Config
}

// NewRedisQueryHistoryRepository creates a repository backed by client.
// A zero ttl keeps saved history until it is deleted.
func NewRedisQueryHistoryRepository(client redis.UniversalClient, keyPrefix string, ttl time.Duration) QueryHistoryRepository {
	return &redisQueryHistoryRepository{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		retryCfg:  retry.DefaultConfig(),
	}
}

var _ QueryHistoryRepository = (*redisQueryHistoryRepository)(nil)

func (r *redisQueryHistoryRepository) key(dashboardID string) string {
	return r.keyPrefix + dashboardID
}

func (r *redisQueryHistoryRepository) Load(ctx context.Context, dashboardID string) ([]models.QueryHistoryItem, error) {
	raw, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]byte, error) {
		return r.client.Get(ctx, r.key(dashboardID)).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load query history: %w", err)
	}

	var items []models.QueryHistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode query history: %w", err)
	}
	return items, nil
}

func (r *redisQueryHistoryRepository) Save(ctx context.Context, dashboardID string, items []models.QueryHistoryItem) error {
	if items == nil {
		items = []models.QueryHistoryItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode query history: %w", err)
	}

	err = retry.Do(ctx, r.retryCfg, func() error {
		return r.client.Set(ctx, r.key(dashboardID), raw, r.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to save query history: %w", err)
	}
	return nil
}

func (r *redisQueryHistoryRepository) Delete(ctx context.Context, dashboardID string) error {
	err := retry.Do(ctx, r.retryCfg, func() error {
		return r.client.Del(ctx, r.key(dashboardID)).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete query history: %w", err)
	}
	return nil
}
