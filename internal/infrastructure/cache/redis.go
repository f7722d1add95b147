package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/constants"
)

// SnapshotStore keeps per-document analysis snapshots and the most recent
// sync result in Redis so repeated dashboard loads skip a full re-analysis.
//
// The store is optional. A nil *SnapshotStore is safe to call and behaves
// as a permanent cache miss, which lets services hold the field without
// guarding every call site.
type SnapshotStore struct {
	client *redis.Client
}

// NewSnapshotStoreFromEnv builds a store from REDIS_ADDR / REDIS_PASSWORD.
// When REDIS_ADDR is unset the cache is disabled and (nil, nil) is returned.
func NewSnapshotStoreFromEnv() (*SnapshotStore, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}
	return NewSnapshotStore(addr, os.Getenv("REDIS_PASSWORD"))
}

// NewSnapshotStore connects to Redis and verifies the connection with a ping.
func NewSnapshotStore(addr, password string) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("✅ Redis cache connected (%s)", addr)
	return &SnapshotStore{client: client}, nil
}

func analysisKey(projectID, documentID string) string {
	return "analysis:" + projectID + ":" + documentID
}

func lastSyncKey(projectID, documentID string) string {
	return "sync:last:" + projectID + ":" + documentID
}

// StoreAnalysis caches an analysis snapshot for its document.
func (s *SnapshotStore) StoreAnalysis(ctx context.Context, analysis *models.ShapeAnalysis) error {
	if s == nil || analysis == nil {
		return nil
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	key := analysisKey(analysis.ProjectID, analysis.DocumentID)
	ttl := time.Duration(constants.AnalysisCacheTTLMins) * time.Minute
	return s.client.Set(ctx, key, data, ttl).Err()
}

// GetAnalysis returns the cached snapshot, or nil on a miss.
func (s *SnapshotStore) GetAnalysis(ctx context.Context, projectID, documentID string) (*models.ShapeAnalysis, error) {
	if s == nil {
		return nil, nil
	}
	data, err := s.client.Get(ctx, analysisKey(projectID, documentID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var analysis models.ShapeAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		// A corrupt entry is treated as a miss rather than an error
		return nil, nil
	}
	return &analysis, nil
}

// InvalidateAnalysis drops the cached snapshot, called after every sync
// because the drop linkage it records is stale afterwards.
func (s *SnapshotStore) InvalidateAnalysis(ctx context.Context, projectID, documentID string) error {
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, analysisKey(projectID, documentID)).Err()
}

// StoreLastSync caches the most recent sync result for quick status display.
func (s *SnapshotStore) StoreLastSync(ctx context.Context, projectID, documentID string, result *models.SyncResult) error {
	if s == nil || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := lastSyncKey(projectID, documentID)
	ttl := time.Duration(constants.LastSyncCacheTTLMins) * time.Minute
	return s.client.Set(ctx, key, data, ttl).Err()
}

// GetLastSync returns the cached sync result, or nil on a miss.
func (s *SnapshotStore) GetLastSync(ctx context.Context, projectID, documentID string) (*models.SyncResult, error) {
	if s == nil {
		return nil, nil
	}
	data, err := s.client.Get(ctx, lastSyncKey(projectID, documentID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result models.SyncResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, nil
	}
	return &result, nil
}

// Health checks Redis connectivity, used by the health endpoint.
func (s *SnapshotStore) Health(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *SnapshotStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
