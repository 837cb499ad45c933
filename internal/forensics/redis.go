// Package forensics stores raw response snapshots from failed extractions so
// operators can inspect what a provider page looked like when parsing broke.
// Redis SET with expiry provides the short retention for free.
package forensics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkuhn/stockscores/backend/pkg/logger"
	"github.com/mkuhn/stockscores/backend/pkg/redis"
)

// Sink is the Redis-backed forensic snapshot store
type Sink struct {
	client *redis.Client
	logger *logger.Logger
}

// NewSink creates a new forensic sink
func NewSink(client *redis.Client, log *logger.Logger) *Sink {
	return &Sink{
		client: client,
		logger: log.WithField("module", "forensics"),
	}
}

// Store persists the blob under a fresh resource ID with the given
// retention. With Redis disabled the snapshot is dropped and an empty ID
// returned; extraction failure handling must not depend on forensics.
func (s *Sink) Store(ctx context.Context, blob []byte, contentType string, ttlSeconds int) (string, error) {
	if !s.client.Enabled() {
		s.logger.Debug("Redis disabled, dropping forensic snapshot")
		return "", nil
	}

	id := uuid.NewString()
	key := fmt.Sprintf("forensics:%s", id)
	ttl := time.Duration(ttlSeconds) * time.Second

	rdb := s.client.Redis()
	pipe := rdb.TxPipeline()
	pipe.Set(ctx, key, blob, ttl)
	pipe.Set(ctx, key+":content-type", contentType, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store forensic snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"resource":     id,
		"bytes":        len(blob),
		"content_type": contentType,
		"ttl":          ttl,
	}).Debug("Stored forensic snapshot")
	return id, nil
}
