package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	domrepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
)

// RedisBucketStore keeps shared bucket documents in Redis. Every update is
// a WATCH/MULTI optimistic transaction: conflicting writers make EXEC fail
// with TxFailedErr and the whole read-modify-write is retried, so counters
// are never lost to a last-writer-wins overwrite. When the retry budget is
// exhausted the single update is dropped; committed counts stay intact.
type RedisBucketStore struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	maxRetries int
	metrics    domrepo.Metrics
}

// RedisBucketConfig configures the store.
type RedisBucketConfig struct {
	Addr       string
	Password   string
	DB         int
	Prefix     string
	TTL        time.Duration
	MaxRetries int
	PoolSize   int
}

// NewRedisBucketStore connects to Redis and pings it.
func NewRedisBucketStore(cfg RedisBucketConfig, metrics domrepo.Metrics) (*RedisBucketStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "demand"
	}
	if cfg.TTL <= 0 {
		// buckets are superseded, not deleted; the TTL only reclaims
		// keys for regions that went quiet
		cfg.TTL = 2 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBucketStore{
		client:     client,
		prefix:     cfg.Prefix,
		ttl:        cfg.TTL,
		maxRetries: cfg.MaxRetries,
		metrics:    metrics,
	}, nil
}

func (s *RedisBucketStore) key(docID string) string {
	return fmt.Sprintf("%s:bucket:%s", s.prefix, docID)
}

// Update runs the read-modify-write transaction for one document.
func (s *RedisBucketStore) Update(ctx context.Context, docID string, apply func(*models.DemandBucket)) (*models.DemandBucket, error) {
	if docID == "" {
		return nil, fmt.Errorf("bucket doc id is empty")
	}
	key := s.key(docID)

	var out *models.DemandBucket
	txf := func(tx *redis.Tx) error {
		var b models.DemandBucket
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if uerr := json.Unmarshal(data, &b); uerr != nil {
				// unreadable document: start a fresh bucket rather
				// than poisoning every subsequent write
				b = models.DemandBucket{}
			}
		case errors.Is(err, redis.Nil):
			// first write for this region
		default:
			return err
		}

		apply(&b)

		payload, err := json.Marshal(&b)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err == nil {
			out = &b
		}
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			if s.metrics != nil {
				s.metrics.RecordBucketConflict()
			}
			continue
		}
		return nil, fmt.Errorf("bucket update %s: %w", docID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordBucketDrop()
	}
	return nil, fmt.Errorf("bucket update %s: optimistic retries exhausted", docID)
}

// Get fetches a document; a missing key yields (nil, nil).
func (s *RedisBucketStore) Get(ctx context.Context, docID string) (*models.DemandBucket, error) {
	data, err := s.client.Get(ctx, s.key(docID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("bucket get %s: %w", docID, err)
	}
	var b models.DemandBucket
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bucket decode %s: %w", docID, err)
	}
	return &b, nil
}

// Close closes the underlying client.
func (s *RedisBucketStore) Close() error { return s.client.Close() }

var _ domrepo.BucketStore = (*RedisBucketStore)(nil)
