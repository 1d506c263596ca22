package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/warren/internal/strategy"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transaction retries when another process
// touches the same session concurrently.
const maxTxRetries = 10

// RedisStore keeps sessions in Redis hashes so several warren processes can
// serve the same users. Writes within a process are linearized per user by a
// keyed lock; writes across processes by WATCH/MULTI transactions.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	idleTTL   time.Duration
	locks     *keyedMutex
	now       func() time.Time
}

// NewRedisStore creates a store for the namespace.
// Returns an error if namespace is empty.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// NewRedisStoreFromURL parses a redis:// URL and creates a store.
func NewRedisStoreFromURL(redisURL, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisStore(opts, namespace)
}

// SetIdleTTL makes sessions expire after ttl without writes. Zero disables
// expiry. Redis performs the eviction.
func (r *RedisStore) SetIdleTTL(ttl time.Duration) {
	r.idleTTL = ttl
}

// Get implements Store. The session is created in Redis on first contact.
func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	key := SessionKey(r.namespace, userID)
	hash, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	if len(hash) > 0 {
		s, err := FromHash(hash)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize session: %w", err)
		}
		return s, nil
	}

	// First contact: create unless another process got there first.
	return r.update(ctx, userID, func(s *Session) {})
}

// SetStrategy implements Store.
func (r *RedisStore) SetStrategy(ctx context.Context, userID string, kind strategy.Kind) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := kind.Validate(); err != nil {
		return err
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	_, err := r.update(ctx, userID, func(s *Session) {
		s.ActiveStrategy = kind
		s.LastUpdated = r.now()
	})
	return err
}

// RecordInteraction implements Store.
func (r *RedisStore) RecordInteraction(ctx context.Context, userID string, in Interaction) (*Session, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	return r.update(ctx, userID, func(s *Session) {
		s.apply(in, r.now())
	})
}

// Ping verifies Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection. Implements io.Closer.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// Count returns the number of stored sessions in the namespace.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, SessionKeyPattern(r.namespace), 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan sessions: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// update applies mutate to the stored session (or a fresh one) inside an
// optimistic transaction and returns the written state.
func (r *RedisStore) update(ctx context.Context, userID string, mutate func(*Session)) (*Session, error) {
	key := SessionKey(r.namespace, userID)

	var written *Session
	txf := func(tx *redis.Tx) error {
		hash, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to read session from Redis: %w", err)
		}

		var s *Session
		if len(hash) == 0 {
			s = New(userID, r.now())
		} else if s, err = FromHash(hash); err != nil {
			return fmt.Errorf("failed to deserialize session: %w", err)
		}

		mutate(s)

		fields, err := ToHash(s)
		if err != nil {
			return fmt.Errorf("failed to serialize session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if r.idleTTL > 0 {
				pipe.Expire(ctx, key, r.idleTTL)
			}
			return nil
		})
		if err != nil {
			return err
		}

		written = s
		return nil
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return written, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil, fmt.Errorf("failed to write session for user '%s': too much contention", userID)
}
