package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chan4lk/autogen-workflows/core"
)

const defaultRedisTimeout = 5 * time.Second

// RedisStore is a SessionStore backed by Redis, suitable for deployments
// where workflow state must survive process restarts or be shared across
// nodes. Session state is kept as a JSON blob and events as a list, so
// appends do not rewrite history.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all session keys (default: "workflows:session:").
	Prefix string
	// SessionTTL is the session expiry duration (0 = never expire).
	SessionTTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisStoreFromClient wraps an existing client. Useful for testing with
// miniredis or for sharing a client across stores.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "workflows:session:"
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		timeout: defaultRedisTimeout,
	}
}

func (s *RedisStore) metaKey(sessionID string) string   { return s.prefix + "meta:" + sessionID }
func (s *RedisStore) stateKey(sessionID string) string  { return s.prefix + "state:" + sessionID }
func (s *RedisStore) eventsKey(sessionID string) string { return s.prefix + "events:" + sessionID }

type sessionMeta struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Create stores a fresh, empty session overwriting any existing one.
func (s *RedisStore) Create(sessionID string) (*core.Session, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	sess := core.NewSession(sessionID)
	if err := s.writeSession(ctx, sess, true); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session, creating an empty one if none exists yet.
func (s *RedisStore) Get(sessionID string) (*core.Session, error) {
	ctx, cancel := s.opContext()
	defer cancel()

	data, err := s.client.Get(ctx, s.metaKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return s.Create(sessionID)
		}
		return nil, fmt.Errorf("get session meta: %w", err)
	}

	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal session meta: %w", err)
	}

	sess := core.NewSession(sessionID)
	sess.Created = meta.Created
	sess.Updated = meta.Updated

	stateData, err := s.client.Get(ctx, s.stateKey(sessionID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get session state: %w", err)
	}
	if len(stateData) > 0 {
		state := map[string]any{}
		if err := json.Unmarshal(stateData, &state); err != nil {
			return nil, fmt.Errorf("unmarshal session state: %w", err)
		}
		sess.MergeState(state)
	}

	rawEvents, err := s.client.LRange(ctx, s.eventsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session events: %w", err)
	}
	for _, raw := range rawEvents {
		var ev core.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal session event: %w", err)
		}
		sess.AddEvent(ev)
	}

	return sess, nil
}

// AppendEvent pushes an event onto the session's event list.
func (s *RedisStore) AppendEvent(sessionID string, ev core.Event) error {
	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.eventsKey(sessionID), data)
	s.touch(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ApplyDelta merges a key/value delta into the persisted session state.
func (s *RedisStore) ApplyDelta(sessionID string, delta map[string]any) error {
	if len(delta) == 0 {
		return nil
	}

	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	state := map[string]any{}
	stateData, err := s.client.Get(ctx, s.stateKey(sessionID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get session state: %w", err)
	}
	if len(stateData) > 0 {
		if err := json.Unmarshal(stateData, &state); err != nil {
			return fmt.Errorf("unmarshal session state: %w", err)
		}
	}

	for k, v := range delta {
		state[k] = v
	}

	merged, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.stateKey(sessionID), merged, s.ttl)
	s.touch(ctx, pipe, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply state delta: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }

// ensureSession lazily writes metadata for sessions first touched via
// AppendEvent or ApplyDelta.
func (s *RedisStore) ensureSession(ctx context.Context, sessionID string) error {
	exists, err := s.client.Exists(ctx, s.metaKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists > 0 {
		return nil
	}
	return s.writeSession(ctx, core.NewSession(sessionID), false)
}

func (s *RedisStore) writeSession(ctx context.Context, sess *core.Session, reset bool) error {
	meta := sessionMeta{ID: sess.ID, Created: sess.Created, Updated: sess.Updated}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.metaKey(sess.ID), data, s.ttl)
	if reset {
		pipe.Del(ctx, s.stateKey(sess.ID))
		pipe.Del(ctx, s.eventsKey(sess.ID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// touch refreshes the updated timestamp and TTLs inside an existing pipeline.
func (s *RedisStore) touch(ctx context.Context, pipe redis.Pipeliner, sessionID string) {
	meta := sessionMeta{ID: sessionID, Created: time.Now().UTC(), Updated: time.Now().UTC()}
	if data, err := s.client.Get(ctx, s.metaKey(sessionID)).Bytes(); err == nil {
		var existing sessionMeta
		if json.Unmarshal(data, &existing) == nil {
			meta.Created = existing.Created
		}
	}
	meta.Updated = time.Now().UTC()
	data, _ := json.Marshal(meta)
	pipe.Set(ctx, s.metaKey(sessionID), data, s.ttl)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.stateKey(sessionID), s.ttl)
		pipe.Expire(ctx, s.eventsKey(sessionID), s.ttl)
	}
}
