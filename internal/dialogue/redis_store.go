package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/storage/redis/v3"

	"inspectbot/internal/models"
)

const sessionKeyPrefix = "inspectbot:session:"

// KV is the byte store sessions are serialized into. It is satisfied by the
// fiber storage drivers.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// KVStore persists sessions as JSON in a KV store. The TTL is refreshed on
// every save; 0 means no expiry.
type KVStore struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

// NewKVStore wraps kv.
func NewKVStore(kv KV, ttl time.Duration) *KVStore {
	return &KVStore{kv: kv, ttl: ttl, now: time.Now}
}

// NewRedisStorage connects the fiber redis driver. It panics if the server
// cannot be reached, matching the driver's own behavior.
func NewRedisStorage(url string) *redis.Storage {
	return redis.New(redis.Config{URL: url})
}

// Load implements SessionStore.
func (k *KVStore) Load(_ context.Context, userID string) (*models.Session, error) {
	data, err := k.kv.Get(sessionKeyPrefix + userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(data) == 0 {
		return models.NewSession(userID), nil
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	s.UserID = userID
	return &s, nil
}

// Save implements SessionStore.
func (k *KVStore) Save(_ context.Context, s *models.Session) error {
	cp := *s
	cp.UpdatedAt = k.now()
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := k.kv.Set(sessionKeyPrefix+s.UserID, data, k.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete implements SessionStore.
func (k *KVStore) Delete(_ context.Context, userID string) error {
	if err := k.kv.Delete(sessionKeyPrefix + userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
