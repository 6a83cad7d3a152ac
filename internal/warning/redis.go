package warning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "splitbook:warning:"

// RedisStore shares warning state between API instances. Entries expire
// after ttl so abandoned groups do not accumulate.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, groupID uuid.UUID) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+groupID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, fmt.Errorf("getting warning state: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding warning state: %w", err)
	}

	return e, true, nil
}

func (s *RedisStore) Save(ctx context.Context, groupID uuid.UUID, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding warning state: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+groupID.String(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting warning state: %w", err)
	}

	return nil
}
