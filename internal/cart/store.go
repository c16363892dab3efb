package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// Store persists cart state between requests. Persistence is injected so
// the aggregation logic stays a pure value transformation.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps serialised cart state in Redis with a sliding TTL.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s RedisStore) key(id string) string {
	prefix := strings.TrimSpace(s.Prefix)
	if prefix == "" {
		prefix = "cart"
	}
	return fmt.Sprintf("%s:%s", prefix, id)
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Load fetches and decodes a cart, returning ErrNotFound for missing keys.
func (s RedisStore) Load(ctx context.Context, id string) (State, error) {
	if s.R == nil {
		return State{}, errors.New("cart store not configured")
	}
	raw, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("load cart: %w", err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode cart: %w", err)
	}
	return state, nil
}

// Save encodes and writes the cart, refreshing its TTL.
func (s RedisStore) Save(ctx context.Context, state State) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	if strings.TrimSpace(state.ID) == "" {
		return errors.New("cart id is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, s.key(state.ID), raw, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart key. Deleting a missing cart is not an error.
func (s RedisStore) Delete(ctx context.Context, id string) error {
	if s.R == nil {
		return errors.New("cart store not configured")
	}
	if err := s.R.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
