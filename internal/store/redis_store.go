package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a RecordStore backed by Redis, one JSON value per
// prefixed key. Records never expire; Redis persistence is expected to
// be configured on the server side.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// Dial connects to Redis and verifies the connection with a short ping.
func Dial(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("[Store] ✅ Connected to Redis")
	return client, nil
}

// NewRedisStore wraps a shared client with a collection prefix such as
// "events:" or "rosters:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, &PersistError{Op: "load", Key: key, Err: err}
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, &PersistError{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, value interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return &PersistError{Op: "encode", Key: key, Err: err}
	}
	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return &PersistError{Op: "save", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return &PersistError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	full, err := s.client.Keys(ctx, s.prefix+"*").Result()
	if err != nil {
		return nil, &PersistError{Op: "list", Key: s.prefix, Err: err}
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}
