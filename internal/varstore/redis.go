package varstore

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding variables when no namespace is given.
const DefaultRedisKey = "persistor:vars"

// RedisStore keeps variables as fields of a single Redis hash.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. An empty key uses
// DefaultRedisKey.
func NewRedisStore(client redis.UniversalClient, key string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("varstore: redis client is nil")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}, nil
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, key)
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Set stores one variable.
func (s *RedisStore) Set(ctx context.Context, name, value string) error {
	if err := s.client.HSet(ctx, s.key, name, value).Err(); err != nil {
		return fmt.Errorf("set variable %q: %w", name, err)
	}
	return nil
}

// SetAll stores vars with a single HSET.
func (s *RedisStore) SetAll(ctx context.Context, vars []Variable) error {
	if len(vars) == 0 {
		return nil
	}
	fields := make(map[string]any, len(vars))
	for _, v := range vars {
		fields[v.Name] = v.Value
	}
	if err := s.client.HSet(ctx, s.key, fields).Err(); err != nil {
		return fmt.Errorf("set variables: %w", err)
	}
	return nil
}

// Get returns the value of name.
func (s *RedisStore) Get(ctx context.Context, name string) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get variable %q: %w", name, err)
	}
	return value, true, nil
}

// DeletePrefix removes every variable selected by prefix.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	names, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("delete variables %q: %w", prefix, err)
	}
	var doomed []string
	for _, name := range names {
		if MatchesPrefix(name, prefix) {
			doomed = append(doomed, name)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	n, err := s.client.HDel(ctx, s.key, doomed...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete variables %q: %w", prefix, err)
	}
	return int(n), nil
}

// List returns the variables selected by prefix ordered by name.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]Variable, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list variables %q: %w", prefix, err)
	}
	var vars []Variable
	for name, value := range all {
		if MatchesPrefix(name, prefix) {
			vars = append(vars, Variable{Name: name, Value: value})
		}
	}
	sortVariables(vars)
	return vars, nil
}
