package storage

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront/pkg/redis"
)

// Redis persists entries under sf:session:<profile>:<key>.
type Redis struct {
	client  *redis.Client
	profile string
}

func NewRedis(client *redis.Client, profile string) *Redis {
	return &Redis{client: client, profile: profile}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.client.SessionKey(r.profile, key))
	if errors.Is(err, redis.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) SetAll(ctx context.Context, values map[string]string) error {
	namespaced := make(map[string]string, len(values))
	for k, v := range values {
		namespaced[r.client.SessionKey(r.profile, k)] = v
	}
	return r.client.SetAll(ctx, namespaced, 0)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	namespaced := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaced = append(namespaced, r.client.SessionKey(r.profile, k))
	}
	return r.client.Del(ctx, namespaced...)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Client exposes the connection so other features can share it.
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) Close() error {
	return r.client.Close()
}
