// Package lock provides a Redis lease used to keep README generation to one
// replica per (identifier, mode) at a time.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compare-and-delete so a lease is only released by its holder
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis implements leases as SET NX PX keys under a prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a lease locker. Prefix may be empty.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "readme:gen:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Acquire tries to take the lease for key. When another holder owns it, ok is
// false and release is nil.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, false, err
	}
	token := hex.EncodeToString(b)
	k := r.prefix + key

	ok, err = r.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		// the caller's context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.client, []string{k}, token).Err()
	}, true, nil
}
