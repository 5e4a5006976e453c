package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

type sessionCache struct {
	client *redis.Client
	key    string
	expiry func(credential string) (time.Time, bool)
	now    func() time.Time
}

// NewSessionCache returns a Redis-backed session store under keyPrefix+profile.
// A credential carrying an expiry is stored with a matching TTL.
func NewSessionCache(client *redis.Client, keyPrefix, profile string, expiry func(string) (time.Time, bool)) SessionRepository {
	return &sessionCache{client: client, key: keyPrefix + profile, expiry: expiry, now: time.Now}
}

func (c *sessionCache) Load(ctx context.Context) (*domain.Session, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *sessionCache) Save(ctx context.Context, s domain.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if c.expiry != nil {
		if exp, ok := c.expiry(s.Credential); ok {
			ttl = exp.Sub(c.now())
			if ttl <= 0 {
				// already expired; keep it briefly so the guard can observe and clear it
				ttl = time.Second
			}
		}
	}
	return c.client.Set(ctx, c.key, payload, ttl).Err()
}

func (c *sessionCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
