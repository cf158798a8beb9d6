package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist 記錄已登出的 access token (jti)，保存到 token 原本的過期時間為止
type TokenDenylist interface {
	// 註銷：ttl <= 0 代表 token 已過期，不需要記錄
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// 檢查：token 是否已被註銷
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisTokenDenylistImpl struct {
	client *redis.Client
}

func NewRedisTokenDenylist(client *redis.Client) TokenDenylist {
	return &RedisTokenDenylistImpl{
		client: client,
	}
}

func (d *RedisTokenDenylistImpl) getKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

func (d *RedisTokenDenylistImpl) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.getKey(jti), 1, ttl).Err()
}

func (d *RedisTokenDenylistImpl) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := d.client.Get(ctx, d.getKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
