package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	CodeResetPrefix     = "email:code:reset"

	// 两阶段键：邮件发出前 pending，发出后 confirmed
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrEmailNotFound       = errors.New("email not found")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
)

// 取值+写入目标+设置 TTL+删除源，原子执行
var promoteScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

type EmailRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func (e *EmailRepository) ttl() time.Duration {
	if e.TTL > 0 {
		return e.TTL
	}
	return DefaultEmailCodeTTL
}

func resetKey(stage, email string) string {
	return fmt.Sprintf("%s:%s:%s", CodeResetPrefix, stage, email)
}

// ResetEmailCodePending 写入重置验证码的 pending 键
func (e *EmailRepository) ResetEmailCodePending(ctx context.Context, email, code string) error {
	if err := e.RDB.Set(ctx, resetKey(PendingSuffix, email), code, e.ttl()).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// MarkCodeConfirmed 将 pending 转为 confirmed（重置 TTL）
func (e *EmailRepository) MarkCodeConfirmed(ctx context.Context, email string) error {
	keys := []string{resetKey(PendingSuffix, email), resetKey(ConfirmedSuffix, email)}
	ok, err := promoteScript.Run(ctx, e.RDB, keys, e.ttl().Milliseconds()).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeleteCodePending 删除 pending 键（幂等）
func (e *EmailRepository) DeleteCodePending(ctx context.Context, email string) error {
	if err := e.RDB.Del(ctx, resetKey(PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// GetResetConfirmed 获取 confirmed 的验证码（校验时使用）
func (e *EmailRepository) GetResetConfirmed(ctx context.Context, email string) (string, error) {
	val, err := e.RDB.Get(ctx, resetKey(ConfirmedSuffix, email)).Result()
	if err != nil {
		return "", ErrEmailNotFound
	}
	return val, nil
}

func (e *EmailRepository) DeleteResetConfirmed(ctx context.Context, email string) error {
	if err := e.RDB.Del(ctx, resetKey(ConfirmedSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}
