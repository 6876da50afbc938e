package service

import (
	"context"

	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/redis"

	goredis "github.com/redis/go-redis/v9"
)

type EmailService struct {
	mailer pkg.Mailer
	rds    *redis.EmailRepository
}

func NewEmailService(mailer pkg.Mailer, rdb *goredis.Client) *EmailService {
	return &EmailService{mailer: mailer, rds: &redis.EmailRepository{RDB: rdb}}
}

// SendResetCode 发送重置密码验证码
func (s *EmailService) SendResetCode(ctx context.Context, email, username string) error {
	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}

	// 先写入pending键
	if err = s.rds.ResetEmailCodePending(ctx, email, code); err != nil {
		return err
	}

	// 发送邮件
	html := pkg.ResetCodeHTML(username, code, redis.DefaultEmailCodeTTL)
	if err = s.mailer.Send(email, "Password reset code", html); err != nil {
		_ = s.rds.DeleteCodePending(ctx, email)
		return err
	}

	// 邮件发送后再将pending转为confirmed
	if err = s.rds.MarkCodeConfirmed(ctx, email); err != nil {
		_ = s.rds.DeleteCodePending(ctx, email)
		return err
	}
	return nil
}

// VerifyResetCode 校验验证码，成功后一次性删除
func (s *EmailService) VerifyResetCode(ctx context.Context, email, code string) (bool, error) {
	val, err := s.rds.GetResetConfirmed(ctx, email)
	if err != nil {
		// 不存在或已过期
		return false, nil
	}
	if val != code {
		return false, nil
	}
	if err = s.rds.DeleteResetConfirmed(ctx, email); err != nil {
		return false, err
	}
	return true, nil
}
