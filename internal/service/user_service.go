package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/repository/redis"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 与顶层路由冲突的用户名
var reservedUsernames = map[string]struct{}{
	"new":    {},
	"follow": {},
	"group":  {},
	"auth":   {},
	"media":  {},
}

// hashCost 测试里调低
var hashCost = bcrypt.DefaultCost

type UserService struct {
	repo     *database.UserRepository
	rUser    *redis.UserRepository
	emailSvc *EmailService
}

func NewUserService(db *gorm.DB, rdb *goredis.Client, emailSvc *EmailService) *UserService {
	return &UserService{
		repo:     &database.UserRepository{DB: db},
		rUser:    &redis.UserRepository{RDB: rdb},
		emailSvc: emailSvc,
	}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *UserService) Register(ctx context.Context, username, password, email string) (*model.User, error) {
	if _, ok := reservedUsernames[strings.ToLower(username)]; ok {
		return nil, ErrUsernameReserved
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Username: username,
		Password: hash,
		Email:    email,
	}
	if err = s.create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// create 并发注册时前置检查挡不住，以唯一索引冲突为准
func (s *UserService) create(ctx context.Context, user *model.User) error {
	err := s.repo.Create(ctx, user)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if _, findErr := s.repo.FindByUsername(ctx, user.Username); findErr == nil {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Login 用户名或邮箱登录，token 写入 redis，同一用户只保留最新一次登录
func (s *UserService) Login(ctx context.Context, login, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, user.ID)
}

func (s *UserService) issue(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	pair, err := pkg.GeneratePair(userID)
	if err != nil {
		return nil, err
	}
	if err = s.rUser.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.rUser.DeleteUserToken(ctx, userID)
}

// Authenticate 校验会话里的 token。access 过期但仍是 redis 中登记的那个时，
// 用 refresh 换一对新的并返回，调用方负责写回会话
func (s *UserService) Authenticate(ctx context.Context, access, refresh string) (*model.User, *pkg.Pair, error) {
	if access == "" {
		return nil, nil, ErrUnauthenticated
	}
	expired := false
	claims, err := pkg.ParseAccess(access)
	if errors.Is(err, pkg.ErrTokenExpired) {
		expired = true
		claims, err = pkg.PeekAccess(access)
	}
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	// redis校验是否是正确的token
	origin, err := s.rUser.GetUserToken(ctx, claims.UserID)
	if errors.Is(err, redis.ErrTokenNotFound) || (err == nil && origin != access) {
		return nil, nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, nil, err
	}

	var pair *pkg.Pair
	if expired {
		newPair, uid, err := pkg.Refresh(refresh)
		if err != nil || uid != claims.UserID {
			_ = s.rUser.DeleteUserToken(ctx, claims.UserID)
			return nil, nil, ErrUnauthenticated
		}
		if err = s.rUser.AddUserToken(ctx, uid, newPair.AccessToken); err != nil {
			return nil, nil, err
		}
		pair = newPair
	} else if err = s.rUser.ExtendUserToken(ctx, claims.UserID); err != nil {
		// 续期失败不影响本次请求
		log.Warn.Printf("extend token user=%d: %v", claims.UserID, err)
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}
	return user, pair, nil
}

// ChangePassword 登录态修改密码，成功后需要重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFound(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, hash); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// SendResetCode 邮箱不存在时不报错，避免泄露注册信息
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info.Printf("password reset for unknown email %q", email)
		return nil
	}
	if err != nil {
		return err
	}
	return s.emailSvc.SendResetCode(ctx, user.Email, user.Username)
}

func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	// 校验code正确性
	ok, err := s.emailSvc.VerifyResetCode(ctx, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeMismatch
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return notFound(err)
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err = s.repo.UpdatePassword(ctx, user, hash); err != nil {
		return err
	}
	// 旧会话失效
	return s.Logout(ctx, user.ID)
}

// Delete 管理命令用，级联删除帖子、评论和关注关系
func (s *UserService) Delete(ctx context.Context, username string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return notFound(err)
	}
	if err = s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	if err = s.rUser.DeleteUserToken(ctx, user.ID); err != nil {
		log.Warn.Printf("drop token user=%d: %v", user.ID, err)
	}
	return nil
}
