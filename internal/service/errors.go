package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("please enter a correct username and password")
	ErrUsernameTaken      = errors.New("a user with that username already exists")
	ErrUsernameReserved   = errors.New("this username is not available")
	ErrEmailTaken         = errors.New("a user with that email already exists")
	ErrWrongPassword      = errors.New("your old password was entered incorrectly")
	ErrCodeMismatch       = errors.New("verification failed")
)

// notFound 把 gorm 的记录不存在转成 ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
