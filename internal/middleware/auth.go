package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"

	SessionAccessKey  = "access_token"
	SessionRefreshKey = "refresh_token"
)

// TokenAuthenticator 由 service.UserService 实现
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, access, refresh string) (*model.User, *pkg.Pair, error)
}

// Authenticate 从会话 cookie 里取 token 解析当前用户，未登录时直接放行
func Authenticate(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		access, _ := session.Get(SessionAccessKey).(string)
		if access == "" {
			c.Next()
			return
		}
		refresh, _ := session.Get(SessionRefreshKey).(string)

		user, pair, err := auth.Authenticate(c.Request.Context(), access, refresh)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				// 过期或在别处登录
				ClearSession(c)
			} else {
				log.Error.Printf("authenticate: %v", err)
			}
			c.Next()
			return
		}
		if pair != nil {
			if err = SaveSession(c, pair); err != nil {
				log.Error.Printf("save session: %v", err)
			}
		}

		// 注入 user_id
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// LoginRequired 未登录时跳转登录页，next 带上原地址
func LoginRequired(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == 0 {
			c.Redirect(http.StatusFound, LoginRedirectURL(loginURL, c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoginRedirectURL next 里的斜杠不转义，/auth/login/?next=/new/
func LoginRedirectURL(loginURL, next string) string {
	return loginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

func SaveSession(c *gin.Context, pair *pkg.Pair) error {
	session := sessions.Default(c)
	session.Set(SessionAccessKey, pair.AccessToken)
	session.Set(SessionRefreshKey, pair.RefreshToken)
	return session.Save()
}

// ClearSession 清掉 cookie，同时让本次请求后续按匿名处理
func ClearSession(c *gin.Context) {
	c.Set(ContextUserIDKey, uint64(0))
	c.Set(ContextUserKey, (*model.User)(nil))
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Error.Printf("clear session: %v", err)
	}
}

// CurrentUser 未登录时返回 nil
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func CurrentUserID(c *gin.Context) uint64 {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}
