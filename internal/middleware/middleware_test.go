package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Keril-png/hw05-final/internal/cache"
	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Silence()
	os.Exit(m.Run())
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/new/", LoginRedirectURL("/auth/login/", "/new/"))
	assert.Equal(t, "/auth/login/?next=/leo/1/edit/%3Fa%3D1", LoginRedirectURL("/auth/login/", "/leo/1/edit/?a=1"))
}

func TestLoginRequired(t *testing.T) {
	r := gin.New()
	r.GET("/new/", LoginRequired("/auth/login/"), func(c *gin.Context) { c.String(http.StatusOK, "form") })
	r.GET("/in/", func(c *gin.Context) { c.Set(ContextUserIDKey, uint64(3)) }, LoginRequired("/auth/login/"),
		func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/new/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=/new/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/in/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

type fakeAuth struct {
	user *model.User
	pair *pkg.Pair
	err  error
}

func (f *fakeAuth) Authenticate(_ context.Context, access, _ string) (*model.User, *pkg.Pair, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.user, f.pair, nil
}

func sessionEngine(auth TokenAuthenticator) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("s", cookie.NewStore([]byte("test-secret"))))
	r.GET("/login", func(c *gin.Context) {
		_ = SaveSession(c, &pkg.Pair{AccessToken: "a", RefreshToken: "r"})
		c.Status(http.StatusNoContent)
	})
	r.GET("/who", Authenticate(auth), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Username)
			return
		}
		c.String(http.StatusOK, "anon")
	})
	return r
}

func loginCookies(t *testing.T, r *gin.Engine) []*http.Cookie {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func who(r *gin.Engine, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	auth := &fakeAuth{user: &model.User{ID: 1, Username: "leo"}}
	r := sessionEngine(auth)
	cookies := loginCookies(t, r)

	assert.Equal(t, "anon", who(r, nil).Body.String())
	assert.Equal(t, "leo", who(r, cookies).Body.String())

	auth.pair = &pkg.Pair{AccessToken: "a2", RefreshToken: "r2"}
	w := who(r, cookies)
	assert.Equal(t, "leo", w.Body.String())
	assert.NotEmpty(t, w.Result().Cookies(), "refreshed pair is written back")

	auth.err = service.ErrUnauthenticated
	w = who(r, cookies)
	assert.Equal(t, "anon", w.Body.String())
	assert.NotEmpty(t, w.Result().Cookies(), "stale session is cleared")

	auth.err = errors.New("redis down")
	assert.Equal(t, "anon", who(r, cookies).Body.String())
}

func TestCachePage(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/", CachePage(store, time.Minute), func(c *gin.Context) {
		calls++
		if c.Query("fail") != "" {
			c.String(http.StatusInternalServerError, "boom")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("page "+c.Query("page")))
	})
	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	w := get("/?page=2&b=1")
	assert.Equal(t, "page 2", w.Body.String())
	w = get("/?b=1&page=2")
	assert.Equal(t, "page 2", w.Body.String())
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	get("/?page=3")
	assert.Equal(t, 2, calls, "different query is a different entry")

	get("/?fail=1")
	get("/?fail=1")
	assert.Equal(t, 4, calls, "errors are not cached")

	require.NoError(t, store.Clear(context.Background()))
	get("/?page=2&b=1")
	assert.Equal(t, 5, calls)
}

func TestCachePageScopesByViewer(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if c.Query("as") != "" {
			c.Set(ContextUserIDKey, uint64(9))
		}
	}, CachePage(store, time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, "viewer %d", CurrentUserID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "viewer 0", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?as=1", nil))
	assert.Equal(t, "viewer 9", w.Body.String())
}
