package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Keril-png/hw05-final/internal/config"
	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	hashCost = bcrypt.MinCost
	log.Silence()
	os.Exit(m.Run())
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, htmlBody)
	return nil
}

var codeRe = regexp.MustCompile(`<b[^>]*>(\d{6})</b>`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := codeRe.FindStringSubmatch(m.sent[len(m.sent)-1])
	require.Len(t, match, 2)
	return match[1]
}

type env struct {
	db     *gorm.DB
	mr     *miniredis.Miniredis
	rdb    *goredis.Client
	mailer *fakeMailer
	images *storage.DiskStore
	users  *UserService
	posts  *PostService
	follow *FollowService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.InitDB(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	mailer := &fakeMailer{}
	images := &storage.DiskStore{Dir: t.TempDir(), URLPrefix: "/media"}
	return &env{
		db:     db,
		mr:     mr,
		rdb:    rdb,
		mailer: mailer,
		images: images,
		users:  NewUserService(db, rdb, NewEmailService(mailer, rdb)),
		posts:  NewPostService(db, images),
		follow: NewFollowService(db),
	}
}

func (e *env) register(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), name, "secret-pass", name+"@example.com")
	require.NoError(t, err)
	return u
}

func pngImage(t *testing.T) *pkg.Image {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	img, err := pkg.DecodeImage(buf.Bytes())
	require.NoError(t, err)
	return img
}

func TestRegisterRejectsReservedAndDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "leo")

	_, err := e.users.Register(ctx, "leo", "secret-pass", "other@example.com")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	_, err = e.users.Register(ctx, "leo2", "secret-pass", "leo@example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
	for _, name := range []string{"new", "Follow", "auth"} {
		_, err = e.users.Register(ctx, name, "secret-pass", name+"@example.com")
		assert.ErrorIs(t, err, ErrUsernameReserved, name)
	}
}

func TestRegisterMapsUniqueIndexConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "leo")

	// 绕过前置检查，直接撞唯一索引
	err := e.users.create(ctx, &model.User{Username: "leo", Password: "x", Email: "fresh@example.com"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	err = e.users.create(ctx, &model.User{Username: "fresh", Password: "x", Email: "leo@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	var n int64
	require.NoError(t, e.db.Model(&model.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLoginAuthenticateLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "leo")

	_, err := e.users.Login(ctx, "leo", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.users.Login(ctx, "ghost", "secret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := e.users.Login(ctx, "leo@example.com", "secret-pass")
	require.NoError(t, err)

	got, refreshed, err := e.users.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, refreshed)
	assert.Equal(t, u.ID, got.ID)

	// 再次登录后旧 token 失效
	pair2, err := e.users.Login(ctx, "leo", "secret-pass")
	require.NoError(t, err)
	if pair2.AccessToken != pair.AccessToken {
		_, _, err = e.users.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}

	require.NoError(t, e.users.Logout(ctx, u.ID))
	_, _, err = e.users.Authenticate(ctx, pair2.AccessToken, pair2.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = e.users.Authenticate(ctx, "garbage", "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticateRefreshesExpiredAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "leo")

	past := time.Now().Add(-time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, pkg.Claims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
			Subject:   "access",
		},
	}).SignedString(pkg.AccessSecret)
	require.NoError(t, err)
	fresh, err := pkg.GeneratePair(u.ID)
	require.NoError(t, err)

	// 未登记的过期 token 不能刷新
	_, _, err = e.users.Authenticate(ctx, expired, fresh.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, e.rdb.Set(ctx, "login:user:token:"+pkg.MakeKeyFromID(u.ID), expired, time.Minute).Err())
	got, pair, err := e.users.Authenticate(ctx, expired, fresh.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, u.ID, got.ID)

	got, again, err := e.users.Authenticate(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, u.ID, got.ID)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.register(t, "leo")

	assert.ErrorIs(t, e.users.ChangePassword(ctx, u.ID, "nope", "another-pass"), ErrWrongPassword)
	require.NoError(t, e.users.ChangePassword(ctx, u.ID, "secret-pass", "another-pass"))
	_, err := e.users.Login(ctx, "leo", "secret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.users.Login(ctx, "leo", "another-pass")
	assert.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "leo")

	require.NoError(t, e.users.SendResetCode(ctx, "nobody@example.com"))
	assert.Empty(t, e.mailer.sent)

	require.NoError(t, e.users.SendResetCode(ctx, "leo@example.com"))
	code := e.mailer.lastCode(t)

	assert.ErrorIs(t, e.users.ResetPassword(ctx, "leo@example.com", "000000x", "brand-new-pass"), ErrCodeMismatch)
	require.NoError(t, e.users.ResetPassword(ctx, "leo@example.com", code, "brand-new-pass"))
	// 验证码只能用一次
	assert.ErrorIs(t, e.users.ResetPassword(ctx, "leo@example.com", code, "other-pass"), ErrCodeMismatch)

	_, err := e.users.Login(ctx, "leo", "brand-new-pass")
	assert.NoError(t, err)
}

func TestPasswordResetMailFailureLeavesNoCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "leo")
	e.mailer.err = errors.New("smtp down")

	assert.Error(t, e.users.SendResetCode(ctx, "leo@example.com"))
	assert.Empty(t, e.mr.Keys())
}

func TestPostLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	bob := e.register(t, "bob")
	g, err := NewGroupService(e.db).Create(ctx, "Cats", "cats", "")
	require.NoError(t, err)

	ok, err := e.posts.GroupExists(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.posts.GroupExists(ctx, g.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	post, err := e.posts.Create(ctx, leo.ID, PostInput{Text: "hello", GroupID: &g.ID, Image: pngImage(t)})
	require.NoError(t, err)
	require.NotEmpty(t, post.Image)
	_, err = os.Stat(filepath.Join(e.images.Dir, filepath.FromSlash(post.Image)))
	require.NoError(t, err)

	_, err = e.posts.Update(ctx, bob.ID, "leo", post.ID, PostInput{Text: "hijack"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.posts.Get(ctx, "bob", post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := e.posts.Update(ctx, leo.ID, "leo", post.ID, PostInput{Text: "edited"})
	require.NoError(t, err)
	assert.Equal(t, post.Image, updated.Image, "image kept when not replaced")
	assert.Nil(t, updated.GroupID)

	_, page, err := e.posts.GroupFeed(ctx, "cats", "")
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	_, _, err = e.posts.GroupFeed(ctx, "dogs", "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, e.posts.Delete(ctx, bob.ID, "leo", post.ID), ErrForbidden)
	require.NoError(t, e.posts.Delete(ctx, leo.ID, "leo", post.ID))
	_, err = os.Stat(filepath.Join(e.images.Dir, filepath.FromSlash(post.Image)))
	assert.True(t, os.IsNotExist(err))
}

func TestFeedPagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	for i := 0; i < 15; i++ {
		_, err := e.posts.Create(ctx, leo.ID, PostInput{Text: "post"})
		require.NoError(t, err)
	}

	p1, err := e.posts.Feed(ctx, "")
	require.NoError(t, err)
	assert.Len(t, p1.Posts, 10)
	assert.Equal(t, 2, p1.NumPages)

	p3, err := e.posts.Feed(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 2, p3.Number)
	assert.Len(t, p3.Posts, 5)

	empty, err := e.posts.FollowFeed(ctx, leo.ID, "")
	require.NoError(t, err)
	assert.Empty(t, empty.Posts)
	assert.Equal(t, 1, empty.NumPages)
}

func TestFollowAndProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	bob := e.register(t, "bob")
	_, err := e.posts.Create(ctx, bob.ID, PostInput{Text: "from bob"})
	require.NoError(t, err)

	changed, err := e.follow.Follow(ctx, leo.ID, "leo")
	require.NoError(t, err)
	assert.False(t, changed, "self follow is a no-op")

	changed, err = e.follow.Follow(ctx, leo.ID, "bob")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = e.follow.Follow(ctx, leo.ID, "bob")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = e.follow.Follow(ctx, leo.ID, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := e.follow.Profile(ctx, leo.ID, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.PostsCount)
	assert.EqualValues(t, 1, p.FollowersCount)
	assert.EqualValues(t, 0, p.FollowingCount)
	assert.True(t, p.Following)

	anon, err := e.follow.Profile(ctx, 0, "bob")
	require.NoError(t, err)
	assert.False(t, anon.Following)

	changed, err = e.follow.Unfollow(ctx, leo.ID, "bob")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = e.follow.Unfollow(ctx, leo.ID, "bob")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestOutboxRelayerDrain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	e.register(t, "bob")
	_, err := e.follow.Follow(ctx, leo.ID, "bob")
	require.NoError(t, err)
	_, err = e.follow.Unfollow(ctx, leo.ID, "bob")
	require.NoError(t, err)

	var got []string
	failing := true
	r := NewOutboxRelayer(e.db, 10, time.Second, func(_ context.Context, ob *model.SocialOutbox) error {
		if failing {
			return errors.New("broker down")
		}
		got = append(got, ob.EventType)
		return nil
	})

	assert.Zero(t, r.drainOnce(ctx))
	var failed int64
	require.NoError(t, e.db.Model(&model.SocialOutbox{}).Where("status = ? AND retry = 1", model.OutboxFailed).Count(&failed).Error)
	assert.EqualValues(t, 2, failed)

	failing = false
	assert.Equal(t, 2, r.drainOnce(ctx))
	assert.Equal(t, []string{"follow", "unfollow"}, got)
	assert.Zero(t, r.drainOnce(ctx), "sent rows are not picked again")
}

func TestOutboxRelayerGivesUpAfterMaxRetry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	e.register(t, "bob")
	_, err := e.follow.Follow(ctx, leo.ID, "bob")
	require.NoError(t, err)

	calls := 0
	r := NewOutboxRelayer(e.db, 10, time.Second, func(context.Context, *model.SocialOutbox) error {
		calls++
		return errors.New("broker down")
	})
	for i := 0; i < DefaultMaxRetry+3; i++ {
		r.drainOnce(ctx)
	}
	assert.Equal(t, DefaultMaxRetry, calls)
}

func TestCommentAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	bob := e.register(t, "bob")
	post, err := e.posts.Create(ctx, leo.ID, PostInput{Text: "hello"})
	require.NoError(t, err)

	comments := NewCommentService(e.db)
	_, err = comments.Add(ctx, bob.ID, "bob", post.ID, "wrong author")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = comments.Add(ctx, bob.ID, "leo", post.ID, "first")
	require.NoError(t, err)
	_, err = comments.Add(ctx, leo.ID, "leo", post.ID, "second")
	require.NoError(t, err)

	list, err := comments.List(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Text)
	assert.Equal(t, "bob", list[0].Author.Username)
}

func TestDeleteUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	leo := e.register(t, "leo")
	_, err := e.posts.Create(ctx, leo.ID, PostInput{Text: "bye"})
	require.NoError(t, err)

	require.NoError(t, e.users.Delete(ctx, "leo"))
	page, err := e.posts.Feed(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.ErrorIs(t, e.users.Delete(ctx, "leo"), ErrNotFound)
}
