package router

import (
	"html/template"
	"net/http"
	"time"

	"github.com/Keril-png/hw05-final/internal/cache"
	"github.com/Keril-png/hw05-final/internal/form"
	"github.com/Keril-png/hw05-final/internal/handler"
	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/service"
	"github.com/Keril-png/hw05-final/internal/storage"
	"github.com/Keril-png/hw05-final/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const sessionName = "blog_session"

// Deps 由 main 组装后注入
type Deps struct {
	DB            *gorm.DB
	RDB           *goredis.Client
	PageCache     cache.Store
	PageCacheTTL  time.Duration
	Images        storage.ImageStore
	Mailer        pkg.Mailer
	SessionSecret string
	SecureCookie  bool
	LoginURL      string
	// MediaDir 非空时由本服务提供 /media 静态文件
	MediaDir    string
	MediaPrefix string
}

func InitRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(handler.Recovered))
	r.MaxMultipartMemory = form.MaxUploadSize

	posts := service.NewPostService(d.DB, d.Images)
	tmpl, err := web.ParseTemplates(template.FuncMap{
		"imageURL": posts.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(pkg.RefreshTTL / time.Second),
		HttpOnly: true,
		Secure:   d.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	comments := service.NewCommentService(d.DB)
	follows := service.NewFollowService(d.DB)
	users := service.NewUserService(d.DB, d.RDB, service.NewEmailService(d.Mailer, d.RDB))

	r.Use(sessions.Sessions(sessionName, store), middleware.Authenticate(users))

	post := handler.NewPostHandler(posts, comments, follows)
	comment := handler.NewCommentHandler(comments)
	follow := handler.NewFollowHandler(follows, posts)
	profile := handler.NewProfileHandler(follows, posts)
	auth := handler.NewAuthHandler(users, d.LoginURL)
	loginRequired := middleware.LoginRequired(d.LoginURL)

	if d.MediaDir != "" {
		r.Static(d.MediaPrefix, d.MediaDir)
	}

	// 只有首页带整页缓存
	r.GET("/", middleware.CachePage(d.PageCache, d.PageCacheTTL), post.Index)
	r.GET("/group/:slug/", post.GroupPosts)
	r.GET("/new/", loginRequired, post.NewPostForm)
	r.POST("/new/", loginRequired, post.CreatePost)
	r.GET("/follow/", loginRequired, follow.FollowIndex)

	// 账号相关
	authGroup := r.Group("/auth")
	{
		authGroup.GET("/signup/", auth.SignupForm)
		authGroup.POST("/signup/", auth.Signup)
		authGroup.GET("/login/", auth.LoginForm)
		authGroup.POST("/login/", auth.Login)
		authGroup.GET("/logout/", auth.Logout)
		authGroup.GET("/password_change/", loginRequired, auth.PasswordChangeForm)
		authGroup.POST("/password_change/", loginRequired, auth.PasswordChange)
		authGroup.GET("/password_reset/", auth.PasswordResetForm)
		authGroup.POST("/password_reset/", auth.PasswordReset)
		authGroup.GET("/password_reset/confirm/", auth.PasswordResetConfirmForm)
		authGroup.POST("/password_reset/confirm/", auth.PasswordResetConfirm)
	}

	// 用户主页和帖子
	userGroup := r.Group("/:username")
	{
		userGroup.GET("/", profile.Profile)
		userGroup.GET("/follow/", loginRequired, follow.ProfileFollow)
		userGroup.GET("/unfollow/", loginRequired, follow.ProfileUnfollow)
		userGroup.GET("/:post_id/", post.PostView)
		userGroup.GET("/:post_id/edit/", loginRequired, post.PostEditForm)
		userGroup.POST("/:post_id/edit/", loginRequired, post.PostEdit)
		userGroup.POST("/:post_id/comment/", loginRequired, comment.AddComment)
		userGroup.POST("/:post_id/delete/", loginRequired, post.PostDelete)
	}

	r.NoRoute(handler.NotFound)
	return r, nil
}
