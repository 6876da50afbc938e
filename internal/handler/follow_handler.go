package handler

import (
	"net/http"

	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	svc   *service.FollowService
	posts *service.PostService
}

func NewFollowHandler(svc *service.FollowService, posts *service.PostService) *FollowHandler {
	return &FollowHandler{svc: svc, posts: posts}
}

// FollowIndex 关注的作者的帖子
func (h *FollowHandler) FollowIndex(c *gin.Context) {
	page, err := h.posts.FollowFeed(c.Request.Context(), middleware.CurrentUserID(c), c.Query("page"))
	if err != nil {
		ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "posts/follow.html", gin.H{
		"page":      page,
		"paginator": page.Paginator,
	})
}

// ProfileFollow 幂等，关注自己时什么也不做
func (h *FollowHandler) ProfileFollow(c *gin.Context) {
	username := c.Param("username")
	if _, err := h.svc.Follow(c.Request.Context(), middleware.CurrentUserID(c), username); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}

func (h *FollowHandler) ProfileUnfollow(c *gin.Context) {
	username := c.Param("username")
	if _, err := h.svc.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), username); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, profileURL(username))
}
