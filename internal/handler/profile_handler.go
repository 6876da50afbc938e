package handler

import (
	"net/http"

	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	follows *service.FollowService
	posts   *service.PostService
}

func NewProfileHandler(follows *service.FollowService, posts *service.PostService) *ProfileHandler {
	return &ProfileHandler{follows: follows, posts: posts}
}

func (h *ProfileHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := h.follows.Profile(ctx, middleware.CurrentUserID(c), c.Param("username"))
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.posts.AuthorFeed(ctx, profile.Author.ID, c.Query("page"))
	if err != nil {
		ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "posts/profile.html", gin.H{
		"author":          profile.Author,
		"page":            page,
		"paginator":       page.Paginator,
		"posts_count":     profile.PostsCount,
		"followers_count": profile.FollowersCount,
		"following_count": profile.FollowingCount,
		"following":       profile.Following,
	})
}
