package handler

import (
	"net/http"

	"github.com/Keril-png/hw05-final/internal/form"
	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

// AddComment 校验失败也直接跳回帖子页，不回显错误
func (h *CommentHandler) AddComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		NotFound(c)
		return
	}
	username := c.Param("username")
	if _, err := h.svc.Post(c.Request.Context(), username, id); err != nil {
		fail(c, err)
		return
	}

	var f form.CommentForm
	if err := c.ShouldBind(&f); err != nil || !f.Validate() {
		c.Redirect(http.StatusFound, postURL(username, id))
		return
	}
	if _, err := h.svc.Add(c.Request.Context(), middleware.CurrentUserID(c), username, id, f.Text); err != nil {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, postURL(username, id))
}
