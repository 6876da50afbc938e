package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Keril-png/hw05-final/internal/form"
	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	svc      *service.PostService
	comments *service.CommentService
	follows  *service.FollowService
}

func NewPostHandler(svc *service.PostService, comments *service.CommentService, follows *service.FollowService) *PostHandler {
	return &PostHandler{svc: svc, comments: comments, follows: follows}
}

// Index 首页，外面包了整页缓存
func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.svc.Feed(c.Request.Context(), c.Query("page"))
	if err != nil {
		ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "posts/index.html", gin.H{
		"page":      page,
		"paginator": page.Paginator,
	})
}

func (h *PostHandler) GroupPosts(c *gin.Context) {
	group, page, err := h.svc.GroupFeed(c.Request.Context(), c.Param("slug"), c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, "posts/group.html", gin.H{
		"group":     group,
		"page":      page,
		"paginator": page.Paginator,
	})
}

// PostView 单个帖子、评论和空白评论表单
func (h *PostHandler) PostView(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		NotFound(c)
		return
	}
	ctx := c.Request.Context()
	post, err := h.svc.Get(ctx, c.Param("username"), id)
	if err != nil {
		fail(c, err)
		return
	}
	comments, err := h.comments.List(ctx, post.ID)
	if err != nil {
		ServerError(c, err)
		return
	}
	profile, err := h.follows.ProfileOf(ctx, middleware.CurrentUserID(c), &post.Author)
	if err != nil {
		ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "posts/post.html", gin.H{
		"post":            post,
		"author":          profile.Author,
		"comments":        comments,
		"form":            &form.CommentForm{},
		"posts_count":     profile.PostsCount,
		"followers_count": profile.FollowersCount,
		"following_count": profile.FollowingCount,
		"following":       profile.Following,
	})
}

func (h *PostHandler) renderPostForm(c *gin.Context, f *form.PostForm, post *model.Post) {
	groups, err := h.svc.Groups(c.Request.Context())
	if err != nil {
		ServerError(c, err)
		return
	}
	render(c, http.StatusOK, "posts/new_post.html", gin.H{
		"form":    f,
		"groups":  groups,
		"post":    post,
		"is_edit": post != nil,
	})
}

// bindPostForm 绑定并校验，ok=false 时表单已带上错误
func (h *PostHandler) bindPostForm(c *gin.Context) (*form.PostForm, bool, error) {
	f := &form.PostForm{}
	if err := c.ShouldBind(f); err != nil {
		return nil, false, err
	}
	if fh, err := c.FormFile("image"); err == nil {
		f.ImageFile = fh
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return nil, false, err
	}
	ok, err := f.Validate(c.Request.Context(), h.svc.GroupExists)
	return f, ok, err
}

func (h *PostHandler) NewPostForm(c *gin.Context) {
	h.renderPostForm(c, &form.PostForm{}, nil)
}

// CreatePost 成功后回首页，校验失败原样回显
func (h *PostHandler) CreatePost(c *gin.Context) {
	f, ok, err := h.bindPostForm(c)
	if err != nil {
		ServerError(c, err)
		return
	}
	if !ok {
		h.renderPostForm(c, f, nil)
		return
	}
	_, err = h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), service.PostInput{
		Text:    f.Text,
		GroupID: f.GroupID,
		Image:   f.Image,
	})
	if err != nil {
		ServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// editable 非作者直接跳回帖子页
func (h *PostHandler) editable(c *gin.Context) (*model.Post, bool) {
	id, ok := postID(c)
	if !ok {
		NotFound(c)
		return nil, false
	}
	username := c.Param("username")
	post, err := h.svc.Get(c.Request.Context(), username, id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	if post.AuthorID != middleware.CurrentUserID(c) {
		c.Redirect(http.StatusFound, postURL(username, id))
		return nil, false
	}
	return post, true
}

func (h *PostHandler) PostEditForm(c *gin.Context) {
	post, ok := h.editable(c)
	if !ok {
		return
	}
	f := &form.PostForm{Text: post.Text}
	if post.GroupID != nil {
		f.Group = strconv.FormatUint(*post.GroupID, 10)
	}
	h.renderPostForm(c, f, post)
}

func (h *PostHandler) PostEdit(c *gin.Context) {
	post, ok := h.editable(c)
	if !ok {
		return
	}
	f, ok, err := h.bindPostForm(c)
	if err != nil {
		ServerError(c, err)
		return
	}
	if !ok {
		h.renderPostForm(c, f, post)
		return
	}
	username := c.Param("username")
	_, err = h.svc.Update(c.Request.Context(), middleware.CurrentUserID(c), username, post.ID, service.PostInput{
		Text:    f.Text,
		GroupID: f.GroupID,
		Image:   f.Image,
	})
	if err != nil && !errors.Is(err, service.ErrForbidden) {
		fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, postURL(username, post.ID))
}

// PostDelete 非作者同样静默跳回帖子页
func (h *PostHandler) PostDelete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		NotFound(c)
		return
	}
	username := c.Param("username")
	err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), username, id)
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.Redirect(http.StatusFound, postURL(username, id))
	case err != nil:
		fail(c, err)
	default:
		c.Redirect(http.StatusFound, profileURL(username))
	}
}
