package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

// render 所有模板都能拿到当前用户
func render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["user"] = middleware.CurrentUser(c)
	c.HTML(code, name, data)
}

// NotFound 也用作 NoRoute
func NotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "misc/404.html", gin.H{"path": c.Request.URL.Path})
}

func ServerError(c *gin.Context, err error) {
	log.Error.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	render(c, http.StatusInternalServerError, "misc/500.html", nil)
	c.Abort()
}

// Recovered 给 gin.CustomRecovery 用
func Recovered(c *gin.Context, rec any) {
	ServerError(c, fmt.Errorf("panic: %v", rec))
}

// fail ErrNotFound 走 404，其余走 500
func fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		NotFound(c)
		return
	}
	ServerError(c, err)
}

func postID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("post_id"), 10, 64)
	return id, err == nil && id > 0
}

func profileURL(username string) string {
	return "/" + username + "/"
}

func postURL(username string, id uint64) string {
	return fmt.Sprintf("/%s/%d/", username, id)
}
