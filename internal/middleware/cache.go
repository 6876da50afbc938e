package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Keril-png/hw05-final/internal/cache"
	"github.com/Keril-png/hw05-final/internal/log"

	"github.com/gin-gonic/gin"
)

// bodyWriter 边写边留一份响应体
type bodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageCacheKey 访问者范围 + 路径 + 排序后的查询串
func PageCacheKey(c *gin.Context) string {
	scope := "anon"
	if id := CurrentUserID(c); id != 0 {
		scope = "u" + strconv.FormatUint(id, 10)
	}
	key := "page:" + scope + ":" + c.Request.URL.Path
	if q := c.Request.URL.Query().Encode(); q != "" {
		key += "?" + q
	}
	return key
}

// CachePage 整页缓存，命中时跳过后面的 handler。只缓存 200，写操作不主动失效
func CachePage(store cache.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := PageCacheKey(c)

		data, ok, err := store.Get(ctx, key)
		if err != nil {
			log.Warn.Printf("page cache get %s: %v", key, err)
		} else if ok {
			contentType, body, _ := bytes.Cut(data, []byte{'\n'})
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, string(contentType), body)
			c.Abort()
			return
		}

		w := &bodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()
		c.Writer = w.ResponseWriter

		if w.Status() != http.StatusOK || c.IsAborted() {
			return
		}
		contentType := strings.ReplaceAll(w.Header().Get("Content-Type"), "\n", "")
		entry := make([]byte, 0, len(contentType)+1+w.body.Len())
		entry = append(entry, contentType...)
		entry = append(entry, '\n')
		entry = append(entry, w.body.Bytes()...)
		if err = store.Set(ctx, key, entry, ttl); err != nil {
			log.Warn.Printf("page cache set %s: %v", key, err)
		}
	}
}
