package storage

import (
	"context"
	"path"

	"github.com/google/uuid"
)

// ImageStore 图片对象存储
type ImageStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// NewObjectName 生成 posts/<uuid>.<ext>
func NewObjectName(ext string) string {
	return path.Join("posts", uuid.New().String()+"."+ext)
}
