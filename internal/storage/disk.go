package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore 本地目录存储，开发环境和测试用，由 gin 静态路由对外提供
type DiskStore struct {
	Dir       string
	URLPrefix string
}

func (s *DiskStore) path(name string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(name))
}

func (s *DiskStore) Put(_ context.Context, name string, data []byte, _ string) error {
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *DiskStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *DiskStore) URL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(s.URLPrefix, "/") + "/" + name
}
