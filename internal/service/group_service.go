package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/repository/database"

	"gorm.io/gorm"
)

var ErrSlugTaken = errors.New("a group with that slug already exists")

type GroupService struct {
	repo *database.GroupRepository
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{repo: &database.GroupRepository{DB: db}}
}

// Create 管理命令用，slug 唯一
func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*model.Group, error) {
	title = strings.TrimSpace(title)
	slug = strings.TrimSpace(slug)
	if title == "" || slug == "" {
		return nil, errors.New("title and slug required")
	}
	if len(title) > 200 || len(slug) > 50 {
		return nil, errors.New("title or slug too long")
	}
	if _, err := s.repo.FindBySlug(ctx, slug); err == nil {
		return nil, ErrSlugTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	g := &model.Group{Title: title, Slug: slug, Description: description}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	return s.repo.List(ctx)
}
