package service

import (
	"context"

	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/repository/database"

	"gorm.io/gorm"
)

type CommentService struct {
	repo  *database.CommentRepository
	posts *database.PostRepository
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		repo:  &database.CommentRepository{DB: db},
		posts: &database.PostRepository{DB: db},
	}
}

// Add 评论挂在 username 的帖子下，帖子不匹配时返回 ErrNotFound
func (s *CommentService) Add(ctx context.Context, authorID uint64, username string, postID uint64, text string) (*model.Comment, error) {
	post, err := s.posts.FindByAuthor(ctx, username, postID)
	if err != nil {
		return nil, notFound(err)
	}
	c := &model.Comment{PostID: post.ID, AuthorID: authorID, Text: text}
	if err = s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Post 评论目标，帖子不属于 username 时返回 ErrNotFound
func (s *CommentService) Post(ctx context.Context, username string, postID uint64) (*model.Post, error) {
	post, err := s.posts.FindByAuthor(ctx, username, postID)
	return post, notFound(err)
}

// List 旧评论在前
func (s *CommentService) List(ctx context.Context, postID uint64) ([]model.Comment, error) {
	return s.repo.ListByPost(ctx, postID)
}
