package database

import (
	"context"

	"github.com/Keril-png/hw05-final/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository struct {
	DB *gorm.DB
}

// PostFilter 列表查询条件，零值表示全部帖子
type PostFilter struct {
	GroupID    uint64
	AuthorID   uint64
	FollowerID uint64 // 只看该用户关注的作者
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	return &post, err
}

// FindByAuthor 帖子必须属于该用户名
func (r *PostRepository) FindByAuthor(ctx context.Context, username string, id uint64) (*model.Post, error) {
	var post model.Post
	err := r.DB.WithContext(ctx).
		Joins("Author").
		Preload("Group").
		Where("posts.id = ?", id).
		Where(clause.Eq{Column: clause.Column{Table: "Author", Name: "username"}, Value: username}).
		First(&post).Error
	return &post, err
}

func (r *PostRepository) scope(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&model.Post{})
	if f.GroupID > 0 {
		q = q.Where("posts.group_id = ?", f.GroupID)
	}
	if f.AuthorID > 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.FollowerID > 0 {
		followed := r.DB.WithContext(ctx).Model(&model.Follow{}).Select("author_id").Where("user_id = ?", f.FollowerID)
		q = q.Where("posts.author_id IN (?)", followed)
	}
	return q
}

func (r *PostRepository) Count(ctx context.Context, f PostFilter) (int64, error) {
	var n int64
	err := r.scope(ctx, f).Count(&n).Error
	return n, err
}

// List 新帖在前，offset/limit 分页
func (r *PostRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.scope(ctx, f).
		Preload("Author").
		Preload("Group").
		Order("posts.pub_date DESC, posts.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Update 只改正文、分组和图片，作者与发布时间不动
func (r *PostRepository) Update(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
}

// Delete 连同评论一起删除
func (r *PostRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Post{}, id).Error
	})
}
