package service

import (
	"context"
	"errors"

	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/storage"

	"gorm.io/gorm"
)

type PostService struct {
	repo    *database.PostRepository
	groups  *database.GroupRepository
	users   *database.UserRepository
	images  storage.ImageStore
	perPage int
}

// PostPage 一页帖子加分页信息
type PostPage struct {
	pkg.Paginator
	Posts []model.Post
}

// PostInput 新建和编辑共用
type PostInput struct {
	Text    string
	GroupID *uint64
	Image   *pkg.Image // nil 表示不改图片
}

func NewPostService(db *gorm.DB, images storage.ImageStore) *PostService {
	return &PostService{
		repo:    &database.PostRepository{DB: db},
		groups:  &database.GroupRepository{DB: db},
		users:   &database.UserRepository{DB: db},
		images:  images,
		perPage: pkg.DefaultPerPage,
	}
}

func (s *PostService) list(ctx context.Context, f database.PostFilter, pageParam string) (*PostPage, error) {
	count, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, err
	}
	p := pkg.NewPaginator(count, s.perPage, pageParam)
	posts, err := s.repo.List(ctx, f, p.Offset(), p.Limit())
	if err != nil {
		return nil, err
	}
	return &PostPage{Paginator: p, Posts: posts}, nil
}

// Feed 首页，全部帖子
func (s *PostService) Feed(ctx context.Context, pageParam string) (*PostPage, error) {
	return s.list(ctx, database.PostFilter{}, pageParam)
}

func (s *PostService) GroupFeed(ctx context.Context, slug, pageParam string) (*model.Group, *PostPage, error) {
	group, err := s.groups.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, notFound(err)
	}
	page, err := s.list(ctx, database.PostFilter{GroupID: group.ID}, pageParam)
	if err != nil {
		return nil, nil, err
	}
	return group, page, nil
}

func (s *PostService) AuthorFeed(ctx context.Context, authorID uint64, pageParam string) (*PostPage, error) {
	return s.list(ctx, database.PostFilter{AuthorID: authorID}, pageParam)
}

// FollowFeed 关注的作者的帖子，没有关注时是空页
func (s *PostService) FollowFeed(ctx context.Context, userID uint64, pageParam string) (*PostPage, error) {
	return s.list(ctx, database.PostFilter{FollowerID: userID}, pageParam)
}

// Get 帖子必须属于 username
func (s *PostService) Get(ctx context.Context, username string, id uint64) (*model.Post, error) {
	post, err := s.repo.FindByAuthor(ctx, username, id)
	if err != nil {
		return nil, notFound(err)
	}
	return post, nil
}

func (s *PostService) Create(ctx context.Context, authorID uint64, in PostInput) (*model.Post, error) {
	post := &model.Post{
		Text:     in.Text,
		AuthorID: authorID,
		GroupID:  in.GroupID,
	}
	if in.Image != nil {
		name, err := s.putImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = name
	}
	if err := s.repo.Create(ctx, post); err != nil {
		s.dropImage(ctx, post.Image)
		return nil, err
	}
	return post, nil
}

// Update 只有作者能改，非作者返回 ErrForbidden 且不做任何修改
func (s *PostService) Update(ctx context.Context, editorID uint64, username string, id uint64, in PostInput) (*model.Post, error) {
	post, err := s.Get(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != editorID {
		return nil, ErrForbidden
	}

	oldImage := post.Image
	post.Text = in.Text
	post.GroupID = in.GroupID
	if in.Image != nil {
		name, err := s.putImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = name
	}
	if err = s.repo.Update(ctx, post); err != nil {
		if post.Image != oldImage {
			s.dropImage(ctx, post.Image)
		}
		return nil, err
	}
	if post.Image != oldImage {
		s.dropImage(ctx, oldImage)
	}
	return post, nil
}

// Delete 连同评论和图片一起删除
func (s *PostService) Delete(ctx context.Context, editorID uint64, username string, id uint64) error {
	post, err := s.Get(ctx, username, id)
	if err != nil {
		return err
	}
	if post.AuthorID != editorID {
		return ErrForbidden
	}
	if err = s.repo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.dropImage(ctx, post.Image)
	return nil
}

// GroupExists 供表单校验分组
func (s *PostService) GroupExists(ctx context.Context, id uint64) (bool, error) {
	_, err := s.groups.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *PostService) Groups(ctx context.Context) ([]model.Group, error) {
	return s.groups.List(ctx)
}

func (s *PostService) ImageURL(name string) string {
	return s.images.URL(name)
}

func (s *PostService) putImage(ctx context.Context, img *pkg.Image) (string, error) {
	name := storage.NewObjectName(img.Ext)
	if err := s.images.Put(ctx, name, img.Data, img.ContentType); err != nil {
		return "", err
	}
	return name, nil
}

// dropImage 删除失败只记日志
func (s *PostService) dropImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := s.images.Delete(ctx, name); err != nil {
		log.Warn.Printf("delete image %s: %v", name, err)
	}
}
