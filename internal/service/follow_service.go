package service

import (
	"context"
	"time"

	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/model"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"

	"gorm.io/gorm"
)

// DefaultMaxRetry 超过后失败事件不再投递
const DefaultMaxRetry = 5

type FollowService struct {
	repo  *database.FollowRepository
	users *database.UserRepository
	posts *database.PostRepository
}

// Profile 个人主页顶部的数据
type Profile struct {
	Author         *model.User
	PostsCount     int64
	FollowersCount int64
	FollowingCount int64
	Following      bool // 当前访问者是否已关注
}

type Sender func(ctx context.Context, ob *model.SocialOutbox) error

// OutboxRelayer outbox表相关服务
type OutboxRelayer struct {
	repo      *database.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		repo:  &database.FollowRepository{DB: db},
		users: &database.UserRepository{DB: db},
		posts: &database.PostRepository{DB: db},
	}
}

func NewOutboxRelayer(db *gorm.DB, batchSize int, interval time.Duration, sender Sender) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      &database.OutboxRepository{DB: db},
		batchSize: batchSize,
		interval:  interval,
		maxRetry:  DefaultMaxRetry,
		sender:    sender,
	}
}

// Follow 关注自己或重复关注都是静默的 no-op
func (s *FollowService) Follow(ctx context.Context, followerID uint64, username string) (bool, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return false, notFound(err)
	}
	if followerID == 0 || followerID == author.ID {
		return false, nil
	}
	return s.repo.Follow(ctx, followerID, author.ID)
}

// Unfollow 关系不存在时同样是 no-op
func (s *FollowService) Unfollow(ctx context.Context, followerID uint64, username string) (bool, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return false, notFound(err)
	}
	if followerID == 0 || followerID == author.ID {
		return false, nil
	}
	return s.repo.Unfollow(ctx, followerID, author.ID)
}

// IsFollowing 未登录访问者（viewerID=0）总是 false
func (s *FollowService) IsFollowing(ctx context.Context, viewerID, authorID uint64) (bool, error) {
	if viewerID == 0 || viewerID == authorID {
		return false, nil
	}
	return s.repo.IsFollowing(ctx, viewerID, authorID)
}

// Profile 作者信息和计数
func (s *FollowService) Profile(ctx context.Context, viewerID uint64, username string) (*Profile, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err)
	}
	return s.ProfileOf(ctx, viewerID, author)
}

func (s *FollowService) ProfileOf(ctx context.Context, viewerID uint64, author *model.User) (*Profile, error) {
	p := &Profile{Author: author}
	var err error
	if p.PostsCount, err = s.posts.Count(ctx, database.PostFilter{AuthorID: author.ID}); err != nil {
		return nil, err
	}
	if p.FollowersCount, err = s.repo.CountFollowers(ctx, author.ID); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.repo.CountFollowing(ctx, author.ID); err != nil {
		return nil, err
	}
	if p.Following, err = s.IsFollowing(ctx, viewerID, author.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// Outbox 投递器，从数据库读取信息交给 sender 投递，返回成功条数
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		log.Error.Printf("outbox query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			log.Warn.Printf("outbox send id=%d retry=%d err: %v", ob.ID, ob.Retry, err)
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				log.Error.Printf("outbox retry update id=%d: %v", ob.ID, err)
			}
			continue
		}
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			log.Error.Printf("outbox success update id=%d: %v", ob.ID, err)
			continue
		}
		sent++
	}
	return sent
}

// KafkaSender 以关注者 id 作为分区 key
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.SocialOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.Follower), []byte(ob.Payload))
	}
}

// LogSender 没有配置 kafka 时只打印
func LogSender(_ context.Context, ob *model.SocialOutbox) error {
	log.Info.Printf("OUTBOX SEND type=%s follower=%d followee=%d payload=%s", ob.EventType, ob.Follower, ob.Followee, ob.Payload)
	return nil
}
