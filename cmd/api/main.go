package main

import (
	"context"
	"flag"

	"github.com/Keril-png/hw05-final/internal/cache"
	"github.com/Keril-png/hw05-final/internal/config"
	"github.com/Keril-png/hw05-final/internal/log"
	"github.com/Keril-png/hw05-final/internal/pkg"
	"github.com/Keril-png/hw05-final/internal/repository/database"
	"github.com/Keril-png/hw05-final/internal/repository/redis"
	"github.com/Keril-png/hw05-final/internal/router"
	"github.com/Keril-png/hw05-final/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error.Fatalf("load config: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Error.Fatalf("connect database: %v", err)
	}
	// 自动建表
	if err = database.AutoMigrate(db); err != nil {
		log.Error.Fatalf("migrate: %v", err)
	}

	// 连接redis
	rdb, err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error.Fatalf("connect redis: %v", err)
	}

	var pageCache cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		pageCache = cache.NewRedisStore(rdb)
	default:
		pageCache = cache.NewMemoryStore(cfg.Cache.TTL)
	}

	deps := router.Deps{
		DB:            db,
		RDB:           rdb,
		PageCache:     pageCache,
		PageCacheTTL:  cfg.Cache.TTL,
		SessionSecret: cfg.Server.SessionSecret,
		SecureCookie:  cfg.Server.Mode == gin.ReleaseMode,
		LoginURL:      cfg.Server.LoginURL,
	}
	switch cfg.Storage.Backend {
	case "minio":
		deps.Images, err = storage.NewMinioStore(context.Background(), storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			log.Error.Fatalf("connect minio: %v", err)
		}
	default:
		deps.Images = &storage.DiskStore{Dir: cfg.Storage.Dir, URLPrefix: cfg.Storage.URLPrefix}
		deps.MediaDir = cfg.Storage.Dir
		deps.MediaPrefix = cfg.Storage.URLPrefix
	}

	pkg.SetSecrets(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret)

	// 配置邮件环境
	from := cfg.SMTP.From
	if from == "" {
		from = cfg.SMTP.Username
	}
	deps.Mailer = &pkg.SMTPMailer{Cfg: pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     from,
	}}

	r, err := router.InitRouter(deps)
	if err != nil {
		log.Error.Fatalf("init router: %v", err)
	}
	log.Info.Printf("listening on %s (db=%s cache=%s storage=%s)", cfg.Server.Addr, cfg.Database.Driver, cfg.Cache.Backend, cfg.Storage.Backend)
	if err = r.Run(cfg.Server.Addr); err != nil {
		log.Error.Fatalf("server: %v", err)
	}
}
