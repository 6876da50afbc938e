package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	JWT      JWTConfig      `yaml:"jwt"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Outbox   OutboxConfig   `yaml:"outbox"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	Mode          string `yaml:"mode"` // debug | release | test
	SessionSecret string `yaml:"session_secret"`
	LoginURL      string `yaml:"login_url"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql | postgres | sqlite
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Backend string        `yaml:"backend"` // memory | redis
	TTL     time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"` // minio | disk
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
	Dir       string `yaml:"dir"`
	URLPrefix string `yaml:"url_prefix"`
}

type JWTConfig struct {
	AccessSecret  string `yaml:"access_secret"`
	RefreshSecret string `yaml:"refresh_secret"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type OutboxConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Interval  time.Duration `yaml:"interval"`
}

// Load 先读 YAML 文件（可不存在），再用 BLOG_* 环境变量覆盖，最后补默认值
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err = yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "BLOG_ADDR")
	setString(&c.Server.Mode, "BLOG_MODE")
	setString(&c.Server.SessionSecret, "BLOG_SESSION_SECRET")
	setString(&c.Database.Driver, "BLOG_DB_DRIVER")
	setString(&c.Database.DSN, "BLOG_DB_DSN")
	setString(&c.Redis.Addr, "BLOG_REDIS_ADDR")
	setString(&c.Redis.Password, "BLOG_REDIS_PASSWORD")
	setInt(&c.Redis.DB, "BLOG_REDIS_DB")
	setString(&c.Cache.Backend, "BLOG_CACHE_BACKEND")
	setDuration(&c.Cache.TTL, "BLOG_CACHE_TTL")
	setString(&c.Storage.Backend, "BLOG_STORAGE_BACKEND")
	setString(&c.Storage.Endpoint, "BLOG_MINIO_ENDPOINT")
	setString(&c.Storage.AccessKey, "BLOG_MINIO_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "BLOG_MINIO_SECRET_KEY")
	setString(&c.JWT.AccessSecret, "BLOG_JWT_ACCESS_SECRET")
	setString(&c.JWT.RefreshSecret, "BLOG_JWT_REFRESH_SECRET")
	setString(&c.SMTP.Host, "BLOG_SMTP_HOST")
	setString(&c.SMTP.Username, "BLOG_SMTP_USERNAME")
	setString(&c.SMTP.Password, "BLOG_SMTP_PASSWORD")
	if v := os.Getenv("BLOG_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.SessionSecret == "" {
		c.Server.SessionSecret = "dev-session-secret"
	}
	if c.Server.LoginURL == "" {
		c.Server.LoginURL = "/auth/login/"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.DSN == "" && c.Database.Driver == "mysql" {
		c.Database.DSN = "user:password@tcp(127.0.0.1:3306)/blog?charset=utf8mb4&parseTime=True"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 20 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "disk"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "posts"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "media"
	}
	if c.Storage.URLPrefix == "" {
		c.Storage.URLPrefix = "/media"
	}
	if c.JWT.AccessSecret == "" {
		c.JWT.AccessSecret = "secret-key"
	}
	if c.JWT.RefreshSecret == "" {
		c.JWT.RefreshSecret = "refresh-key"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "social-events"
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 200
	}
	if c.Outbox.Interval <= 0 {
		c.Outbox.Interval = time.Second
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
