package internal

import (
	"campus-chat/storage"
	"fmt"
	"time"
)

const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend        string `env:"BACKEND,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,default=./data/bluge"`
	DatabaseDSN    string `env:"DATABASE_DSN"`
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPrefix    string `env:"REDIS_PREFIX,default=campus"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT,default=http://localhost:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL,default=false"`
	AvatarBucket   string `env:"AVATAR_BUCKET,default=avatars"`

	JWTSecret    string `env:"JWT_SECRET"`
	JWTIssuer    string `env:"JWT_ISSUER,default=campus-chat"`
	SessionToken string `env:"SESSION_TOKEN"`
	LogLevel     string `env:"LOG_LEVEL,default=INFO"`

	ModerationWords string `env:"MODERATION_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=500"`
	SearchLimit      int           `env:"SEARCH_LIMIT,default=10"`
	SubscribeTimeout time.Duration `env:"SUBSCRIBE_TIMEOUT,default=5s"`
	EchoWindow       time.Duration `env:"ECHO_WINDOW,default=5s"`
	FeedTTL          time.Duration `env:"FEED_TTL,default=10m"`
	BadgerGCInterval time.Duration `env:"BADGER_GC_INTERVAL,default=5m"`
}

// Validate checks the combinations go-env cannot express with tags.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendBadger:
		if c.BadgerFilepath == "" || c.BlugeFilepath == "" {
			return fmt.Errorf("BADGER_FILEPATH and BLUGE_FILEPATH are required for the %s backend", c.Backend)
		}
	case BackendPostgres:
		if c.DatabaseDSN == "" || c.RedisAddr == "" {
			return fmt.Errorf("DATABASE_DSN and REDIS_ADDR are required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendBadger, BackendPostgres, c.Backend)
	}
	if c.MaxContentLength <= 0 {
		return fmt.Errorf("MAX_CONTENT_LENGTH must be positive, got %d", c.MaxContentLength)
	}
	if c.Backend == BackendBadger && c.BadgerGCInterval <= 0 {
		return fmt.Errorf("BADGER_GC_INTERVAL must be positive, got %s", c.BadgerGCInterval)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	if c.SessionToken != "" && c.JWTSecret == "" {
		return fmt.Errorf("SESSION_TOKEN is set but JWT_SECRET is missing")
	}
	return nil
}

func (c Config) Avatars() storage.Config {
	return storage.Config{
		Endpoint:  c.MinioEndpoint,
		AccessKey: c.MinioAccessKey,
		SecretKey: c.MinioSecretKey,
		UseSSL:    c.MinioUseSSL,
		Bucket:    c.AvatarBucket,
	}
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf("CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return r[0], nil
}
