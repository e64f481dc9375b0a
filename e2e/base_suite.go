package e2e

import (
	"campus-chat/auth"
	"campus-chat/domain"
	"campus-chat/observability"
	"campus-chat/realtime"
	"campus-chat/repositories/postgres"
	"campus-chat/services"
	"campus-chat/storage"
	"campus-chat/store"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// BaseBackendSuite wires the chat core on Postgres and Redis pub/sub.
// It skips when DATABASE_DSN or REDIS_ADDR is unset.
type BaseBackendSuite struct {
	suite.Suite
	Config        Config
	Log           *slog.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	Conversations *store.ConversationStore
	Messages      *store.MessageStore
	Users         *store.UserDirectory
	UserRepo      postgres.UserRepository
	Feed          *realtime.Feed
	Metrics       *observability.Metrics
}

func (s *BaseBackendSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.DatabaseDSN == "" || s.Config.RedisAddr == "" {
		s.T().Skip("DATABASE_DSN and REDIS_ADDR are required for the backend suite")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Log = logs.GetLoggerFromLevel(slog.LevelDebug)
	s.DB, err = postgres.Open(ctx, s.Config.DatabaseDSN, s.Log)
	s.Require().NoError(err)
	s.Require().NoError(postgres.Migrate(s.DB))

	s.Redis = redis.NewClient(&redis.Options{Addr: s.Config.RedisAddr})
	s.Require().NoError(s.Redis.Ping(ctx).Err())

	source := realtime.NewRedisSource(s.Redis, s.Log, s.Config.RedisPrefix)
	avatars, err := storage.NewAvatars(storage.Config{Endpoint: "http://localhost:9000", Bucket: "avatars"})
	s.Require().NoError(err)
	conversations := postgres.NewConversationRepository(s.DB, source, s.Log)
	messages := postgres.NewMessageRepository(s.DB, source, s.Log)
	s.UserRepo = postgres.NewUserRepository(s.DB, s.Log)

	s.Metrics = observability.NewMetrics(prometheus.NewRegistry())
	s.Conversations = store.NewConversationStore(s.Log, conversations, messages, s.UserRepo, avatars)
	s.Messages = store.NewMessageStore(s.Log, messages, conversations, s.UserRepo, avatars)
	s.Users = store.NewUserDirectory(s.UserRepo, avatars)
	s.Feed = realtime.NewFeed(s.Log, source, realtime.NewRegistry(), s.Metrics)
}

func (s *BaseBackendSuite) TearDownSuite() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Step prints a colorized header for a scenario step.
func (s *BaseBackendSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// ServiceFor returns a chat service signed in as id.
func (s *BaseBackendSuite) ServiceFor(id domain.UserID) *services.ChatService {
	identity := auth.StaticIdentity{Identity: &domain.Identity{ID: id}}
	return services.NewChatService(s.Log, identity, s.Conversations, s.Messages, s.Users, s.Feed, s.Metrics, services.DefaultChatConfig())
}
