package postgres

import (
	"campus-chat/mocks"
	"campus-chat/repositories"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"go.uber.org/mock/gomock"
)

func TestPublish_Keeps_Going_After_A_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockChangePublisher(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	conversation := repositories.ConversationChange(repositories.OperationUpdate, repositories.DiskConversation{ID: "c1"})
	message := repositories.MessageChange(repositories.OperationInsert, repositories.DiskMessage{ID: "m1"})

	// Given the first notification is lost, the second still goes out
	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), conversation).Return(fmt.Errorf("redis down")),
		publisher.EXPECT().Publish(gomock.Any(), message).Return(nil),
	)

	publish(context.Background(), log, publisher, conversation, message)
}

func TestPublish_Without_Publisher(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Must not panic
	publish(context.Background(), log, nil, repositories.MessageChange(repositories.OperationInsert, repositories.DiskMessage{}))
}
