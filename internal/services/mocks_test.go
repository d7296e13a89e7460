package services

import (
	"context"

	"github.com/rentease/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*IntentResult), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Emit(ctx context.Context, n models.Notification) {
	m.Called(ctx, n)
}

// notificationFor matches a notification by recipient and type.
func notificationFor(userID, kind string) any {
	return mock.MatchedBy(func(n models.Notification) bool {
		return n.UserID == userID && n.Type == kind
	})
}
