// Package mocks holds hand-written testify mocks for the service layer's
// repository and gateway interfaces.
package mocks

import (
	"context"
	"time"

	"gods_arena/internal/model"
	"gods_arena/pkg/paypal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLivesRepository struct {
	mock.Mock
}

func (m *MockLivesRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockLivesRepository) UpdateUserLives(ctx context.Context, telegramID int64, lives int, lastRecovery time.Time, version int) error {
	args := m.Called(ctx, telegramID, lives, lastRecovery, version)
	return args.Error(0)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockQuestRepository) GetActiveQuestsByType(ctx context.Context, questType model.QuestType) ([]*model.Quest, error) {
	args := m.Called(ctx, questType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetQuestsByIDs(ctx context.Context, questIDs []uuid.UUID) ([]*model.Quest, error) {
	args := m.Called(ctx, questIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, questID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quest), args.Error(1)
}

func (m *MockQuestRepository) GetUserQuest(ctx context.Context, userQuestID uuid.UUID) (*model.UserQuest, error) {
	args := m.Called(ctx, userQuestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserQuest), args.Error(1)
}

func (m *MockQuestRepository) GetUserQuestsByUser(ctx context.Context, telegramID int64) ([]*model.UserQuest, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserQuest), args.Error(1)
}

func (m *MockQuestRepository) ClaimQuestReward(ctx context.Context, userQuestID uuid.UUID, telegramID int64, favor, essence int) (int, int, error) {
	args := m.Called(ctx, userQuestID, telegramID, favor, essence)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockQuestRepository) UpdateQuestRotation(ctx context.Context, telegramID int64, questType model.QuestType, questIDs []uuid.UUID, resetAt *time.Time, version int) error {
	args := m.Called(ctx, telegramID, questType, questIDs, resetAt, version)
	return args.Error(0)
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, quest *model.Quest) error {
	args := m.Called(ctx, quest)
	return args.Error(0)
}

func (m *MockQuestRepository) DeleteQuest(ctx context.Context, questID uuid.UUID) error {
	args := m.Called(ctx, questID)
	return args.Error(0)
}

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) GetPackageByID(ctx context.Context, packageID string) (*model.StorePackage, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StorePackage), args.Error(1)
}

func (m *MockStoreRepository) ListAvailablePackages(ctx context.Context) ([]*model.StorePackage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.StorePackage), args.Error(1)
}

func (m *MockStoreRepository) ApplyPurchase(ctx context.Context, txn *model.Transaction, favor, essence int, cosmetics []uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, txn, favor, essence, cosmetics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, order *paypal.OrderRequest) (*paypal.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.Order), args.Error(1)
}

func (m *MockPaymentGateway) CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paypal.CaptureResult), args.Error(1)
}
