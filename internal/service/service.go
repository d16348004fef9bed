package service

import (
	"context"
	"errors"
	"time"

	"gods_arena/internal/model"
	"gods_arena/pkg/paypal"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrUserQuestNotFound = errors.New("user quest not found")

	ErrQuestNotYours       = errors.New("quest does not belong to the caller")
	ErrQuestNotCompleted   = errors.New("quest not completed")
	ErrQuestAlreadyClaimed = errors.New("quest reward already claimed")

	ErrPackageNotFound       = errors.New("store package not found or unavailable")
	ErrInvalidOrderID        = errors.New("order id is required")
	ErrOrderNotCompleted     = errors.New("payment not completed")
	ErrMalformedPayload      = errors.New("malformed grant payload")
	ErrUserMismatch          = errors.New("payment belongs to a different user")
	ErrOrderAlreadyProcessed = errors.New("order already processed")
)

// maxUpdateAttempts bounds the re-read/retry loop around version-guarded
// user updates.
const maxUpdateAttempts = 3

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type UserRepository interface {
	UpsertUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type LivesServiceI interface {
	Recover(ctx context.Context, telegramID int64) (*model.LivesStatus, error)
}

type LivesRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateUserLives(ctx context.Context, telegramID int64, lives int, lastRecovery time.Time, version int) error
}

type QuestServiceI interface {
	GetBoard(ctx context.Context, telegramID int64) (*model.QuestBoard, error)
	ClaimReward(ctx context.Context, telegramID int64, userQuestID uuid.UUID) (*model.ClaimResult, error)
	CreateQuest(ctx context.Context, quest *model.Quest) (uuid.UUID, error)
	DeleteQuest(ctx context.Context, questID uuid.UUID) error
}

type QuestRepository interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetActiveQuestsByType(ctx context.Context, questType model.QuestType) ([]*model.Quest, error)
	GetQuestsByIDs(ctx context.Context, questIDs []uuid.UUID) ([]*model.Quest, error)
	GetQuestByID(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	GetUserQuest(ctx context.Context, userQuestID uuid.UUID) (*model.UserQuest, error)
	GetUserQuestsByUser(ctx context.Context, telegramID int64) ([]*model.UserQuest, error)
	ClaimQuestReward(ctx context.Context, userQuestID uuid.UUID, telegramID int64, favor, essence int) (int, int, error)
	UpdateQuestRotation(ctx context.Context, telegramID int64, questType model.QuestType, questIDs []uuid.UUID, resetAt *time.Time, version int) error
	CreateQuest(ctx context.Context, quest *model.Quest) error
	DeleteQuest(ctx context.Context, questID uuid.UUID) error
}

type PaymentServiceI interface {
	ListPackages(ctx context.Context) ([]*model.StorePackage, error)
	CreateOrder(ctx context.Context, telegramID int64, packageID, origin string) (*model.CheckoutOrder, error)
	CaptureOrder(ctx context.Context, telegramID int64, orderID string) (*model.PurchaseResult, error)
}

type StoreRepository interface {
	GetPackageByID(ctx context.Context, packageID string) (*model.StorePackage, error)
	ListAvailablePackages(ctx context.Context) ([]*model.StorePackage, error)
	ApplyPurchase(ctx context.Context, txn *model.Transaction, favor, essence int, cosmetics []uuid.UUID) (*model.User, error)
}

// PaymentGateway is the slice of the PayPal client the payment service uses.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, order *paypal.OrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}
