package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gods_arena/internal/model"
	"gods_arena/internal/repository"
	"gods_arena/pkg/logger"
	"gods_arena/pkg/paypal"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

const checkoutCurrency = "USD"

type PaymentService struct {
	repo    StoreRepository
	gateway PaymentGateway
	bot     *tgbotapi.BotAPI
	hub     *ReceiptHub
}

// NewPaymentService wires the store repository, the PayPal gateway, the
// receipt hub and an optional bot handle for Telegram-side receipts (nil
// disables the chat message).
func NewPaymentService(repo StoreRepository, gateway PaymentGateway, hub *ReceiptHub, bot *tgbotapi.BotAPI) *PaymentService {
	return &PaymentService{
		repo:    repo,
		gateway: gateway,
		hub:     hub,
		bot:     bot,
	}
}

func (s *PaymentService) ListPackages(ctx context.Context) ([]*model.StorePackage, error) {
	return s.repo.ListAvailablePackages(ctx)
}

// CreateOrder creates a PayPal order for the package price with the grant
// payload embedded in the order's custom_id field. Nothing is persisted
// locally; the order only becomes a credit when it is captured.
func (s *PaymentService) CreateOrder(ctx context.Context, telegramID int64, packageID, origin string) (*model.CheckoutOrder, error) {
	pkg, err := s.repo.GetPackageByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	if !pkg.IsAvailable {
		return nil, ErrPackageNotFound
	}

	payload, err := json.Marshal(model.GrantPayload{
		UserID:         telegramID,
		PackageID:      pkg.PackageID,
		Favor:          pkg.FavorTokens,
		Essence:        pkg.EssenceCrystals,
		BonusCosmetics: pkg.BonusCosmetics,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling grant payload: %w", err)
	}

	order, err := s.gateway.CreateOrder(ctx, &paypal.OrderRequest{
		Value:        pkg.Price,
		CurrencyCode: checkoutCurrency,
		Description:  packageDescription(pkg),
		CustomID:     string(payload),
		ReturnURL:    origin + "/store/success",
		CancelURL:    origin + "/store/cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("order creation failed: %w", err)
	}

	return &model.CheckoutOrder{OrderID: order.ID, ApproveURL: order.ApproveURL}, nil
}

func packageDescription(pkg *model.StorePackage) string {
	desc := fmt.Sprintf("%d Favor Tokens + %d Essence Crystals", pkg.FavorTokens, pkg.EssenceCrystals)
	if n := len(pkg.BonusCosmetics); n > 0 {
		noun := "cosmetics"
		if n == 1 {
			noun = "cosmetic"
		}
		desc += fmt.Sprintf(" + %d bonus %s", n, noun)
	}
	return desc
}

// CaptureOrder finalizes a previously approved order and credits the
// package exactly once. The credit happens only after the provider reports
// COMPLETED, the payload owner matches the caller, and the ledger accepts
// the order id; a replayed capture is rejected without touching balances.
func (s *PaymentService) CaptureOrder(ctx context.Context, telegramID int64, orderID string) (*model.PurchaseResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order capture failed: %w", err)
	}

	if capture.Status != paypal.OrderCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrOrderNotCompleted, capture.Status)
	}

	var payload model.GrantPayload
	if err := json.Unmarshal([]byte(capture.CustomID), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if payload.UserID != telegramID {
		return nil, ErrUserMismatch
	}

	// The payload is an externally held claim; the grant amounts come from
	// the live package row, not from the payload.
	pkg, err := s.repo.GetPackageByID(ctx, payload.PackageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	user, err := s.repo.ApplyPurchase(ctx, &model.Transaction{
		OrderID:        capture.OrderID,
		UserTelegramID: telegramID,
		PackageID:      pkg.PackageID,
		CaptureID:      capture.CaptureID,
		Status:         capture.Status,
	}, pkg.FavorTokens, pkg.EssenceCrystals, pkg.BonusCosmetics)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateOrder):
			return nil, ErrOrderAlreadyProcessed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to apply purchase: %w", err)
		}
	}

	result := &model.PurchaseResult{
		FavorGranted:     pkg.FavorTokens,
		EssenceGranted:   pkg.EssenceCrystals,
		CosmeticsGranted: pkg.BonusCosmetics,
		BalanceFavor:     user.FavorTokens,
		BalanceEssence:   user.EssenceCrystals,
		TransactionID:    capture.CaptureID,
	}

	s.notifyBuyer(telegramID, pkg, result)

	return result, nil
}

// notifyBuyer pushes the receipt over the buyer's websocket, if one is
// open, and sends a best-effort Telegram message. Neither failure affects
// the purchase.
func (s *PaymentService) notifyBuyer(telegramID int64, pkg *model.StorePackage, result *model.PurchaseResult) {
	log := logger.Logger()

	if s.hub != nil {
		s.hub.Publish(telegramID, Receipt{
			Type:          "PURCHASE_COMPLETE",
			PackageID:     pkg.PackageID,
			Favor:         result.FavorGranted,
			Essence:       result.EssenceGranted,
			TransactionID: result.TransactionID,
		})
	}

	if s.bot != nil {
		text := fmt.Sprintf("Purchase complete: %s (%s). Enjoy!", pkg.Title, packageDescription(pkg))
		if _, err := s.bot.Send(tgbotapi.NewMessage(telegramID, text)); err != nil {
			log.Warn("failed to send purchase receipt message",
				zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}
}

type Receipt struct {
	Type          string `json:"type"`
	PackageID     string `json:"packageId"`
	Favor         int    `json:"favor"`
	Essence       int    `json:"essence"`
	TransactionID string `json:"transactionId"`
}

// ReceiptHub fans purchase receipts out to the buyer's open websocket. The
// mini-app keeps a socket open while PayPal approval happens in an external
// browser tab, so it learns about the capture without polling.
type ReceiptHub struct {
	mu   sync.Mutex
	subs map[int64]chan Receipt
}

func NewReceiptHub() *ReceiptHub {
	return &ReceiptHub{subs: make(map[int64]chan Receipt)}
}

// Subscribe registers the user's receipt channel, replacing any previous
// subscription for the same user.
func (h *ReceiptHub) Subscribe(telegramID int64) chan Receipt {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subs[telegramID]; ok {
		close(old)
	}
	ch := make(chan Receipt, 4)
	h.subs[telegramID] = ch
	return ch
}

func (h *ReceiptHub) Unsubscribe(telegramID int64, ch chan Receipt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.subs[telegramID]; ok && current == ch {
		delete(h.subs, telegramID)
		close(current)
	}
}

// Publish drops the receipt if the user has no socket open or the channel
// is full; the capture response itself already carries the result.
func (h *ReceiptHub) Publish(telegramID int64, receipt Receipt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[telegramID]
	if !ok {
		return
	}
	select {
	case ch <- receipt:
	default:
	}
}
