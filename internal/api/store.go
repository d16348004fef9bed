package api

import (
	"errors"
	"net/http"

	"gods_arena/internal/service"
	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"
	"gods_arena/pkg/paypal"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type storeRoutes struct {
	ps  service.PaymentServiceI
	hub *service.ReceiptHub
	a   *auth.TelegramAuth
}

func NewStoreRoutes(handler *gin.RouterGroup, ps service.PaymentServiceI, hub *service.ReceiptHub, a *auth.TelegramAuth) {
	r := &storeRoutes{ps: ps, hub: hub, a: a}
	h := handler.Group("/store")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/packages", r.ListPackages)
		h.POST("/orders", r.CreateOrder)
		h.POST("/orders/:order_id/capture", r.CaptureOrder)
		h.GET("/ws", r.ReceiptSocket)
	}
}

type PackageResponse struct {
	PackageID       string   `json:"package_id"`
	Title           string   `json:"title"`
	Price           string   `json:"price"`
	FavorTokens     int      `json:"favor_tokens"`
	EssenceCrystals int      `json:"essence_crystals"`
	BonusCosmetics  []string `json:"bonus_cosmetics"`
}

func (r *storeRoutes) ListPackages(c *gin.Context) {
	log := logger.Logger()

	if _, ok := caller(c); !ok {
		return
	}

	packages, err := r.ps.ListPackages(c.Request.Context())
	if err != nil {
		log.Error("failed to list store packages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list packages"})
		return
	}

	out := make([]PackageResponse, len(packages))
	for i, pkg := range packages {
		cosmetics := make([]string, len(pkg.BonusCosmetics))
		for j, id := range pkg.BonusCosmetics {
			cosmetics[j] = id.String()
		}
		out[i] = PackageResponse{
			PackageID:       pkg.PackageID,
			Title:           pkg.Title,
			Price:           pkg.Price,
			FavorTokens:     pkg.FavorTokens,
			EssenceCrystals: pkg.EssenceCrystals,
			BonusCosmetics:  cosmetics,
		}
	}

	c.JSON(http.StatusOK, gin.H{"packages": out})
}

type CreateOrderRequest struct {
	PackageID string `json:"packageId" binding:"required"`
}

type CreateOrderResponse struct {
	OrderID    string `json:"orderId"`
	ApproveURL string `json:"approveUrl"`
}

func (r *storeRoutes) CreateOrder(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("invalid create order request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "packageId is required"})
		return
	}

	origin := c.GetHeader("Origin")
	order, err := r.ps.CreateOrder(c.Request.Context(), tgUser.ID, req.PackageID, origin)
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		if errors.Is(err, service.ErrPackageNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "package not found or unavailable"})
			return
		}
		writeUpstreamError(c, err, "failed to create order")
		return
	}

	c.JSON(http.StatusOK, CreateOrderResponse{
		OrderID:    order.OrderID,
		ApproveURL: order.ApproveURL,
	})
}

type CaptureOrderResponse struct {
	Success       bool         `json:"success"`
	Granted       GrantedBody  `json:"granted"`
	NewBalances   BalancesBody `json:"newBalances"`
	TransactionID string       `json:"transactionId"`
}

type GrantedBody struct {
	Favor     int      `json:"favor"`
	Essence   int      `json:"essence"`
	Cosmetics []string `json:"cosmetics"`
}

func (r *storeRoutes) CaptureOrder(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	result, err := r.ps.CaptureOrder(c.Request.Context(), tgUser.ID, c.Param("order_id"))
	if err != nil {
		log.Error("failed to capture order", zap.Error(err))
		switch {
		case errors.Is(err, service.ErrInvalidOrderID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order id is required"})
		case errors.Is(err, service.ErrOrderNotCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment not completed", "details": err.Error()})
		case errors.Is(err, service.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed grant payload"})
		case errors.Is(err, service.ErrUserMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": "payment belongs to a different user"})
		case errors.Is(err, service.ErrPackageNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "package no longer exists"})
		case errors.Is(err, service.ErrOrderAlreadyProcessed):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order already processed"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			writeUpstreamError(c, err, "failed to capture order")
		}
		return
	}

	cosmetics := make([]string, len(result.CosmeticsGranted))
	for i, id := range result.CosmeticsGranted {
		cosmetics[i] = id.String()
	}

	c.JSON(http.StatusOK, CaptureOrderResponse{
		Success: true,
		Granted: GrantedBody{
			Favor:     result.FavorGranted,
			Essence:   result.EssenceGranted,
			Cosmetics: cosmetics,
		},
		NewBalances: BalancesBody{
			Favor:   result.BalanceFavor,
			Essence: result.BalanceEssence,
		},
		TransactionID: result.TransactionID,
	})
}

// writeUpstreamError attaches the provider's diagnostic text when the
// failure came back from the payment gateway.
func writeUpstreamError(c *gin.Context, err error, msg string) {
	var apiErr *paypal.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": apiErr.Body})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// ReceiptSocket streams purchase receipts to the mini-app while PayPal
// approval happens in an external browser tab.
func (r *storeRoutes) ReceiptSocket(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	receipts := r.hub.Subscribe(tgUser.ID)
	go r.receiptLoop(conn, tgUser.ID, receipts)
}

func (r *storeRoutes) receiptLoop(conn *websocket.Conn, telegramID int64, receipts chan service.Receipt) {
	log := logger.Logger()
	defer func() {
		r.hub.Unsubscribe(telegramID, receipts)
		conn.Close()
	}()

	// Drain client frames so closes are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case receipt, ok := <-receipts:
			if !ok {
				return
			}
			if err := conn.WriteJSON(receipt); err != nil {
				log.Warn("failed to write receipt to websocket",
					zap.Int64("telegram_id", telegramID), zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}
