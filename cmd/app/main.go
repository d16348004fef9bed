package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"gods_arena/internal/api"
	"gods_arena/internal/middleware"
	"gods_arena/internal/repository"
	"gods_arena/internal/service"
	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"
	"gods_arena/pkg/paypal"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	var bot *tgbotapi.BotAPI
	if cfg.TelegramAuth.TelegramBotToken != "" {
		bot, err = tgbotapi.NewBotAPI(cfg.TelegramAuth.TelegramBotToken)
		if err != nil {
			zapLogger.Warn("Failed to initialize bot, chat receipts disabled", zap.Error(err))
			bot = nil
		}
	}

	gateway := paypal.NewClient(cfg.PayPal)
	hub := service.NewReceiptHub()

	userService := service.NewUserService(repo)
	livesService := service.NewLivesService(repo)
	questService := service.NewQuestService(repo)
	paymentService := service.NewPaymentService(repo, gateway, hub, bot)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	adminOnly := middleware.NewAuthorization(userService)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, telegramAuth)
	api.NewLivesRoutes(a, livesService, telegramAuth)
	api.NewQuestRoutes(a, questService, telegramAuth, adminOnly)
	api.NewStoreRoutes(a, paymentService, hub, telegramAuth)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
