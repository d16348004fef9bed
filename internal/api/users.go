package api

import (
	"errors"
	"net/http"
	"time"

	"gods_arena/internal/model"
	"gods_arena/internal/service"
	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	us service.UserServiceI
	a  *auth.TelegramAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{us: us, a: a}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/auth", r.Auth)
		h.GET("/me", r.Me)
	}
}

type UserResponse struct {
	TelegramID       int64      `json:"telegram_id"`
	Username         string     `json:"username"`
	Lives            int        `json:"lives"`
	LivesMax         int        `json:"lives_max"`
	FavorTokens      int        `json:"favor_tokens"`
	EssenceCrystals  int        `json:"essence_crystals"`
	OwnedCosmetics   []string   `json:"owned_cosmetics"`
	LastLifeRecovery *time.Time `json:"last_life_recovery,omitempty"`
}

// Auth upserts the caller's user row on login so the economy handlers
// always find a record for an authenticated caller.
func (r *userRoutes) Auth(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	err := r.us.RegisterUser(c.Request.Context(), &model.User{
		TelegramID:       tgUser.ID,
		Username:         tgUser.Username,
		RegistrationDate: now,
		AuthDate:         now,
	})
	if err != nil {
		log.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	r.Me(c)
}

func (r *userRoutes) Me(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), tgUser.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	cosmetics := make([]string, len(user.OwnedCosmetics))
	for i, id := range user.OwnedCosmetics {
		cosmetics[i] = id.String()
	}

	c.JSON(http.StatusOK, UserResponse{
		TelegramID:       user.TelegramID,
		Username:         user.Username,
		Lives:            user.Lives,
		LivesMax:         user.LivesMax,
		FavorTokens:      user.FavorTokens,
		EssenceCrystals:  user.EssenceCrystals,
		OwnedCosmetics:   cosmetics,
		LastLifeRecovery: user.LastLifeRecovery,
	})
}
