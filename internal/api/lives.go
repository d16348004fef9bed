package api

import (
	"errors"
	"net/http"

	"gods_arena/internal/service"
	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type livesRoutes struct {
	ls service.LivesServiceI
	a  *auth.TelegramAuth
}

func NewLivesRoutes(handler *gin.RouterGroup, ls service.LivesServiceI, a *auth.TelegramAuth) {
	r := &livesRoutes{ls: ls, a: a}
	h := handler.Group("/lives")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/recover", r.RecoverLives)
	}
}

type LivesResponse struct {
	Lives          int  `json:"lives"`
	MaxLives       int  `json:"maxLives"`
	NextRecoveryIn *int `json:"nextRecoveryIn"`
	Recovered      int  `json:"recovered"`
}

func (r *livesRoutes) RecoverLives(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := caller(c)
	if !ok {
		return
	}

	status, err := r.ls.Recover(c.Request.Context(), tgUser.ID)
	if err != nil {
		log.Error("failed to recover lives", zap.Error(err))
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to recover lives"})
		return
	}

	c.JSON(http.StatusOK, LivesResponse{
		Lives:          status.Lives,
		MaxLives:       status.MaxLives,
		NextRecoveryIn: status.NextRecoveryIn,
		Recovered:      status.Recovered,
	})
}
