package api

import (
	"net/http"

	"gods_arena/pkg/auth"
	"gods_arena/pkg/logger"

	"github.com/gin-gonic/gin"
)

// caller pulls the authenticated Telegram identity the auth middleware put
// in the context. A missing or mistyped value means the middleware chain is
// broken, which is a server error, not a client one.
func caller(c *gin.Context) (*auth.TelegramUserData, bool) {
	log := logger.Logger()

	userData, exists := c.Get("telegram_user")
	if !exists {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}

	telegramUser, ok := userData.(*auth.TelegramUserData)
	if !ok {
		log.Error("invalid type assertion for telegram user data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}

	return telegramUser, true
}
