package server

import (
	"crypto/subtle"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Setup builds the HTTP side of the bot: a health check and, in webhook
// mode, the endpoint Telegram posts updates to. Updates are decoded here
// and pushed onto the same channel the polling path uses, so the rest of
// the bot never knows which mode it runs in.
func Setup(log *zap.Logger, token string, updates chan<- tgbotapi.Update) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The bot token doubles as the webhook path secret, the standard
	// Telegram pattern: only Telegram knows the token, so only Telegram
	// can reach the endpoint.
	router.POST("/webhook/:token", func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(token)) != 1 {
			c.Status(http.StatusForbidden)
			return
		}

		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			log.Warn("Rejecting malformed webhook update", zap.Error(err))
			c.Status(http.StatusBadRequest)
			return
		}

		select {
		case updates <- update:
			c.Status(http.StatusOK)
		default:
			// The consumer is not keeping up; tell Telegram to retry later.
			log.Warn("Update queue full, asking Telegram to retry")
			c.Status(http.StatusTooManyRequests)
		}
	})

	return router
}
