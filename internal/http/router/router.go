package router

import (
	"net/http"

	"clawcraft.app/relay/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	SlackCommands *webhook.SlackCommandHandler
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	SlackRouter(router.Group("/slack"), cfg.SlackCommands)
}
