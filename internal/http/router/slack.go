package router

import (
	"clawcraft.app/relay/internal/http/handler/webhook"
	"github.com/gin-gonic/gin"
)

func SlackRouter(rg *gin.RouterGroup, h *webhook.SlackCommandHandler) {
	rg.POST("/commands", h.HandleCommand)
}
