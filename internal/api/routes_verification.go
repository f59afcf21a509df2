package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/storefront/internal/handlers"
)

func registerVerificationRoutes(group *gin.RouterGroup, handler *handlers.VerificationHandler) {
	if group == nil || handler == nil {
		return
	}

	group.POST("/send", handler.Send)
	group.POST("/check", handler.Check)
}
