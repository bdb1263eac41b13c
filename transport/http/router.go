package http

import (
	"github.com/gin-gonic/gin"

	"github.com/layer-3/anchorkit/service"
)

// SetupRouter sets up the Gin router for the origin backend
func SetupRouter(engine *service.HandshakeEngine, tracker *service.SessionTracker) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(engine, tracker)

	// Handshake routes: start hands the challenge to the subject, complete
	// receives the subject-signed envelope back.
	auth := router.Group("/auth")
	{
		auth.POST("/start", handlers.StartAuth)
		auth.POST("/complete", handlers.CompleteAuth)
	}

	// Transfer routes require the token issued by the handshake.
	transfer := router.Group("/transfer")
	transfer.Use(BearerMiddleware())
	{
		transfer.POST("/:mode", handlers.InitiateTransfer)
		transfer.GET("/status", handlers.TransferStatus)
	}

	return router
}
