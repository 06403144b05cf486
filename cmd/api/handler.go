package api

import (
	accountDelivery "mailbrief-backend/internal/account/delivery"
	authDelivery "mailbrief-backend/internal/auth/delivery"
	authUsecase "mailbrief-backend/internal/auth/usecase"
	digestDelivery "mailbrief-backend/internal/digest/delivery"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase    authUsecase.AuthUsecase
	authHandler    *authDelivery.AuthHandler
	accountHandler *accountDelivery.AccountHandler
	digestHandler  *digestDelivery.DigestHandler
}

func NewHandler(authUc authUsecase.AuthUsecase, authHandler *authDelivery.AuthHandler, accountHandler *accountDelivery.AccountHandler, digestHandler *digestDelivery.DigestHandler) *Handler {
	return &Handler{
		authUsecase:    authUc,
		authHandler:    authHandler,
		accountHandler: accountHandler,
		digestHandler:  digestHandler,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
