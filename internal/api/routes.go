package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the engine with its middleware and routes.
func NewRouter(handler *Handler, allowedOrigins []string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger), CORS(allowedOrigins))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/properties", handler.SearchProperties)
		api.POST("/properties", handler.AddProperty)
		api.GET("/properties/:id", handler.GetProperty)

		api.POST("/reservations", handler.BookReservation)

		api.GET("/users", handler.FindUser)
		api.POST("/users", handler.AddUser)
		api.GET("/users/:id", handler.GetUser)
		api.GET("/users/:id/reservations", handler.GetUserReservations)
	}
}
