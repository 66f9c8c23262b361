package handlers

import (
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// Periodic snapshot push over WebSocket — same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/pins", h.getPins)
		api.POST("/mode", h.setMode)
		api.POST("/write", h.writePin)
		api.POST("/pwm", h.controlPWM)
		api.POST("/monitor", h.toggleMonitor)
		api.POST("/reset", h.resetAll)
		api.GET("/events", h.eventStream)
	}
}
