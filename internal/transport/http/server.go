package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat-server/internal/auth"
	"github.com/vovakirdan/pairchat-server/internal/config"
	"github.com/vovakirdan/pairchat-server/internal/core"
)

// NewServer builds the HTTP server: REST API plus the two WebSocket feeds.
func NewServer(registry *core.Registry, manager *core.Manager, presence *core.Publisher, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, presence, logger)
	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/register", api.Register)
		apiGroup.POST("/login", api.Login)
		apiGroup.GET("/online", api.ListOnline)

		authed := apiGroup.Group("", AuthMiddleware(authService, logger))
		authed.POST("/logout", api.Logout)
	}

	ws := NewWSHandlers(registry, manager, presence, authService, cfg, logger)
	router.GET("/ws/presence", ws.Presence)
	router.GET("/ws/chat/:partner", ws.Chat)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
