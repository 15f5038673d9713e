package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/auth"
	"github.com/pulsechat/pulsechat-server/internal/config"
	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// NewServer builds the HTTP server: realtime WebSocket endpoint plus the
// narrow REST surface (auth, message history).
func NewServer(hub *core.Hub, gate *auth.Gate, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", healthHandler)
	r.GET("/ws", gin.WrapH(NewWSHandler(hub, gate, logger)))

	api := r.Group("/api")
	{
		ah := &authHandlers{service: authService, log: logger}
		api.POST("/auth/register", ah.register)
		api.POST("/auth/login", ah.login)

		hh := &historyHandlers{store: st, log: logger}
		protected := api.Group("", AuthMiddleware(authService, logger))
		protected.GET("/messages", hh.list)
		protected.POST("/groups", hh.createGroup)
		protected.POST("/groups/:id/members", hh.addMember)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
