// Package admin exposes the administrative HTTP API: listing and purging
// user data, aggregate statistics and diagnostics. Every /admin route is
// guarded by a pre-shared API key; the core trusts that authorization has
// happened by the time a service call is made.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tinyvault/internal/config"
	"tinyvault/internal/logger"
	"tinyvault/internal/service"
)

// Server wraps the admin HTTP server
type Server struct {
	server *http.Server
}

// NewServer creates the admin API server on its configured listen port.
func NewServer(cfg *config.Config, users *service.UserService, items *service.ItemService, db *gorm.DB) *Server {
	router := NewRouter(cfg, users, items, db)
	return &Server{
		server: &http.Server{
			Addr:    "0.0.0.0:" + cfg.Admin.ListenPort,
			Handler: router,
		},
	}
}

// Start starts the admin server
func (s *Server) Start() error {
	logger.Infof("Starting admin API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the admin server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// NewRouter builds the gin engine with all admin and diagnostics routes.
func NewRouter(cfg *config.Config, users *service.UserService, items *service.ItemService, db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{users: users, items: items, db: db}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/db/ping", h.dbPing)

	adminGroup := router.Group("/admin")
	adminGroup.Use(RequireAPIKey(cfg.Admin.APIKey))
	{
		adminGroup.GET("/users", h.listUsers)
		adminGroup.GET("/items", h.listItems)
		adminGroup.DELETE("/items/:shortCode", h.deleteItem)
		adminGroup.GET("/stats", h.stats)
		adminGroup.GET("/status", h.status)
	}

	return router
}
