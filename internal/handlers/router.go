package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the index route.
const Version = "1.0.0"

// RouterConfig holds everything NewRouter wires.
type RouterConfig struct {
	HandlerConfig
	CORSOrigin string
}

type route struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

var routes = []route{
	{http.MethodGet, "/", "API index with route listing"},
	{http.MethodGet, "/health", "liveness check"},
	{http.MethodGet, "/shopping", "list items, optionally filtered by ?purchased=true|false"},
	{http.MethodGet, "/shopping/stats", "count total, remaining and purchased items"},
	{http.MethodGet, "/shopping/:id", "get one item"},
	{http.MethodPost, "/shopping", "create an item"},
	{http.MethodPut, "/shopping/:id", "partially update an item"},
	{http.MethodPatch, "/shopping/:id/toggle", "flip the purchased flag"},
	{http.MethodDelete, "/shopping/:id", "delete an item"},
}

// NewRouter builds the gin engine with middleware, index, health and item routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	if cfg.CORSOrigin != "" {
		r.Use(CORS(cfg.CORSOrigin))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Shopping list API",
			"version": Version,
			"routes":  routes,
		})
	})

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterItemsRoutes(r, cfg.HandlerConfig)

	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})

	return r
}
