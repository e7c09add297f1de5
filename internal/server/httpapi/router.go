package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/contractsign/internal/logging"
)

// RouterOptions tunes the client-facing router.
type RouterOptions struct {
	RateLimit  int
	RateWindow time.Duration
}

// NewRouter builds the gin engine: /health plus the rate limited
// /api/access endpoint.
func NewRouter(h *Handler, log logging.Logger, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(log), RequestLogger(log))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.Use(RateLimit(log, opts.RateLimit, opts.RateWindow))
	api.GET("/access", h.Access)
	api.POST("/access", h.Access)

	return r
}
