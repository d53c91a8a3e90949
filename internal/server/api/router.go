package api

import (
	"errors"
	"net/http"

	"ipbeacon/internal/server/api/middleware"
	"ipbeacon/internal/server/config"
	"ipbeacon/internal/server/ipfile"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router handles all routing logic
type Router struct {
	engine *gin.Engine
	ipfile *ipfile.Reader
	logger *zap.Logger
}

// NewRouter creates and configures a new router
func NewRouter(cfg *config.Config, reader *ipfile.Reader, logger *zap.Logger) *Router {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		ipfile: reader,
		logger: logger,
	}

	m := middleware.New(logger)
	r.engine.Use(m.RequestID())
	r.engine.Use(m.Logger())
	r.engine.Use(m.Recovery())

	r.engine.GET("/", r.getIP)
	r.engine.GET("/ip", r.getIP)
	r.engine.GET("/health", r.health)
	r.engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// getIP serves the current address from the IP file. The file is
// written by an external process, so its content is revalidated and
// never echoed back when invalid
func (r *Router) getIP(c *gin.Context) {
	ip, err := r.ipfile.Read()
	if err != nil {
		switch {
		case errors.Is(err, ipfile.ErrNotFound):
			c.String(http.StatusServiceUnavailable, "IP address not available")
		case errors.Is(err, ipfile.ErrInvalid):
			r.logger.Error("Invalid IP address in file",
				zap.String("path", r.ipfile.Path()),
				zap.String("content", ip))
			c.String(http.StatusInternalServerError, "Invalid IP address format")
		default:
			r.logger.Error("Failed to read IP file",
				zap.String("path", r.ipfile.Path()),
				zap.Error(err))
			c.String(http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	// Wildcard CORS so browser-side fetches of the public address work
	c.Header("Access-Control-Allow-Origin", "*")
	c.String(http.StatusOK, ip)
}

// health is a liveness probe; it never touches the filesystem
func (r *Router) health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
