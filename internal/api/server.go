package api

import (
	"net/http"
	"time"

	"signalforge/internal/logx"
	"signalforge/internal/signal"
	"signalforge/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wires the signal pipeline, the backtest engine and the
// persistence layer onto an HTTP surface, grounded on the teacher's
// api.Server (internal/api/server.go): gin.New rather than gin.Default
// so access logging goes through logx instead of gin's own writer,
// Recovery so a handler panic 500s instead of killing the process,
// CORS for a browser-hosted dashboard, and a per-endpoint rate limiter
// protecting the backtest route specifically.
type Server struct {
	Pipeline *signal.Pipeline
	Store    store.Store
	Auth     *JWTManager

	router *gin.Engine
}

// NewServer builds the gin engine and registers every route. CORS
// origins default to "*" the way the teacher's dev config does; a
// production deployment should narrow allowOrigins.
func NewServer(pipeline *signal.Pipeline, st store.Store, auth *JWTManager, allowOrigins []string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginLoggerMiddleware())
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(allowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	s := &Server{Pipeline: pipeline, Store: st, Auth: auth, router: router}
	s.setupRoutes()
	return s
}

// ginLoggerMiddleware replaces gin's default access logger with logx,
// matching how every other package in this tree logs.
func ginLoggerMiddleware() gin.HandlerFunc {
	log := logx.Default().WithComponent("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Infof("request handled")
	}
}

func (s *Server) setupRoutes() {
	signalLimiter := newEndpointLimiter(60, time.Minute)
	backtestLimiter := newEndpointLimiter(5, time.Minute)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorized := s.router.Group("/")
	authorized.Use(authMiddleware(s.Auth))
	{
		authorized.POST("/signals/:symbol", rateLimitMiddleware(signalLimiter), s.handleGenerateSignal)

		backtests := authorized.Group("/backtests")
		backtests.Use(requireBacktestScope())
		backtests.Use(rateLimitMiddleware(backtestLimiter))
		{
			backtests.POST("", s.handleRunBacktest)
			backtests.GET(":id/tearsheet", s.handleGetTearsheet)
		}
	}
}

// Handler exposes the underlying gin engine to an http.Server (or
// httptest.Server), matching the teacher's server.Router() accessor.
func (s *Server) Handler() http.Handler { return s.router }
