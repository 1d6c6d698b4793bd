package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lost-woods/randtest/src/api"
)

type Config struct {
	Port    string
	APIKey  string
	DataDir string
}

type Server struct {
	port   string
	router *gin.Engine
}

func New(cfg Config, log *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"X-API-KEY", "Accept", "Content-Type"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowAllOrigins:  true,
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(api.CheckHeader("X-API-KEY", cfg.APIKey))

	handlers := api.NewHandlers(cfg.DataDir, log)
	router.GET("/partition", handlers.Partition)
	router.GET("/ideal/:law", handlers.Ideal)
	router.POST("/distance", handlers.Distance)
	router.POST("/evaluate", handlers.Evaluate)
	router.GET("/health", handlers.Health)

	return &Server{port: cfg.Port, router: router}
}

// requestLogger replaces gin's default stdout logger with zap.
func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) RunOrDie() {
	if err := s.router.Run(":" + s.port); err != nil {
		panic(err)
	}
}
