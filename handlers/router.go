package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterOptions configures the HTTP surface
type RouterOptions struct {
	AllowedOrigins []string
	JWTSecret      string // auth is disabled when empty
	OutputDir      string
}

// NewRouter wires middleware and routes
func NewRouter(opts RouterOptions, video *VideoHandler, generation *GenerationHandler, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	router.Static("/videos", filepath.Join(opts.OutputDir, "videos"))
	router.Static("/generated", filepath.Join(opts.OutputDir, "generated"))

	api := router.Group("/api")
	if opts.JWTSecret != "" {
		api.Use(AuthJWT(opts.JWTSecret))
	}
	{
		api.POST("/compose", video.Compose)
		api.GET("/compose/status/:job_id", video.GetStatus)
		api.POST("/compose/status", video.PostStatus)
		api.DELETE("/compose/:job_id", video.Cancel)
		api.GET("/download/:job_id", video.Download)
		api.GET("/download-subtitle/:job_id", video.DownloadSubtitle)
		api.POST("/segments/generate", generation.Generate)
	}

	return router
}
