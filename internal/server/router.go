package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"instructorcopilot/internal/handlers"
)

type RouterConfig struct {
	UploadHandler     *handlers.UploadHandler
	GenerationHandler *handlers.GenerationHandler
	FilesHandler      *handlers.FilesHandler
	SSEHandler        *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Upload and generation
	router.POST("/upload-curriculum", cfg.UploadHandler.UploadCurriculum)
	router.POST("/generate-content", cfg.GenerationHandler.Generate)
	router.GET("/status", cfg.GenerationHandler.Status)
	router.GET("/generation/status", cfg.GenerationHandler.GenerationStatus)

	// Artifacts
	router.GET("/generated-files", cfg.FilesHandler.ListAll)
	router.GET("/files/:category", cfg.FilesHandler.ListCategory)
	router.GET("/download/:category/:filename", cfg.FilesHandler.Download)
	router.GET("/courses", cfg.FilesHandler.Courses)
	router.GET("/courses/:slug", cfg.FilesHandler.Course)
	router.GET("/course-material/preview", cfg.FilesHandler.Preview)

	// Progress stream
	router.GET("/sse/stream", cfg.SSEHandler.Stream)

	return router
}
