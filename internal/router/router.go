package router

import (
	"github.com/gin-gonic/gin"

	"planproof/internal/config"
	"planproof/internal/handler"
	"planproof/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	cfg *config.Config,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	runs := v1.Group("/runs")
	runs.POST("", runH.Create)
	runs.GET("", runH.List)
	runs.GET("/:id", runH.GetByID)
	runs.GET("/:id/status", runH.GetByID)
	runs.GET("/:id/results", runH.GetResults)
	runs.GET("/:id/export/csv", runH.ExportCSV)
	runs.GET("/:id/export/xlsx", runH.ExportExcel)

	documents := v1.Group("/documents")
	documents.GET("/:id/download", runH.GetDocumentDownloadURL)

	return r
}
