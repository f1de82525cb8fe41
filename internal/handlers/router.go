package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-gap-service/internal/services"
	"github.com/SAP-F-2025/learning-gap-service/internal/utils"
)

type HandlerManager struct {
	analysisHandler *AnalysisHandler
}

func NewHandlerManager(
	analysisService services.AnalysisService,
	importExport services.ImportExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		analysisHandler: NewAnalysisHandler(analysisService, importExport, validator, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		analysis := v1.Group("/analysis")
		{
			analysis.POST("", hm.analysisHandler.AnalyzeStudent)
			analysis.POST("/batch", hm.analysisHandler.AnalyzeBatch)
			analysis.POST("/upload", hm.analysisHandler.UploadAttempts)
		}

		students := v1.Group("/students")
		{
			students.GET("/:student_id/report", hm.analysisHandler.GetStudentReport)
			students.GET("/:student_id/report/export", hm.analysisHandler.ExportStudentReport)
		}
	}
}
