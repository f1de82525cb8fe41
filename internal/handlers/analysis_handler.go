package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
	"github.com/SAP-F-2025/learning-gap-service/internal/services"
	"github.com/SAP-F-2025/learning-gap-service/internal/utils"
)

type AnalysisHandler struct {
	BaseHandler
	analysisService services.AnalysisService
	importExport    services.ImportExportService
	validator       *utils.Validator
}

func NewAnalysisHandler(
	analysisService services.AnalysisService,
	importExport services.ImportExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		BaseHandler:     NewBaseHandler(logger),
		analysisService: analysisService,
		importExport:    importExport,
		validator:       validator,
	}
}

type AnalyzeRequest struct {
	Attempts []models.Attempt `json:"attempts" validate:"required,min=1,dive"`
}

// AnalyzeStudent runs gap detection and recommendation for one student's
// attempt batch supplied in the request body.
func (h *AnalysisHandler) AnalyzeStudent(c *gin.Context) {
	h.LogRequest(c, "Analyzing student attempts")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}

	report, err := h.analysisService.AnalyzeStudent(c.Request.Context(), req.Attempts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Analysis completed",
		Data:    report,
	})
}

// AnalyzeBatch analyzes attempts for many students at once, one independent
// analysis per student.
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	h.LogRequest(c, "Analyzing attempt batch")

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	reports, err := h.analysisService.AnalyzeBatch(c.Request.Context(), req.Attempts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: fmt.Sprintf("Analyzed %d students", len(reports)),
		Data:    reports,
	})
}

// UploadAttempts ingests a CSV or Excel file of attempt records and
// analyzes every student found in it.
func (h *AnalysisHandler) UploadAttempts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing upload file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Uploading attempt file", "filename", header.Filename)

	importResult, err := h.importExport.ImportAttemptsFromFile(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	reports, err := h.analysisService.AnalyzeBatch(c.Request.Context(), importResult.Attempts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: fmt.Sprintf("Imported %d attempts, analyzed %d students", importResult.SuccessCount, len(reports)),
		Data: gin.H{
			"import":  importResult,
			"reports": reports,
		},
	})
}

// GetStudentReport returns the most recent cached report for a student.
func (h *AnalysisHandler) GetStudentReport(c *gin.Context) {
	studentID := c.Param("student_id")
	h.LogRequest(c, "Fetching student report", "student_id", studentID)

	report, err := h.analysisService.GetCachedReport(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Report found",
		Data:    report,
	})
}

// ExportStudentReport downloads the cached report as CSV or Excel.
func (h *AnalysisHandler) ExportStudentReport(c *gin.Context) {
	studentID := c.Param("student_id")
	format := c.DefaultQuery("format", "csv")

	h.LogRequest(c, "Exporting student report", "student_id", studentID, "format", format)

	report, err := h.analysisService.GetCachedReport(c.Request.Context(), studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("gap-report-%s-%s", studentID, time.Now().Format("20060102"))

	switch format {
	case "csv":
		data, err := h.importExport.ExportReportCSV(report)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := h.importExport.ExportReportExcel(report)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format, expected csv or xlsx",
			Details: format,
		})
	}
}
