package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/SAP-F-2025/learning-gap-service/internal/errors"
	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// ImportExportService materializes attempt batches from tabular sources and
// flattens analysis reports back out to delimited text or Excel.
type ImportExportService interface {
	// Import operations
	ImportAttemptsFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error)
	ImportAttemptsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error)
	ImportAttemptsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error)

	// Export operations
	ExportReportCSV(report *models.AnalysisReport) ([]byte, error)
	ExportReportExcel(report *models.AnalysisReport) ([]byte, error)
}

type importExportService struct {
	logger *slog.Logger
}

func NewImportExportService(logger *slog.Logger) ImportExportService {
	return &importExportService{logger: logger}
}

// ===== IMPORT OPERATIONS =====

type ImportResult struct {
	TotalRows    int                   `json:"total_rows"`
	SuccessCount int                   `json:"success_count"`
	ErrorCount   int                   `json:"error_count"`
	Errors       []apperrors.InputError `json:"errors,omitempty"`
	Attempts     []models.Attempt      `json:"attempts"`
}

// columnAliases maps the header spellings seen in real gradebook exports
// onto canonical column names.
var columnAliases = map[string]string{
	"student_id":        "student_id",
	"student id":        "student_id",
	"student_roll_no":   "student_id",
	"student roll no":   "student_id",
	"question_id":       "question_id",
	"question id":       "question_id",
	"question_no":       "question_id",
	"question no":       "question_id",
	"topic":             "topic",
	"subject":           "topic",
	"correct":           "correct",
	"correct_incorrect": "correct",
	"is_correct":        "correct",
	"score":             "correct",
	"time_taken":        "time_taken",
	"time_per_question": "time_taken",
	"time":              "time_taken",
	"duration":          "time_taken",
	"timestamp":         "timestamp",
	"date":              "timestamp",
	"attempt_number":    "attempt_number",
	"profile":           "profile",
}

func (s *importExportService) ImportAttemptsFromFile(ctx context.Context, file multipart.File, filename string) (*ImportResult, error) {
	s.logger.Info("Starting attempt import", "filename", filename)

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return s.ImportAttemptsFromCSV(ctx, file)
	case ".xlsx", ".xls":
		return s.ImportAttemptsFromExcel(ctx, file)
	default:
		return nil, NewInputError("file", "unsupported file format, expected .csv, .xlsx or .xls", ext)
	}
}

func (s *importExportService) ImportAttemptsFromCSV(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return s.parseRecords(records)
}

func (s *importExportService) ImportAttemptsFromExcel(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewInputError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel sheet %s: %w", sheets[0], err)
	}
	return s.parseRecords(rows)
}

func (s *importExportService) parseRecords(records [][]string) (*ImportResult, error) {
	if len(records) < 2 {
		return nil, ErrMissingHeaderRow
	}

	headerMap := make(map[string]int)
	for i, header := range records[0] {
		if canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(header))]; ok {
			headerMap[canonical] = i
		}
	}

	requiredColumns := []string{"student_id", "question_id", "topic", "correct", "time_taken"}
	for _, col := range requiredColumns {
		if _, exists := headerMap[col]; !exists {
			return nil, NewInputError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	result := &ImportResult{TotalRows: len(records) - 1}

	for rowIndex, record := range records[1:] {
		attempt, rowErrors := parseAttemptRow(record, headerMap, rowIndex+2)
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorCount++
			continue
		}
		result.Attempts = append(result.Attempts, attempt)
		result.SuccessCount++
	}

	s.logger.Info("Attempt import finished",
		"total_rows", result.TotalRows,
		"success", result.SuccessCount,
		"errors", result.ErrorCount)

	return result, nil
}

func parseAttemptRow(record []string, headerMap map[string]int, rowNumber int) (models.Attempt, []apperrors.InputError) {
	var errs []apperrors.InputError

	cell := func(column string) string {
		idx, ok := headerMap[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	attempt := models.Attempt{
		StudentID:  cell("student_id"),
		QuestionID: cell("question_id"),
		Topic:      cell("topic"),
		Profile:    cell("profile"),
	}

	for _, required := range []struct{ column, value string }{
		{"student_id", attempt.StudentID},
		{"question_id", attempt.QuestionID},
		{"topic", attempt.Topic},
	} {
		if required.value == "" {
			errs = append(errs, *apperrors.NewInputError(required.column,
				fmt.Sprintf("is required (row %d)", rowNumber), required.value))
		}
	}

	correct, err := parseCorrect(cell("correct"))
	if err != nil {
		errs = append(errs, *apperrors.NewInputError("correct",
			fmt.Sprintf("%s (row %d)", err.Error(), rowNumber), cell("correct")))
	}
	attempt.Correct = correct

	timeTaken, err := strconv.ParseFloat(cell("time_taken"), 64)
	if err != nil {
		errs = append(errs, *apperrors.NewInputError("time_taken",
			fmt.Sprintf("must be a number (row %d)", rowNumber), cell("time_taken")))
	} else if timeTaken < 0 {
		errs = append(errs, *apperrors.NewInputError("time_taken",
			fmt.Sprintf("must be non-negative (row %d)", rowNumber), timeTaken))
	}
	attempt.TimeTaken = timeTaken

	if raw := cell("attempt_number"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			attempt.AttemptNumber = n
		}
	}
	if raw := cell("timestamp"); raw != "" {
		attempt.Timestamp = parseTimestamp(raw)
	}

	return attempt, errs
}

// parseCorrect accepts the correctness spellings found in gradebook exports:
// 0/1 flags, booleans, and fractional scores (above 0.5 counts as correct).
func parseCorrect(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, fmt.Errorf("must be a boolean or numeric score")
	}
	return value > 0.5, nil
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// ===== EXPORT OPERATIONS =====

var (
	gapExportHeader = []string{
		"Gap Type", "Severity", "Topic", "Topic Accuracy", "Overall Accuracy",
		"Affected Questions", "Ratio", "Avg Time", "Description", "Evidence Questions",
	}
	interventionExportHeader = []string{
		"Priority", "Title", "Gap Type", "Severity", "Duration", "Expected Impact", "Steps",
	}
)

func (s *importExportService) ExportReportCSV(report *models.AnalysisReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	for _, row := range summaryRows(report) {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	writer.Write([]string{})
	writer.Write(gapExportHeader)
	for _, row := range FlattenGaps(report.Result.Gaps) {
		writer.Write([]string{
			string(row.GapType), string(row.Severity), row.Topic, row.TopicAccuracy,
			row.OverallAccuracy, strconv.Itoa(row.AffectedQuestions), row.Ratio,
			row.AvgTimeOnEvidence, row.Description, row.EvidenceQuestions,
		})
	}

	writer.Write([]string{})
	writer.Write(interventionExportHeader)
	for _, row := range FlattenInterventions(report.Interventions) {
		writer.Write([]string{
			strconv.Itoa(row.Priority), row.Title, string(row.GapType), string(row.Severity),
			row.Duration, row.ExpectedImpact, row.Steps,
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *importExportService) ExportReportExcel(report *models.AnalysisReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	f.SetSheetName("Sheet1", summarySheet)
	for i, row := range summaryRows(report) {
		for j, value := range row {
			cellRef, _ := excelize.CoordinatesToCellName(j+1, i+1)
			f.SetCellValue(summarySheet, cellRef, value)
		}
	}

	gapSheet := "Gaps"
	if _, err := f.NewSheet(gapSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", gapSheet, err)
	}
	writeSheetRow(f, gapSheet, 1, gapExportHeader)
	for i, row := range FlattenGaps(report.Result.Gaps) {
		writeSheetRow(f, gapSheet, i+2, []string{
			string(row.GapType), string(row.Severity), row.Topic, row.TopicAccuracy,
			row.OverallAccuracy, strconv.Itoa(row.AffectedQuestions), row.Ratio,
			row.AvgTimeOnEvidence, row.Description, row.EvidenceQuestions,
		})
	}

	interventionSheet := "Interventions"
	if _, err := f.NewSheet(interventionSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", interventionSheet, err)
	}
	writeSheetRow(f, interventionSheet, 1, interventionExportHeader)
	for i, row := range FlattenInterventions(report.Interventions) {
		writeSheetRow(f, interventionSheet, i+2, []string{
			strconv.Itoa(row.Priority), row.Title, string(row.GapType), string(row.Severity),
			row.Duration, row.ExpectedImpact, row.Steps,
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryRows(report *models.AnalysisReport) [][]string {
	result := report.Result
	return [][]string{
		{"Metric", "Value"},
		{"Student ID", result.StudentID},
		{"Total Attempts", strconv.Itoa(result.TotalAttempts)},
		{"Correct Answers", strconv.Itoa(result.CorrectAnswers)},
		{"Accuracy", percent(result.Accuracy)},
		{"Average Time", seconds(result.AvgTime)},
		{"Overall Score", percent(result.OverallScore)},
		{"Had Sufficient Data", strconv.FormatBool(result.HadSufficientData)},
		{"Number of Gaps", strconv.Itoa(len(result.Gaps))},
		{"Learning Velocity", fmt.Sprintf("%.3f", report.LearningVelocity)},
		{"Engagement", string(report.Engagement)},
		{"Generated At", report.GeneratedAt.Format(time.RFC3339)},
	}
}

func writeSheetRow(f *excelize.File, sheet string, rowNumber int, values []string) {
	for j, value := range values {
		cellRef, _ := excelize.CoordinatesToCellName(j+1, rowNumber)
		f.SetCellValue(sheet, cellRef, value)
	}
}
