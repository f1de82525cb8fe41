package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// EventType represents different types of analysis events
type EventType string

const (
	// EventAnalysisCompleted fires after every successful student analysis.
	EventAnalysisCompleted EventType = "analysis.completed"

	// EventGapDetected fires once per HIGH severity gap so downstream
	// notification consumers can alert the teacher.
	EventGapDetected EventType = "analysis.gap_detected"
)

const (
	eventSource  = "learning-gap-service"
	eventVersion = "1.0"
)

// AnalysisEvent is the base event structure for all analysis events
type AnalysisEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AnalysisCompletedEvent is the payload for EventAnalysisCompleted.
type AnalysisCompletedEvent struct {
	StudentID         string    `json:"student_id"`
	TotalAttempts     int       `json:"total_attempts"`
	Accuracy          float64   `json:"accuracy"`
	OverallScore      float64   `json:"overall_score"`
	GapCount          int       `json:"gap_count"`
	HadSufficientData bool      `json:"had_sufficient_data"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

// GapDetectedEvent is the payload for EventGapDetected.
type GapDetectedEvent struct {
	StudentID         string          `json:"student_id"`
	GapType           models.GapType  `json:"gap_type"`
	Severity          models.Severity `json:"severity"`
	Description       string          `json:"description"`
	AffectedQuestions []string        `json:"affected_questions"`
}

// NewAnalysisCompletedEvent builds the event emitted after an analysis run.
func NewAnalysisCompletedEvent(result *models.AnalysisResult) *AnalysisEvent {
	return &AnalysisEvent{
		ID:        uuid.NewString(),
		Type:      EventAnalysisCompleted,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data: AnalysisCompletedEvent{
			StudentID:         result.StudentID,
			TotalAttempts:     result.TotalAttempts,
			Accuracy:          result.Accuracy,
			OverallScore:      result.OverallScore,
			GapCount:          len(result.Gaps),
			HadSufficientData: result.HadSufficientData,
			AnalyzedAt:        time.Now(),
		},
	}
}

// NewGapDetectedEvent builds the alert event for a single detected gap.
func NewGapDetectedEvent(studentID string, gap models.Gap) *AnalysisEvent {
	return &AnalysisEvent{
		ID:        uuid.NewString(),
		Type:      EventGapDetected,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data: GapDetectedEvent{
			StudentID:         studentID,
			GapType:           gap.Type(),
			Severity:          gap.GapSeverity(),
			Description:       gap.Describe(),
			AffectedQuestions: gap.Evidence(),
		},
	}
}
