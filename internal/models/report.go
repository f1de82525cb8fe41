package models

import "time"

// EngagementLevel classifies attempt frequency over the observed window.
type EngagementLevel string

const (
	EngagementHigh   EngagementLevel = "high"
	EngagementMedium EngagementLevel = "medium"
	EngagementLow    EngagementLevel = "low"
)

// AnalysisResult is the detector's output for one student: the detected
// gaps plus the baseline performance metrics behind them.
//
// HadSufficientData distinguishes "no gaps because the student is on track"
// from "no gaps because the batch was too small to analyze".
type AnalysisResult struct {
	StudentID         string  `json:"student_id"`
	TotalAttempts     int     `json:"total_attempts"`
	CorrectAnswers    int     `json:"correct_answers"`
	Accuracy          float64 `json:"accuracy"`
	AvgTime           float64 `json:"avg_time"`
	MedianTime        float64 `json:"median_time"`
	Gaps              GapList `json:"gaps"`
	OverallScore      float64 `json:"overall_score"`
	HadSufficientData bool    `json:"had_sufficient_data"`
}

// AnalysisReport is the full teacher-facing deliverable: detection result,
// ranked interventions, and the trend metrics layered on top.
type AnalysisReport struct {
	Result        AnalysisResult `json:"result"`
	Interventions []Intervention `json:"interventions"`
	// Diagnostics records non-fatal conditions absorbed during
	// recommendation, such as gap variants the engine did not recognize.
	Diagnostics      []string        `json:"diagnostics,omitempty"`
	LearningVelocity float64         `json:"learning_velocity"`
	Engagement       EngagementLevel `json:"engagement"`
	GradeLevel       int             `json:"grade_level,omitempty"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// GapExportRow flattens one gap for delimited-text export, with
// variant-specific fields left empty where they do not apply.
type GapExportRow struct {
	GapType            GapType  `json:"gap_type"`
	Severity           Severity `json:"severity"`
	Topic              string   `json:"topic,omitempty"`
	TopicAccuracy      string   `json:"topic_accuracy,omitempty"`
	OverallAccuracy    string   `json:"overall_accuracy,omitempty"`
	AffectedQuestions  int      `json:"affected_questions"`
	Ratio              string   `json:"ratio,omitempty"`
	AvgTimeOnEvidence  string   `json:"avg_time_on_evidence,omitempty"`
	Description        string   `json:"description"`
	EvidenceQuestions  string   `json:"evidence_questions"`
}

// InterventionExportRow flattens one intervention for delimited-text export.
type InterventionExportRow struct {
	Priority       int      `json:"priority"`
	Title          string   `json:"title"`
	GapType        GapType  `json:"gap_type"`
	Severity       Severity `json:"severity"`
	Duration       string   `json:"duration"`
	ExpectedImpact string   `json:"expected_impact"`
	Steps          string   `json:"steps"`
}
