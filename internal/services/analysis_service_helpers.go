package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// ===== TREND METRICS =====

// learningVelocity measures how fast a student is improving: positive means
// improving, negative declining, near zero stable. It compares rolling
// accuracy windows over the timestamp-ordered attempt sequence.
func learningVelocity(attempts models.AttemptBatch) float64 {
	if len(attempts) < 3 {
		return 0
	}

	ordered := make(models.AttemptBatch, len(attempts))
	copy(ordered, attempts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	windowSize := len(ordered) / 3
	if windowSize < 3 {
		windowSize = 3
	}

	var rolling []float64
	for i := 0; i+windowSize <= len(ordered); i++ {
		correct := 0
		for _, a := range ordered[i : i+windowSize] {
			if a.Correct {
				correct++
			}
		}
		rolling = append(rolling, float64(correct)/float64(windowSize))
	}

	if len(rolling) < 2 {
		return 0
	}
	return (rolling[len(rolling)-1] - rolling[0]) / float64(len(rolling)-1)
}

// engagementLevel classifies attempt frequency over the observed time span.
func engagementLevel(attempts models.AttemptBatch) models.EngagementLevel {
	if len(attempts) == 0 {
		return models.EngagementLow
	}

	earliest := attempts[0].Timestamp
	latest := attempts[0].Timestamp
	for _, a := range attempts[1:] {
		if a.Timestamp.Before(earliest) {
			earliest = a.Timestamp
		}
		if a.Timestamp.After(latest) {
			latest = a.Timestamp
		}
	}

	days := latest.Sub(earliest).Hours() / 24
	attemptsPerDay := float64(len(attempts))
	if days >= 1 {
		attemptsPerDay = float64(len(attempts)) / days
	}

	switch {
	case attemptsPerDay >= 1:
		return models.EngagementHigh
	case attemptsPerDay >= 0.5:
		return models.EngagementMedium
	default:
		return models.EngagementLow
	}
}

// ===== REPORT FLATTENING =====

// FlattenGaps converts gaps into export rows, filling variant-specific
// columns only where they apply.
func FlattenGaps(gaps []models.Gap) []models.GapExportRow {
	rows := make([]models.GapExportRow, 0, len(gaps))
	for _, gap := range gaps {
		row := models.GapExportRow{
			GapType:           gap.Type(),
			Severity:          gap.GapSeverity(),
			Description:       gap.Describe(),
			EvidenceQuestions: joinIDs(gap.Evidence()),
		}

		switch g := gap.(type) {
		case models.ConceptGap:
			row.Topic = g.Topic
			row.TopicAccuracy = percent(g.TopicAccuracy)
			row.OverallAccuracy = percent(g.OverallAccuracy)
			row.AffectedQuestions = g.AttemptCount
		case models.ConfidenceGap:
			row.AffectedQuestions = g.AffectedQuestions
			row.Ratio = percent(g.WrongSlowRatio)
			row.AvgTimeOnEvidence = seconds(g.AvgTimeOnWrong)
		case models.SpeedGap:
			row.AffectedQuestions = g.AffectedQuestions
			row.Ratio = percent(g.WrongFastRatio)
			row.AvgTimeOnEvidence = seconds(g.AvgTimeOnFastWrong)
		}

		rows = append(rows, row)
	}
	return rows
}

// FlattenInterventions converts interventions into export rows.
func FlattenInterventions(interventions []models.Intervention) []models.InterventionExportRow {
	rows := make([]models.InterventionExportRow, 0, len(interventions))
	for _, iv := range interventions {
		rows = append(rows, models.InterventionExportRow{
			Priority:       iv.Priority,
			Title:          iv.Title,
			GapType:        iv.GapType,
			Severity:       iv.Severity,
			Duration:       iv.Duration,
			ExpectedImpact: iv.ExpectedImpact,
			Steps:          joinSteps(iv.Steps),
		})
	}
	return rows
}

func percent(value float64) string {
	return fmt.Sprintf("%.1f%%", value*100)
}

func seconds(value float64) string {
	return fmt.Sprintf("%.1fs", value)
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ";")
}

func joinSteps(steps []models.ActionStep) string {
	parts := make([]string, 0, len(steps))
	for i, step := range steps {
		parts = append(parts, fmt.Sprintf("%d. [%s] %s", i+1, step.Audience, step.Text))
	}
	return strings.Join(parts, " | ")
}
