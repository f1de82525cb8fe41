package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

func timedAttempt(correct bool, at time.Time) models.Attempt {
	a := attempt("STU_1001", "Q", "Algebra", correct, 60)
	a.Timestamp = at
	return a
}

func TestLearningVelocity(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("too few attempts", func(t *testing.T) {
		batch := models.AttemptBatch{
			timedAttempt(true, start),
			timedAttempt(false, start.Add(time.Hour)),
		}
		assert.Equal(t, 0.0, learningVelocity(batch))
	})

	t.Run("improving student", func(t *testing.T) {
		// Wrong early, correct late.
		var batch models.AttemptBatch
		for i := 0; i < 6; i++ {
			batch = append(batch, timedAttempt(false, start.Add(time.Duration(i)*time.Hour)))
		}
		for i := 6; i < 12; i++ {
			batch = append(batch, timedAttempt(true, start.Add(time.Duration(i)*time.Hour)))
		}
		assert.Greater(t, learningVelocity(batch), 0.0)
	})

	t.Run("declining student", func(t *testing.T) {
		var batch models.AttemptBatch
		for i := 0; i < 6; i++ {
			batch = append(batch, timedAttempt(true, start.Add(time.Duration(i)*time.Hour)))
		}
		for i := 6; i < 12; i++ {
			batch = append(batch, timedAttempt(false, start.Add(time.Duration(i)*time.Hour)))
		}
		assert.Less(t, learningVelocity(batch), 0.0)
	})

	t.Run("flat performance", func(t *testing.T) {
		var batch models.AttemptBatch
		for i := 0; i < 12; i++ {
			batch = append(batch, timedAttempt(i%2 == 0, start.Add(time.Duration(i)*time.Hour)))
		}
		assert.InDelta(t, 0.0, learningVelocity(batch), 0.05)
	})

	t.Run("unsorted input is ordered by timestamp", func(t *testing.T) {
		var sorted, shuffled models.AttemptBatch
		for i := 0; i < 12; i++ {
			sorted = append(sorted, timedAttempt(i >= 6, start.Add(time.Duration(i)*time.Hour)))
		}
		for i := 11; i >= 0; i-- {
			shuffled = append(shuffled, sorted[i])
		}
		assert.Equal(t, learningVelocity(sorted), learningVelocity(shuffled))
	})
}

func TestEngagementLevel(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, models.EngagementLow, engagementLevel(nil))
	})

	t.Run("daily practice is high", func(t *testing.T) {
		var batch models.AttemptBatch
		for i := 0; i < 10; i++ {
			batch = append(batch, timedAttempt(true, start.AddDate(0, 0, i)))
		}
		assert.Equal(t, models.EngagementHigh, engagementLevel(batch))
	})

	t.Run("sparse practice is low", func(t *testing.T) {
		batch := models.AttemptBatch{
			timedAttempt(true, start),
			timedAttempt(true, start.AddDate(0, 0, 10)),
			timedAttempt(true, start.AddDate(0, 0, 20)),
		}
		assert.Equal(t, models.EngagementLow, engagementLevel(batch))
	})

	t.Run("every other day is medium", func(t *testing.T) {
		var batch models.AttemptBatch
		for i := 0; i < 6; i++ {
			batch = append(batch, timedAttempt(true, start.AddDate(0, 0, i*2)))
		}
		assert.Equal(t, models.EngagementMedium, engagementLevel(batch))
	})
}

func TestFlattenGaps(t *testing.T) {
	gaps := []models.Gap{
		models.ConceptGap{
			Topic:           "Fractions",
			TopicAccuracy:   0.5,
			OverallAccuracy: 0.667,
			AttemptCount:    6,
			Severity:        models.SeverityMedium,
			Description:     "weak topic",
			QuestionIDs:     []string{"Q1", "Q2"},
		},
		models.SpeedGap{
			AffectedQuestions:  4,
			WrongFastRatio:     0.8,
			AvgTimeOnFastWrong: 12.5,
			Severity:           models.SeverityHigh,
			Description:        "rushing",
			QuestionIDs:        []string{"Q3"},
		},
	}

	rows := FlattenGaps(gaps)
	require.Len(t, rows, 2)

	assert.Equal(t, "Fractions", rows[0].Topic)
	assert.Equal(t, "50.0%", rows[0].TopicAccuracy)
	assert.Equal(t, "Q1;Q2", rows[0].EvidenceQuestions)
	assert.Equal(t, 6, rows[0].AffectedQuestions)

	assert.Empty(t, rows[1].Topic)
	assert.Equal(t, "80.0%", rows[1].Ratio)
	assert.Equal(t, "12.5s", rows[1].AvgTimeOnEvidence)
}

func TestFlattenInterventions(t *testing.T) {
	interventions := []models.Intervention{{
		Priority:       1,
		Title:          "Targeted Topic Review: Fractions",
		GapType:        models.GapConcept,
		Severity:       models.SeverityMedium,
		Duration:       "1-2 weeks, 30-45 min daily",
		ExpectedImpact: "closes misconceptions",
		Steps: []models.ActionStep{
			{Text: "Assign a focused practice set", Audience: models.AudienceTeacher},
			{Text: "Review mistakes", Audience: models.AudienceStudent},
		},
	}}

	rows := FlattenInterventions(interventions)
	require.Len(t, rows, 1)

	assert.Equal(t, 1, rows[0].Priority)
	assert.Equal(t, "1. [teacher] Assign a focused practice set | 2. [student] Review mistakes", rows[0].Steps)
}
