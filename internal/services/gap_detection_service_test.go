package services

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/learning-gap-service/internal/errors"
	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newTestDetector() GapDetector {
	return NewGapDetector(DefaultDetectorConfig(), testLogger())
}

func attempt(student, question, topic string, correct bool, timeTaken float64) models.Attempt {
	return models.Attempt{
		StudentID:  student,
		QuestionID: question,
		Topic:      topic,
		Correct:    correct,
		TimeTaken:  timeTaken,
	}
}

// topicAttempts builds n attempts on one topic with the given number correct,
// all at the same time-taken so no timing gaps fire.
func topicAttempts(student, topic string, n, correct int, timeTaken float64) []models.Attempt {
	attempts := make([]models.Attempt, 0, n)
	for i := 0; i < n; i++ {
		attempts = append(attempts, attempt(
			student,
			fmt.Sprintf("%s_Q%d", topic, i+1),
			topic,
			i < correct,
			timeTaken,
		))
	}
	return attempts
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	result, err := newTestDetector().Analyze(nil)
	require.NoError(t, err)

	assert.Empty(t, result.Gaps)
	assert.Equal(t, 0.0, result.OverallScore)
	assert.False(t, result.HadSufficientData)
}

func TestAnalyze_BelowMinAttempts(t *testing.T) {
	attempts := models.AttemptBatch{
		attempt("STU_1001", "Q1", "Fractions", true, 60),
		attempt("STU_1001", "Q2", "Fractions", false, 60),
	}

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)

	assert.Empty(t, result.Gaps)
	assert.False(t, result.HadSufficientData)
	// Score still computed from whatever data exists.
	assert.InDelta(t, 0.5, result.OverallScore, 1e-9)
}

func TestAnalyze_MalformedInput(t *testing.T) {
	t.Run("negative time", func(t *testing.T) {
		attempts := models.AttemptBatch{
			attempt("STU_1001", "Q1", "Algebra", true, -5),
		}
		_, err := newTestDetector().Analyze(attempts)
		require.Error(t, err)

		var inputErr *apperrors.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "time_taken", inputErr.Field)
	})

	t.Run("missing topic", func(t *testing.T) {
		attempts := models.AttemptBatch{
			attempt("STU_1001", "Q1", "", true, 30),
		}
		_, err := newTestDetector().Analyze(attempts)
		require.Error(t, err)

		var inputErr *apperrors.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "topic", inputErr.Field)
	})
}

// Strong student, no topic below threshold: zero gaps, score equals accuracy.
func TestAnalyze_StrongStudent(t *testing.T) {
	var attempts models.AttemptBatch
	attempts = append(attempts, topicAttempts("STU_1001", "Arithmetic", 10, 9, 60)...)
	attempts = append(attempts, topicAttempts("STU_1001", "Algebra", 10, 8, 60)...)

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)

	assert.True(t, result.HadSufficientData)
	assert.Empty(t, result.Gaps)
	assert.InDelta(t, 0.85, result.Accuracy, 1e-9)
	assert.InDelta(t, 0.85, result.OverallScore, 1e-9)
}

// Weak Fractions topic trailing the overall baseline by up to 20 points
// yields a single MEDIUM concept gap.
func TestAnalyze_ConceptGapMedium(t *testing.T) {
	var attempts models.AttemptBatch
	attempts = append(attempts, topicAttempts("STU_1001", "Fractions", 6, 3, 60)...)  // 50%
	attempts = append(attempts, topicAttempts("STU_1001", "Arithmetic", 6, 4, 60)...) // 67%
	attempts = append(attempts, topicAttempts("STU_1001", "Geometry", 6, 5, 60)...)   // 83%

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)

	gap, ok := result.Gaps[0].(models.ConceptGap)
	require.True(t, ok, "expected a concept gap, got %T", result.Gaps[0])
	assert.Equal(t, "Fractions", gap.Topic)
	assert.Equal(t, models.SeverityMedium, gap.Severity)
	assert.InDelta(t, 0.5, gap.TopicAccuracy, 1e-9)
	assert.InDelta(t, 12.0/18.0, gap.OverallAccuracy, 1e-9)
	assert.Len(t, gap.QuestionIDs, 6)
	assert.Less(t, result.OverallScore, result.Accuracy)
}

func TestAnalyze_ConceptGapHigh(t *testing.T) {
	var attempts models.AttemptBatch
	attempts = append(attempts, topicAttempts("STU_1001", "Algebra", 5, 1, 60)...)     // 20%
	attempts = append(attempts, topicAttempts("STU_1001", "Arithmetic", 10, 9, 60)...) // 90%

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)

	gap := result.Gaps[0].(models.ConceptGap)
	assert.Equal(t, "Algebra", gap.Topic)
	assert.Equal(t, models.SeverityHigh, gap.Severity)
}

// Topics at or above the accuracy threshold never produce a concept gap.
func TestAnalyze_NoConceptGapAtThreshold(t *testing.T) {
	var attempts models.AttemptBatch
	attempts = append(attempts, topicAttempts("STU_1001", "Geometry", 5, 3, 60)...) // exactly 60%
	attempts = append(attempts, topicAttempts("STU_1001", "Algebra", 5, 5, 60)...)

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	assert.Empty(t, result.Gaps)
}

// Four of five wrong answers slower than the student's median: a HIGH
// confidence gap and nothing else.
func TestAnalyze_ConfidenceGapHigh(t *testing.T) {
	attempts := models.AttemptBatch{
		attempt("STU_1001", "Q1", "T1", true, 30),
		attempt("STU_1001", "Q2", "T2", true, 30),
		attempt("STU_1001", "Q3", "T3", true, 30),
		attempt("STU_1001", "Q4", "T4", false, 100),
		attempt("STU_1001", "Q5", "T5", false, 100),
		attempt("STU_1001", "Q6", "T6", false, 100),
		attempt("STU_1001", "Q7", "T7", false, 100),
		attempt("STU_1001", "Q8", "T8", false, 10),
	}

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)

	gap, ok := result.Gaps[0].(models.ConfidenceGap)
	require.True(t, ok, "expected a confidence gap, got %T", result.Gaps[0])
	assert.Equal(t, models.SeverityHigh, gap.Severity)
	assert.Equal(t, 4, gap.AffectedQuestions)
	assert.InDelta(t, 0.8, gap.WrongSlowRatio, 1e-9)
	assert.ElementsMatch(t, []string{"Q4", "Q5", "Q6", "Q7"}, gap.QuestionIDs)
}

// Mirrored on the fast tail: four of five wrong answers faster than median.
func TestAnalyze_SpeedGapHigh(t *testing.T) {
	attempts := models.AttemptBatch{
		attempt("STU_1001", "Q1", "T1", true, 100),
		attempt("STU_1001", "Q2", "T2", true, 100),
		attempt("STU_1001", "Q3", "T3", true, 100),
		attempt("STU_1001", "Q4", "T4", false, 10),
		attempt("STU_1001", "Q5", "T5", false, 10),
		attempt("STU_1001", "Q6", "T6", false, 10),
		attempt("STU_1001", "Q7", "T7", false, 10),
		attempt("STU_1001", "Q8", "T8", false, 200),
	}

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)

	gap, ok := result.Gaps[0].(models.SpeedGap)
	require.True(t, ok, "expected a speed gap, got %T", result.Gaps[0])
	assert.Equal(t, models.SeverityHigh, gap.Severity)
	assert.Equal(t, 4, gap.AffectedQuestions)
	assert.InDelta(t, 0.8, gap.WrongFastRatio, 1e-9)
	assert.InDelta(t, 10, gap.AvgTimeOnFastWrong, 1e-9)
}

// A fast wrong answer on a weak topic counts as evidence for both the
// concept gap and the speed gap; variants do not deduplicate.
func TestAnalyze_EvidenceSharedAcrossVariants(t *testing.T) {
	var attempts models.AttemptBatch
	// Weak topic answered fast and wrong.
	for i := 0; i < 4; i++ {
		attempts = append(attempts, attempt("STU_1001", fmt.Sprintf("FQ%d", i+1), "Fractions", false, 10))
	}
	// Strong topics answered slowly and correctly.
	for i := 0; i < 8; i++ {
		attempts = append(attempts, attempt("STU_1001", fmt.Sprintf("AQ%d", i+1), "Arithmetic", true, 100))
	}

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.Len(t, result.Gaps, 2)

	var conceptEvidence, speedEvidence []string
	for _, gap := range result.Gaps {
		switch g := gap.(type) {
		case models.ConceptGap:
			conceptEvidence = g.QuestionIDs
		case models.SpeedGap:
			speedEvidence = g.QuestionIDs
		}
	}
	assert.ElementsMatch(t, []string{"FQ1", "FQ2", "FQ3", "FQ4"}, conceptEvidence)
	assert.ElementsMatch(t, []string{"FQ1", "FQ2", "FQ3", "FQ4"}, speedEvidence)
}

func TestAnalyze_GapOrdering(t *testing.T) {
	var attempts models.AttemptBatch
	// HIGH concept gap: Algebra far below the baseline.
	attempts = append(attempts, topicAttempts("STU_1001", "Algebra", 5, 0, 60)...)
	// Lift the baseline with strong topics.
	attempts = append(attempts, topicAttempts("STU_1001", "Arithmetic", 10, 10, 60)...)
	attempts = append(attempts, topicAttempts("STU_1001", "Geometry", 10, 10, 60)...)

	result, err := newTestDetector().Analyze(attempts)
	require.NoError(t, err)
	require.NotEmpty(t, result.Gaps)

	for i := 1; i < len(result.Gaps); i++ {
		assert.GreaterOrEqual(t,
			result.Gaps[i-1].GapSeverity().Rank(),
			result.Gaps[i].GapSeverity().Rank(),
			"gaps must be non-increasing in severity")
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	var attempts models.AttemptBatch
	attempts = append(attempts, topicAttempts("STU_1001", "Fractions", 6, 2, 60)...)
	attempts = append(attempts, topicAttempts("STU_1001", "Algebra", 6, 5, 60)...)

	detector := newTestDetector()
	first, err := detector.Analyze(attempts)
	require.NoError(t, err)
	second, err := detector.Analyze(attempts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// Adding correct attempts to a flagged topic never increases its severity.
func TestAnalyze_MonotonicSeverity(t *testing.T) {
	base := topicAttempts("STU_1001", "Fractions", 6, 1, 60) // 17%
	strong := topicAttempts("STU_1001", "Arithmetic", 10, 9, 60)

	detector := newTestDetector()

	severityOf := func(attempts models.AttemptBatch) int {
		result, err := detector.Analyze(attempts)
		require.NoError(t, err)
		for _, gap := range result.Gaps {
			if g, ok := gap.(models.ConceptGap); ok && g.Topic == "Fractions" {
				return g.Severity.Rank()
			}
		}
		return 0
	}

	var attempts models.AttemptBatch
	attempts = append(attempts, base...)
	attempts = append(attempts, strong...)
	previous := severityOf(attempts)

	for i := 0; i < 6; i++ {
		attempts = append(attempts, attempt("STU_1001", fmt.Sprintf("FX%d", i+1), "Fractions", true, 60))
		current := severityOf(attempts)
		assert.LessOrEqual(t, current, previous,
			"severity must not rise after adding a correct attempt")
		previous = current
	}
}

func TestOverallScore_Bounds(t *testing.T) {
	gaps := []models.Gap{
		models.ConceptGap{Severity: models.SeverityHigh},
		models.ConceptGap{Severity: models.SeverityHigh},
		models.ConfidenceGap{Severity: models.SeverityHigh},
		models.SpeedGap{Severity: models.SeverityMedium},
	}

	assert.Equal(t, 0.0, overallScore(0.1, gaps))
	assert.InDelta(t, 0.5-0.10-0.07, overallScore(0.5, []models.Gap{
		models.ConceptGap{Severity: models.SeverityHigh},
		models.SpeedGap{Severity: models.SeverityMedium},
	}), 1e-9)
	assert.Equal(t, 1.0, overallScore(1.0, nil))
}
