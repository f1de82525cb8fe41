package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

func newTestEngine() RecommendationEngine {
	return NewRecommendationEngine(testLogger())
}

func gapOf(gapType models.GapType, severity models.Severity) models.Gap {
	switch gapType {
	case models.GapConcept:
		return models.ConceptGap{Topic: "Fractions", Severity: severity, Description: "weak topic"}
	case models.GapConfidence:
		return models.ConfidenceGap{Severity: severity, Description: "hesitation"}
	default:
		return models.SpeedGap{Severity: severity, Description: "rushing"}
	}
}

func TestRecommend_NoGaps(t *testing.T) {
	interventions, diagnostics := newTestEngine().Recommend(nil)
	assert.Empty(t, interventions)
	assert.Empty(t, diagnostics)
}

// Every gap variant at every severity has a complete plan: a non-empty
// action list and an estimated duration.
func TestRecommend_FullCoverage(t *testing.T) {
	engine := newTestEngine()
	variants := []models.GapType{models.GapConcept, models.GapConfidence, models.GapSpeed}
	severities := []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh}

	for _, variant := range variants {
		for _, severity := range severities {
			interventions, diagnostics := engine.Recommend([]models.Gap{gapOf(variant, severity)})

			require.Len(t, interventions, 1, "%s/%s", variant, severity)
			require.Empty(t, diagnostics, "%s/%s", variant, severity)

			plan := interventions[0]
			assert.Equal(t, variant, plan.GapType)
			assert.Equal(t, severity, plan.Severity)
			assert.Equal(t, 1, plan.Priority)
			assert.NotEmpty(t, plan.Title)
			assert.NotEmpty(t, plan.Steps)
			assert.NotEmpty(t, plan.Duration)
			assert.NotEmpty(t, plan.ExpectedImpact)
		}
	}
}

func TestRecommend_PriorityOrdering(t *testing.T) {
	gaps := []models.Gap{
		gapOf(models.GapSpeed, models.SeverityMedium),
		gapOf(models.GapConfidence, models.SeverityHigh),
		gapOf(models.GapConcept, models.SeverityMedium),
		gapOf(models.GapConcept, models.SeverityHigh),
	}

	interventions, diagnostics := newTestEngine().Recommend(gaps)
	require.Empty(t, diagnostics)
	require.Len(t, interventions, 4)

	// Severity descending; concept gaps first within a severity tier.
	assert.Equal(t, models.GapConcept, interventions[0].GapType)
	assert.Equal(t, models.SeverityHigh, interventions[0].Severity)
	assert.Equal(t, models.GapConfidence, interventions[1].GapType)
	assert.Equal(t, models.GapConcept, interventions[2].GapType)
	assert.Equal(t, models.GapSpeed, interventions[3].GapType)

	for i, plan := range interventions {
		assert.Equal(t, i+1, plan.Priority)
	}
}

func TestRecommend_TopicCustomization(t *testing.T) {
	gap := models.ConceptGap{
		Topic:       "Fractions",
		Severity:    models.SeverityHigh,
		Description: "Struggling with Fractions",
	}

	interventions, _ := newTestEngine().Recommend([]models.Gap{gap})
	require.Len(t, interventions, 1)

	plan := interventions[0]
	assert.Contains(t, plan.Title, "Fractions")
	assert.Equal(t, []string{"Fractions"}, plan.TargetTopics)
	assert.Contains(t, plan.Resources, "Practice Questions")
	assert.Contains(t, plan.Resources, "Concept Guide")
	// Grade unknown: interactive resources are included.
	assert.Contains(t, plan.Resources, "Interactive Guide")
	// Topic steps are prepended to the template steps.
	assert.Greater(t, len(plan.Steps), 3)
	assert.Contains(t, plan.Steps[0].Text, "Numerator")
}

func TestRecommendForGrade_SeniorStudentsSkipInteractive(t *testing.T) {
	gap := models.ConceptGap{Topic: "Algebra", Severity: models.SeverityMedium}
	engine := newTestEngine()

	junior, _ := engine.RecommendForGrade([]models.Gap{gap}, 7)
	require.Len(t, junior, 1)
	assert.Contains(t, junior[0].Resources, "Interactive Guide")

	senior, _ := engine.RecommendForGrade([]models.Gap{gap}, 11)
	require.Len(t, senior, 1)
	assert.NotContains(t, senior[0].Resources, "Interactive Guide")
	assert.Contains(t, senior[0].Resources, "Concept Guide")
}

func TestRecommend_UnknownTopicKeepsTemplate(t *testing.T) {
	gap := models.ConceptGap{Topic: "Astrophysics", Severity: models.SeverityHigh}

	interventions, _ := newTestEngine().Recommend([]models.Gap{gap})
	require.Len(t, interventions, 1)

	plan := interventions[0]
	assert.Contains(t, plan.Title, "Astrophysics")
	assert.Equal(t, []string{"Astrophysics"}, plan.TargetTopics)
	assert.Empty(t, plan.Resources)
	assert.NotEmpty(t, plan.Steps)
}

// unknownGap is a gap variant the engine has no template for.
type unknownGap struct{}

func (unknownGap) Type() models.GapType         { return models.GapType("mastery") }
func (unknownGap) GapSeverity() models.Severity { return models.SeverityHigh }
func (unknownGap) Describe() string             { return "unmapped variant" }
func (unknownGap) Evidence() []string           { return nil }

func TestRecommend_UnknownVariantSkippedWithDiagnostic(t *testing.T) {
	gaps := []models.Gap{
		unknownGap{},
		gapOf(models.GapSpeed, models.SeverityLow),
	}

	interventions, diagnostics := newTestEngine().Recommend(gaps)

	require.Len(t, interventions, 1)
	assert.Equal(t, models.GapSpeed, interventions[0].GapType)

	require.Len(t, diagnostics, 1)
	assert.Contains(t, diagnostics[0], "mastery")
}

func TestMaintenancePlan(t *testing.T) {
	plan := newTestEngine().MaintenancePlan()

	assert.NotEmpty(t, plan.Title)
	assert.NotEmpty(t, plan.Steps)
	assert.Equal(t, 1, plan.Priority)
	assert.Equal(t, "Ongoing", plan.Duration)

	var teacherSteps int
	for _, step := range plan.Steps {
		if step.Audience == models.AudienceTeacher {
			teacherSteps++
		}
	}
	assert.Greater(t, teacherSteps, 0, "plan should include a teacher-facing step")
}
