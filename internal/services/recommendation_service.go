package services

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// RecommendationEngine maps detected gaps to prioritized intervention
// plans. It performs no I/O and holds no state between calls; the template
// and resource tables are built once at construction and read-only after.
type RecommendationEngine interface {
	// Recommend produces one intervention per gap it understands, ranked by
	// source-gap severity. Unrecognized gap variants are skipped and
	// reported in the returned diagnostics rather than failing the batch.
	Recommend(gaps []models.Gap) ([]models.Intervention, []string)

	// RecommendForGrade is Recommend with grade-level resource
	// customization. Grade 0 means unknown.
	RecommendForGrade(gaps []models.Gap, gradeLevel int) ([]models.Intervention, []string)

	// MaintenancePlan is the "on track" recommendation for students with
	// sufficient data and no detected gaps. It is never part of Recommend's
	// output.
	MaintenancePlan() models.Intervention
}

type recommendationEngine struct {
	templates map[models.GapType]map[models.Severity]interventionTemplate
	library   map[string]topicLibraryEntry
	logger    *slog.Logger
}

func NewRecommendationEngine(logger *slog.Logger) RecommendationEngine {
	return &recommendationEngine{
		templates: buildInterventionTemplates(),
		library:   buildTopicLibrary(),
		logger:    logger,
	}
}

// interventionTemplate is one cell of the variant-by-severity plan table.
type interventionTemplate struct {
	Title          string
	PracticeType   string
	Duration       string
	ExpectedImpact string
	Steps          []models.ActionStep
}

// topicLibraryEntry customizes concept-gap plans per topic.
type topicLibraryEntry struct {
	PracticeProblems int
	KeyConcepts      []string
	PracticeLink     string
	ConceptLink      string
	InteractiveLink  string
}

func (e *recommendationEngine) Recommend(gaps []models.Gap) ([]models.Intervention, []string) {
	return e.RecommendForGrade(gaps, 0)
}

func (e *recommendationEngine) RecommendForGrade(gaps []models.Gap, gradeLevel int) ([]models.Intervention, []string) {
	var interventions []models.Intervention
	var diagnostics []string

	for _, gap := range gaps {
		template, ok := e.templates[gap.Type()][gap.GapSeverity()]
		if !ok {
			diagnostic := fmt.Sprintf("skipping unrecognized gap variant %q (severity %q)", gap.Type(), gap.GapSeverity())
			diagnostics = append(diagnostics, diagnostic)
			e.logger.Warn("unrecognized gap variant", "gap_type", gap.Type(), "severity", gap.GapSeverity())
			continue
		}

		intervention := models.Intervention{
			Title:          template.Title,
			GapType:        gap.Type(),
			Severity:       gap.GapSeverity(),
			Description:    gap.Describe(),
			PracticeType:   template.PracticeType,
			Duration:       template.Duration,
			ExpectedImpact: template.ExpectedImpact,
			Steps:          append([]models.ActionStep(nil), template.Steps...),
		}

		switch g := gap.(type) {
		case models.ConceptGap:
			e.customizeForTopic(&intervention, g, gradeLevel)
		case models.ConfidenceGap:
			intervention.TargetTopics = []string{"All covered topics"}
		case models.SpeedGap:
			intervention.TargetTopics = []string{"Problem-solving strategy"}
		}

		interventions = append(interventions, intervention)
	}

	// Severity descending, conceptual understanding gating the rest on ties.
	sort.SliceStable(interventions, func(i, j int) bool {
		if interventions[i].Severity.Rank() != interventions[j].Severity.Rank() {
			return interventions[i].Severity.Rank() > interventions[j].Severity.Rank()
		}
		return interventions[i].GapType.Rank() > interventions[j].GapType.Rank()
	})
	for i := range interventions {
		interventions[i].Priority = i + 1
	}

	return interventions, diagnostics
}

// customizeForTopic folds the topic library into a concept-gap plan:
// title, key concepts, practice volume, and learning resources.
func (e *recommendationEngine) customizeForTopic(intervention *models.Intervention, gap models.ConceptGap, gradeLevel int) {
	intervention.Title = fmt.Sprintf("%s: %s", intervention.Title, gap.Topic)
	intervention.TargetTopics = []string{gap.Topic}

	entry, ok := e.library[strings.ToLower(gap.Topic)]
	if !ok {
		return
	}

	steps := []models.ActionStep{
		{Text: fmt.Sprintf("Revisit key concepts: %s", strings.Join(entry.KeyConcepts, ", ")), Audience: models.AudienceStudent},
		{Text: fmt.Sprintf("Work through %d guided example problems with full solutions", entry.PracticeProblems/2), Audience: models.AudienceStudent},
		{Text: fmt.Sprintf("Practice %d varied problems on %s", entry.PracticeProblems, gap.Topic), Audience: models.AudienceStudent},
	}
	steps = append(steps, intervention.Steps...)
	intervention.Steps = steps

	resources := map[string][]string{
		"Practice Questions": {entry.PracticeLink},
		"Concept Guide":      {entry.ConceptLink},
	}
	// Interactive tools suit younger grades; senior students get the
	// concept guide emphasized instead.
	if gradeLevel == 0 || gradeLevel <= 8 {
		resources["Interactive Guide"] = []string{entry.InteractiveLink}
	}
	intervention.Resources = resources
}

func (e *recommendationEngine) MaintenancePlan() models.Intervention {
	return models.Intervention{
		Title:        "Continued Practice & Advancement",
		Severity:     models.SeverityLow,
		Priority:     1,
		Description:  "Student is performing well; continue with current pace",
		PracticeType: "Regular Practice + Challenge",
		TargetTopics: []string{"All topics"},
		Steps: []models.ActionStep{
			{Text: "Continue regular daily practice", Audience: models.AudienceStudent},
			{Text: "Try progressively harder problems", Audience: models.AudienceStudent},
			{Text: "Explore different problem types", Audience: models.AudienceStudent},
			{Text: "Offer enrichment or peer-tutoring opportunities", Audience: models.AudienceTeacher},
		},
		Duration:       "Ongoing",
		ExpectedImpact: "Sustains current performance and builds depth",
	}
}

// buildInterventionTemplates builds the variant-by-severity plan table.
// Keeping the mapping in one table keeps it auditable and extendable
// independently of the detection rules.
func buildInterventionTemplates() map[models.GapType]map[models.Severity]interventionTemplate {
	return map[models.GapType]map[models.Severity]interventionTemplate{
		models.GapConcept: {
			models.SeverityHigh: {
				Title:          "Foundational Topic Review",
				PracticeType:   "Foundational Review + Intensive Practice",
				Duration:       "2-3 weeks, 45-60 min daily",
				ExpectedImpact: "Rebuilds the topic from fundamentals; largest expected accuracy recovery",
				Steps: []models.ActionStep{
					{Text: "Assign a targeted practice set on the weak topic", Audience: models.AudienceTeacher},
					{Text: "Walk through worked examples before independent practice", Audience: models.AudienceTeacher},
					{Text: "Take a follow-up formative check after the review", Audience: models.AudienceStudent},
					{Text: "Seek teacher support for persistent difficulties", Audience: models.AudienceStudent},
				},
			},
			models.SeverityMedium: {
				Title:          "Targeted Topic Review",
				PracticeType:   "Targeted Review + Extra Practice",
				Duration:       "1-2 weeks, 30-45 min daily",
				ExpectedImpact: "Closes the specific misconceptions behind the below-baseline accuracy",
				Steps: []models.ActionStep{
					{Text: "Assign a focused practice set on the weak topic", Audience: models.AudienceTeacher},
					{Text: "Review mistakes from recent attempts and note the misconception behind each", Audience: models.AudienceStudent},
					{Text: "Take a short formative check to confirm understanding", Audience: models.AudienceStudent},
				},
			},
			models.SeverityLow: {
				Title:          "Structured Topic Practice",
				PracticeType:   "Structured Review + Practice",
				Duration:       "3-5 days, 30-45 min daily",
				ExpectedImpact: "Lifts a uniformly weak topic together with overall accuracy",
				Steps: []models.ActionStep{
					{Text: "Work a short daily problem set on the topic", Audience: models.AudienceStudent},
					{Text: "Review one worked example per session", Audience: models.AudienceStudent},
					{Text: "Spot-check progress at the end of the week", Audience: models.AudienceTeacher},
				},
			},
		},
		models.GapConfidence: {
			models.SeverityHigh: {
				Title:          "Confidence & Clarity Building",
				PracticeType:   "Guided Problem-Solving",
				Duration:       "2-3 weeks, 20-30 min daily",
				ExpectedImpact: "Converts long hesitation into structured reasoning; fewer slow misses",
				Steps: []models.ActionStep{
					{Text: "Start with easier problems to build momentum", Audience: models.AudienceStudent},
					{Text: "Write down reasoning before answering", Audience: models.AudienceStudent},
					{Text: "Work through step-by-step solutions together", Audience: models.AudienceTeacher},
					{Text: "Review mistakes carefully and gradually increase difficulty", Audience: models.AudienceStudent},
				},
			},
			models.SeverityMedium: {
				Title:          "Guided Reasoning Practice",
				PracticeType:   "Guided Problem-Solving",
				Duration:       "1-2 weeks, 20 min daily",
				ExpectedImpact: "Reduces hesitation on problems the student can already reason about",
				Steps: []models.ActionStep{
					{Text: "Write down the first step before committing to an answer", Audience: models.AudienceStudent},
					{Text: "Review each slow miss and identify where the reasoning stalled", Audience: models.AudienceStudent},
					{Text: "Check in mid-week on whether hesitation is dropping", Audience: models.AudienceTeacher},
				},
			},
			models.SeverityLow: {
				Title:          "Light Reasoning Warm-ups",
				PracticeType:   "Guided Problem-Solving",
				Duration:       "3-5 days, 15 min daily",
				ExpectedImpact: "Keeps occasional hesitation from becoming a habit",
				Steps: []models.ActionStep{
					{Text: "Begin each session with two warm-up problems below current level", Audience: models.AudienceStudent},
					{Text: "Note any problem that takes more than twice the usual time", Audience: models.AudienceStudent},
				},
			},
		},
		models.GapSpeed: {
			models.SeverityHigh: {
				Title:          "Deliberate, Focused Practice",
				PracticeType:   "Slow & Thoughtful Practice",
				Duration:       "2-3 weeks, 25 min daily",
				ExpectedImpact: "Replaces rushing with a deliberate routine; fewer careless misses",
				Steps: []models.ActionStep{
					{Text: "Set a minimum time of 3-5 minutes per problem", Audience: models.AudienceStudent},
					{Text: "Read the question carefully twice before starting", Audience: models.AudienceStudent},
					{Text: "Plan the approach before answering", Audience: models.AudienceStudent},
					{Text: "Double-check the answer before submitting", Audience: models.AudienceStudent},
					{Text: "Review submissions for signs of skipped steps", Audience: models.AudienceTeacher},
				},
			},
			models.SeverityMedium: {
				Title:          "Deliberate Practice Routine",
				PracticeType:   "Slow & Thoughtful Practice",
				Duration:       "1 week, 25 min daily",
				ExpectedImpact: "Cuts down fast wrong answers without slowing correct ones",
				Steps: []models.ActionStep{
					{Text: "Read the question carefully twice", Audience: models.AudienceStudent},
					{Text: "Work through each step deliberately", Audience: models.AudienceStudent},
					{Text: "Double-check the answer before submitting", Audience: models.AudienceStudent},
				},
			},
			models.SeverityLow: {
				Title:          "Pacing Awareness",
				PracticeType:   "Slow & Thoughtful Practice",
				Duration:       "3-5 days, 15 min daily",
				ExpectedImpact: "Builds awareness of pacing before rushing becomes a pattern",
				Steps: []models.ActionStep{
					{Text: "Track time spent per problem for one week", Audience: models.AudienceStudent},
					{Text: "Flag answers given in under half the usual time for re-checking", Audience: models.AudienceStudent},
				},
			},
		},
	}
}

// buildTopicLibrary returns the per-topic intervention library used to
// customize concept-gap plans.
func buildTopicLibrary() map[string]topicLibraryEntry {
	return map[string]topicLibraryEntry{
		"arithmetic": {
			PracticeProblems: 20,
			KeyConcepts:      []string{"Addition", "Subtraction", "Multiplication", "Division"},
			PracticeLink:     "https://www.khanacademy.org/math/arithmetic",
			ConceptLink:      "https://www.mathplanet.com/education/pre-algebra/discover-basic-math/arithmetic-properties",
			InteractiveLink:  "https://www.mathsisfun.com/numbers/index.html",
		},
		"fractions": {
			PracticeProblems: 15,
			KeyConcepts:      []string{"Numerator", "Denominator", "Simplification", "Comparison", "Operations"},
			PracticeLink:     "https://www.khanacademy.org/math/arithmetic/fractions",
			ConceptLink:      "https://www.mathplanet.com/education/pre-algebra/fractions/what-is-a-fraction",
			InteractiveLink:  "https://www.mathsisfun.com/fractions-menu.html",
		},
		"algebra": {
			PracticeProblems: 12,
			KeyConcepts:      []string{"Variables", "Equations", "Solving", "Substitution", "Expressions"},
			PracticeLink:     "https://www.khanacademy.org/math/algebra",
			ConceptLink:      "https://www.mathplanet.com/education/algebra",
			InteractiveLink:  "https://www.desmos.com/calculator",
		},
		"geometry": {
			PracticeProblems: 10,
			KeyConcepts:      []string{"Shapes", "Area", "Perimeter", "Angles", "Theorems"},
			PracticeLink:     "https://www.khanacademy.org/math/geometry",
			ConceptLink:      "https://www.mathplanet.com/education/geometry",
			InteractiveLink:  "https://www.geogebra.org/geometry",
		},
		"data analysis": {
			PracticeProblems: 8,
			KeyConcepts:      []string{"Mean", "Median", "Mode", "Graphs", "Probability"},
			PracticeLink:     "https://www.khanacademy.org/math/statistics-probability/displaying-describing-data",
			ConceptLink:      "https://www.khanacademy.org/math/statistics-probability",
			InteractiveLink:  "https://phet.colorado.edu/en/simulations/filter?subjects=math&type=html",
		},
		"physics": {
			PracticeProblems: 10,
			KeyConcepts:      []string{"Kinematics", "Forces", "Energy", "Momentum"},
			PracticeLink:     "https://www.khanacademy.org/science/physics",
			ConceptLink:      "https://www.physicsclassroom.com/class",
			InteractiveLink:  "https://phet.colorado.edu/en/simulations/filter?subjects=physics&type=html",
		},
		"chemistry": {
			PracticeProblems: 10,
			KeyConcepts:      []string{"Atoms", "Molecules", "Stoichiometry", "Reactions"},
			PracticeLink:     "https://www.khanacademy.org/science/chemistry",
			ConceptLink:      "https://www.acs.org/education/resources/highschool.html",
			InteractiveLink:  "https://phet.colorado.edu/en/simulations/filter?subjects=chemistry&type=html",
		},
	}
}
