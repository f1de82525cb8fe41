package models

// StepAudience marks who an action step is written for.
type StepAudience string

const (
	AudienceTeacher StepAudience = "teacher"
	AudienceStudent StepAudience = "student"
)

// ActionStep is one imperative instruction inside an intervention plan.
type ActionStep struct {
	Text     string       `json:"text"`
	Audience StepAudience `json:"audience"`
}

// Intervention is a prioritized, time-boxed action plan addressing one
// detected gap. Interventions are value objects created fresh per call and
// owned by the caller.
type Intervention struct {
	Title        string       `json:"title"`
	GapType      GapType      `json:"gap_type"`
	Severity     Severity     `json:"severity"`
	Priority     int          `json:"priority"` // 1 = most urgent
	Description  string       `json:"description"`
	PracticeType string       `json:"practice_type"`
	TargetTopics []string     `json:"target_topics"`
	Steps        []ActionStep `json:"steps"`
	// Duration is a bounded range such as "2-3 days, 30-45 min daily".
	Duration       string              `json:"duration"`
	ExpectedImpact string              `json:"expected_impact"`
	Resources      map[string][]string `json:"resources,omitempty"`
}
