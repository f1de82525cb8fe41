package models

import (
	"encoding/json"
	"fmt"
)

// Severity classifies how urgent a detected gap is. The ordering
// LOW < MEDIUM < HIGH drives both gap ranking and intervention priority.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the numeric order of a severity for sorting. Unknown values
// rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// GapType discriminates the Gap union.
type GapType string

const (
	GapConcept    GapType = "concept"
	GapConfidence GapType = "confidence"
	GapSpeed      GapType = "speed"
)

// Rank returns the variant priority used for tie-breaking: conceptual
// understanding gates the other two, so Concept > Confidence > Speed.
func (t GapType) Rank() int {
	switch t {
	case GapConcept:
		return 3
	case GapConfidence:
		return 2
	case GapSpeed:
		return 1
	default:
		return 0
	}
}

// Gap is a detected weakness pattern. Each variant carries only its own
// evidence fields; callers switch on Type() rather than probing for
// optional fields.
type Gap interface {
	Type() GapType
	GapSeverity() Severity
	Describe() string
	// Evidence returns the question IDs that contributed to the finding,
	// for audit and report purposes.
	Evidence() []string
}

// ConceptGap flags a topic whose accuracy sits significantly below the
// student's overall accuracy.
type ConceptGap struct {
	Topic           string   `json:"topic"`
	TopicAccuracy   float64  `json:"topic_accuracy"`
	OverallAccuracy float64  `json:"overall_accuracy"`
	AttemptCount    int      `json:"attempt_count"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	QuestionIDs     []string `json:"question_ids"`
}

func (g ConceptGap) Type() GapType         { return GapConcept }
func (g ConceptGap) GapSeverity() Severity { return g.Severity }
func (g ConceptGap) Describe() string      { return g.Description }
func (g ConceptGap) Evidence() []string    { return g.QuestionIDs }

// ConfidenceGap flags hesitation: a disproportionate share of wrong answers
// where the student was slower than their own median yet still missed.
type ConfidenceGap struct {
	AffectedQuestions int      `json:"affected_questions"`
	WrongSlowRatio    float64  `json:"wrong_slow_ratio"`
	AvgTimeOnWrong    float64  `json:"avg_time_on_wrong"`
	Severity          Severity `json:"severity"`
	Description       string   `json:"description"`
	QuestionIDs       []string `json:"question_ids"`
}

func (g ConfidenceGap) Type() GapType         { return GapConfidence }
func (g ConfidenceGap) GapSeverity() Severity { return g.Severity }
func (g ConfidenceGap) Describe() string      { return g.Description }
func (g ConfidenceGap) Evidence() []string    { return g.QuestionIDs }

// SpeedGap flags rushing: wrong answers given faster than the student's own
// median time, mirrored on the opposite tail of the time distribution from
// ConfidenceGap.
type SpeedGap struct {
	AffectedQuestions  int      `json:"affected_questions"`
	WrongFastRatio     float64  `json:"wrong_fast_ratio"`
	AvgTimeOnFastWrong float64  `json:"avg_time_on_fast_wrong"`
	Severity           Severity `json:"severity"`
	Description        string   `json:"description"`
	QuestionIDs        []string `json:"question_ids"`
}

func (g SpeedGap) Type() GapType         { return GapSpeed }
func (g SpeedGap) GapSeverity() Severity { return g.Severity }
func (g SpeedGap) Describe() string      { return g.Description }
func (g SpeedGap) Evidence() []string    { return g.QuestionIDs }

// GapList serializes the Gap union with an explicit discriminant so reports
// survive a JSON round trip (for the cache and the HTTP surface).
type GapList []Gap

type gapEnvelope struct {
	Type GapType         `json:"type"`
	Gap  json.RawMessage `json:"gap"`
}

func (l GapList) MarshalJSON() ([]byte, error) {
	envelopes := make([]gapEnvelope, 0, len(l))
	for _, g := range l {
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, gapEnvelope{Type: g.Type(), Gap: raw})
	}
	return json.Marshal(envelopes)
}

func (l *GapList) UnmarshalJSON(data []byte) error {
	var envelopes []gapEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return err
	}

	gaps := make(GapList, 0, len(envelopes))
	for _, env := range envelopes {
		switch env.Type {
		case GapConcept:
			var g ConceptGap
			if err := json.Unmarshal(env.Gap, &g); err != nil {
				return err
			}
			gaps = append(gaps, g)
		case GapConfidence:
			var g ConfidenceGap
			if err := json.Unmarshal(env.Gap, &g); err != nil {
				return err
			}
			gaps = append(gaps, g)
		case GapSpeed:
			var g SpeedGap
			if err := json.Unmarshal(env.Gap, &g); err != nil {
				return err
			}
			gaps = append(gaps, g)
		default:
			return fmt.Errorf("unknown gap variant %q", env.Type)
		}
	}
	*l = gaps
	return nil
}
