package services

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/SAP-F-2025/learning-gap-service/internal/config"
	"github.com/SAP-F-2025/learning-gap-service/internal/models"
)

// GapDetector analyzes one student's attempt history and produces typed gap
// findings plus an overall performance score.
//
// All attempts in a batch are assumed to belong to the same student; the
// detector does not cross-validate student identifiers. AnalysisService
// enforces that precondition at the service boundary.
type GapDetector interface {
	Analyze(attempts models.AttemptBatch) (*models.AnalysisResult, error)
	Config() DetectorConfig
}

// DetectorConfig holds the detection thresholds. Set once at construction
// and never mutated, so concurrent Analyze calls for different students
// need no locking.
type DetectorConfig struct {
	// MinAttemptsThreshold is the minimum number of attempts required
	// before any gap is reported for a topic or pattern, to avoid false
	// positives from noise.
	MinAttemptsThreshold int

	// ConceptAccuracyThreshold flags a topic whose accuracy falls below it.
	ConceptAccuracyThreshold float64

	// HesitationRatioThreshold is the minimum share of wrong answers that
	// must be slower than the student's median time before a confidence
	// gap is reported.
	HesitationRatioThreshold float64

	// RushRatioThreshold mirrors HesitationRatioThreshold on the fast tail
	// of the time distribution.
	RushRatioThreshold float64
}

// DefaultDetectorConfig returns the stock thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinAttemptsThreshold:     3,
		ConceptAccuracyThreshold: 0.60,
		HesitationRatioThreshold: 0.50,
		RushRatioThreshold:       0.50,
	}
}

// DetectorConfigFrom maps the service configuration onto detector thresholds.
func DetectorConfigFrom(cfg config.DetectionConfig) DetectorConfig {
	return DetectorConfig{
		MinAttemptsThreshold:     cfg.MinAttemptsThreshold,
		ConceptAccuracyThreshold: cfg.ConceptAccuracyThreshold,
		HesitationRatioThreshold: cfg.HesitationRatioThreshold,
		RushRatioThreshold:       cfg.RushRatioThreshold,
	}
}

type gapDetector struct {
	cfg    DetectorConfig
	logger *slog.Logger
}

func NewGapDetector(cfg DetectorConfig, logger *slog.Logger) GapDetector {
	if cfg.MinAttemptsThreshold <= 0 {
		cfg.MinAttemptsThreshold = DefaultDetectorConfig().MinAttemptsThreshold
	}
	return &gapDetector{
		cfg:    cfg,
		logger: logger,
	}
}

func (d *gapDetector) Config() DetectorConfig {
	return d.cfg
}

// Analyze runs all detection rules over one student's attempts. It is a
// pure function of its input batch and the immutable configuration: the
// same batch always yields the same gaps and score.
func (d *gapDetector) Analyze(attempts models.AttemptBatch) (*models.AnalysisResult, error) {
	if len(attempts) == 0 {
		// "No data" is a defined outcome, not an error. Callers tell it
		// apart from "no detected gaps" via HadSufficientData.
		return &models.AnalysisResult{
			HadSufficientData: false,
			OverallScore:      0,
		}, nil
	}

	if err := validateAttempts(attempts); err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{
		StudentID:      attempts[0].StudentID,
		TotalAttempts:  len(attempts),
		CorrectAnswers: attempts.CorrectCount(),
		Accuracy:       attempts.Accuracy(),
		AvgTime:        attempts.AverageTime(),
		MedianTime:     attempts.MedianTime(),
	}

	if len(attempts) < d.cfg.MinAttemptsThreshold {
		// Graceful degradation: score from whatever data exists, no gaps.
		result.HadSufficientData = false
		result.OverallScore = result.Accuracy
		return result, nil
	}
	result.HadSufficientData = true

	// Fixed insertion order (concept, confidence, speed) is the stable
	// tie-break after the severity sort.
	gaps := d.detectConceptGaps(attempts, result.Accuracy)
	gaps = append(gaps, d.detectConfidenceGaps(attempts)...)
	gaps = append(gaps, d.detectSpeedGaps(attempts)...)

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].GapSeverity().Rank() > gaps[j].GapSeverity().Rank()
	})

	result.Gaps = models.GapList(gaps)
	result.OverallScore = overallScore(result.Accuracy, gaps)

	d.logger.Debug("student analysis complete",
		"student_id", result.StudentID,
		"attempts", result.TotalAttempts,
		"accuracy", result.Accuracy,
		"gaps", len(gaps),
		"score", result.OverallScore)

	return result, nil
}

// validateAttempts rejects structurally malformed input, naming the
// offending field and row.
func validateAttempts(attempts models.AttemptBatch) error {
	for i, a := range attempts {
		if a.StudentID == "" {
			return NewInputError("student_id", fmt.Sprintf("is required (row %d)", i), a.StudentID)
		}
		if a.QuestionID == "" {
			return NewInputError("question_id", fmt.Sprintf("is required (row %d)", i), a.QuestionID)
		}
		if a.Topic == "" {
			return NewInputError("topic", fmt.Sprintf("is required (row %d)", i), a.Topic)
		}
		if a.TimeTaken < 0 {
			return NewInputError("time_taken", fmt.Sprintf("must be non-negative (row %d)", i), a.TimeTaken)
		}
	}
	return nil
}

// detectConceptGaps partitions attempts by topic and flags topics whose
// accuracy falls below the configured threshold, using the student's
// overall accuracy as the comparison baseline.
func (d *gapDetector) detectConceptGaps(attempts models.AttemptBatch, overallAccuracy float64) []models.Gap {
	var gaps []models.Gap

	byTopic := attempts.ByTopic()
	topics := make([]string, 0, len(byTopic))
	for topic := range byTopic {
		topics = append(topics, topic)
	}
	// Map iteration order is random; analysis must be deterministic.
	sort.Strings(topics)

	for _, topic := range topics {
		topicAttempts := byTopic[topic]
		if len(topicAttempts) < d.cfg.MinAttemptsThreshold {
			continue
		}

		topicAccuracy := topicAttempts.Accuracy()
		if topicAccuracy >= d.cfg.ConceptAccuracyThreshold {
			continue
		}

		gaps = append(gaps, models.ConceptGap{
			Topic:           topic,
			TopicAccuracy:   topicAccuracy,
			OverallAccuracy: overallAccuracy,
			AttemptCount:    len(topicAttempts),
			Severity:        conceptSeverity(topicAccuracy, overallAccuracy),
			Description: fmt.Sprintf("Struggling with %s: %.1f%% accuracy vs %.1f%% overall",
				topic, topicAccuracy*100, overallAccuracy*100),
			QuestionIDs: questionIDs(topicAttempts),
		})
	}

	return gaps
}

// conceptSeverity tiers a flagged topic by how far it trails the student's
// overall accuracy. More than 20 percentage points behind is HIGH; trailing
// by up to 20 points is MEDIUM; a topic that is weak in absolute terms but
// no worse than the student's baseline is LOW.
func conceptSeverity(topicAccuracy, overallAccuracy float64) models.Severity {
	diff := overallAccuracy - topicAccuracy
	switch {
	case diff > 0.20:
		return models.SeverityHigh
	case diff > 0:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// detectConfidenceGaps looks for hesitation: wrong answers where the
// student was slower than their own median time yet still missed.
func (d *gapDetector) detectConfidenceGaps(attempts models.AttemptBatch) []models.Gap {
	wrong := attempts.Wrong()
	if len(wrong) == 0 {
		return nil
	}

	median := attempts.MedianTime()
	var slowWrong models.AttemptBatch
	for _, a := range wrong {
		if a.TimeTaken > median {
			slowWrong = append(slowWrong, a)
		}
	}

	if len(slowWrong) < d.cfg.MinAttemptsThreshold {
		return nil
	}
	ratio := float64(len(slowWrong)) / float64(len(wrong))
	if ratio <= d.cfg.HesitationRatioThreshold {
		return nil
	}

	return []models.Gap{models.ConfidenceGap{
		AffectedQuestions: len(slowWrong),
		WrongSlowRatio:    ratio,
		AvgTimeOnWrong:    slowWrong.AverageTime(),
		Severity:          ratioSeverity(ratio),
		Description: fmt.Sprintf("Hesitates on %d of %d wrong answers (slower than the %.1fs median) yet still misses them",
			len(slowWrong), len(wrong), median),
		QuestionIDs: questionIDs(slowWrong),
	}}
}

// detectSpeedGaps looks for rushing: wrong answers given faster than the
// student's own median time.
func (d *gapDetector) detectSpeedGaps(attempts models.AttemptBatch) []models.Gap {
	wrong := attempts.Wrong()
	if len(wrong) == 0 {
		return nil
	}

	median := attempts.MedianTime()
	var fastWrong models.AttemptBatch
	for _, a := range wrong {
		if a.TimeTaken < median {
			fastWrong = append(fastWrong, a)
		}
	}

	if len(fastWrong) < d.cfg.MinAttemptsThreshold {
		return nil
	}
	ratio := float64(len(fastWrong)) / float64(len(wrong))
	if ratio <= d.cfg.RushRatioThreshold {
		return nil
	}

	return []models.Gap{models.SpeedGap{
		AffectedQuestions:  len(fastWrong),
		WrongFastRatio:     ratio,
		AvgTimeOnFastWrong: fastWrong.AverageTime(),
		Severity:           ratioSeverity(ratio),
		Description: fmt.Sprintf("Answers too quickly without careful consideration: %d of %d wrong answers were faster than the %.1fs median",
			len(fastWrong), len(wrong), median),
		QuestionIDs: questionIDs(fastWrong),
	}}
}

// ratioSeverity tiers hesitation and rushing gaps by the share of wrong
// answers showing the pattern.
func ratioSeverity(ratio float64) models.Severity {
	switch {
	case ratio >= 0.75:
		return models.SeverityHigh
	case ratio >= 0.50:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// overallScore is the student's accuracy down-weighted per detected gap.
// Penalties grow with severity, so the score is monotonically non-increasing
// in both the number and the severity of gaps, and stays in [0,1].
func overallScore(accuracy float64, gaps []models.Gap) float64 {
	score := accuracy
	for _, g := range gaps {
		switch g.GapSeverity() {
		case models.SeverityHigh:
			score -= 0.10
		case models.SeverityMedium:
			score -= 0.07
		default:
			score -= 0.04
		}
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func questionIDs(attempts models.AttemptBatch) []string {
	ids := make([]string, 0, len(attempts))
	seen := make(map[string]bool, len(attempts))
	for _, a := range attempts {
		if seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		ids = append(ids, a.QuestionID)
	}
	return ids
}
