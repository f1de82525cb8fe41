package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/learning-gap-service/internal/cache"
	"github.com/SAP-F-2025/learning-gap-service/internal/events"
	"github.com/SAP-F-2025/learning-gap-service/internal/models"
	"github.com/SAP-F-2025/learning-gap-service/internal/utils"
)

const (
	reportCacheTTL       = 15 * time.Minute
	reportCacheKeyPrefix = "gap-analysis:report:"

	// Cap on concurrent per-student analyses in a batch run.
	maxConcurrentAnalyses = 8
)

// AnalysisService is the service boundary over the detector and the
// recommendation engine: it validates incoming batches, layers trend
// metrics onto the detection result, caches reports, and publishes
// analysis events.
type AnalysisService interface {
	// AnalyzeStudent runs the full pipeline for one student's attempts.
	// The batch must not mix student identifiers.
	AnalyzeStudent(ctx context.Context, attempts []models.Attempt) (*models.AnalysisReport, error)

	// AnalyzeBatch groups attempts by student and analyzes each student
	// independently and in parallel. Reports are keyed by student ID.
	AnalyzeBatch(ctx context.Context, attempts []models.Attempt) (map[string]*models.AnalysisReport, error)

	// GetCachedReport returns the most recent cached report for a student,
	// or ErrReportNotCached.
	GetCachedReport(ctx context.Context, studentID string) (*models.AnalysisReport, error)
}

type analysisService struct {
	detector    GapDetector
	recommender RecommendationEngine
	cache       cache.CacheService
	publisher   events.EventPublisher
	logger      *slog.Logger
}

// NewAnalysisService wires the pipeline. Cache and publisher may be nil;
// analysis then runs without report caching or event emission.
func NewAnalysisService(
	detector GapDetector,
	recommender RecommendationEngine,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
) AnalysisService {
	return &analysisService{
		detector:    detector,
		recommender: recommender,
		cache:       cacheService,
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *analysisService) AnalyzeStudent(ctx context.Context, attempts []models.Attempt) (*models.AnalysisReport, error) {
	batch := models.AttemptBatch(attempts)

	// The detector trusts its input to be single-student; this boundary is
	// where mixed batches get rejected.
	for i := 1; i < len(batch); i++ {
		if batch[i].StudentID != batch[0].StudentID {
			return nil, NewInputError("student_id",
				fmt.Sprintf("batch mixes student identifiers (%q and %q)", batch[0].StudentID, batch[i].StudentID),
				batch[i].StudentID)
		}
	}

	result, err := s.detector.Analyze(batch)
	if err != nil {
		return nil, err
	}

	gradeLevel := utils.ExtractGradeLevel(result.StudentID)
	interventions, diagnostics := s.recommender.RecommendForGrade(result.Gaps, gradeLevel)
	if result.HadSufficientData && len(result.Gaps) == 0 {
		interventions = append(interventions, s.recommender.MaintenancePlan())
	}

	report := &models.AnalysisReport{
		Result:           *result,
		Interventions:    interventions,
		Diagnostics:      diagnostics,
		LearningVelocity: learningVelocity(batch),
		Engagement:       engagementLevel(batch),
		GradeLevel:       gradeLevel,
		GeneratedAt:      time.Now(),
	}

	s.logger.Info("student analysis completed",
		"student_id", result.StudentID,
		"attempts", result.TotalAttempts,
		"gaps", len(result.Gaps),
		"interventions", len(interventions),
		"score", result.OverallScore)

	s.cacheReport(ctx, report)
	s.publishEvents(ctx, result)

	return report, nil
}

func (s *analysisService) AnalyzeBatch(ctx context.Context, attempts []models.Attempt) (map[string]*models.AnalysisReport, error) {
	byStudent := models.ByStudent(attempts)

	reports := make(map[string]*models.AnalysisReport, len(byStudent))
	var mu sync.Mutex

	// Analyses for different students share no state, so they run
	// independently and in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAnalyses)

	for studentID, studentAttempts := range byStudent {
		studentID, studentAttempts := studentID, studentAttempts
		g.Go(func() error {
			report, err := s.AnalyzeStudent(gctx, studentAttempts)
			if err != nil {
				return fmt.Errorf("student %s: %w", studentID, err)
			}
			mu.Lock()
			reports[studentID] = report
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *analysisService) GetCachedReport(ctx context.Context, studentID string) (*models.AnalysisReport, error) {
	if s.cache == nil {
		return nil, ErrReportNotCached
	}

	var report models.AnalysisReport
	err := s.cache.Get(ctx, reportCacheKeyPrefix+studentID, &report)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrReportNotCached
		}
		return nil, fmt.Errorf("failed to read cached report: %w", err)
	}
	return &report, nil
}

// cacheReport stores the report best-effort; a cache outage must not fail
// the analysis the teacher is waiting on.
func (s *analysisService) cacheReport(ctx context.Context, report *models.AnalysisReport) {
	if s.cache == nil || report.Result.StudentID == "" {
		return
	}
	key := reportCacheKeyPrefix + report.Result.StudentID
	if err := s.cache.Set(ctx, key, report, reportCacheTTL); err != nil {
		s.logger.Warn("failed to cache analysis report", "student_id", report.Result.StudentID, "error", err)
	}
}

// publishEvents emits the completion event plus one alert per HIGH
// severity gap. Publish failures are logged, not propagated.
func (s *analysisService) publishEvents(ctx context.Context, result *models.AnalysisResult) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishAnalysisEvent(ctx, events.NewAnalysisCompletedEvent(result)); err != nil {
		s.logger.Warn("failed to publish analysis completed event", "student_id", result.StudentID, "error", err)
	}

	for _, gap := range result.Gaps {
		if gap.GapSeverity() != models.SeverityHigh {
			continue
		}
		if err := s.publisher.PublishAnalysisEvent(ctx, events.NewGapDetectedEvent(result.StudentID, gap)); err != nil {
			s.logger.Warn("failed to publish gap detected event",
				"student_id", result.StudentID,
				"gap_type", gap.Type(),
				"error", err)
		}
	}
}
