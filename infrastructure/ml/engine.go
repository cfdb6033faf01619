// Package ml hosts the in-process gap-detection and recommendation engines.
// Both are deliberately simple heuristic models over recent performance data;
// they sit behind the application ports so a real model service can replace
// them without touching the core.
package ml

import (
	"context"
	"fmt"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/domain/analytics"

	"go.uber.org/zap"
)

const (
	// analysisWindow bounds how far back the engines look.
	analysisWindow = 30 * 24 * time.Hour

	// gapScoreThreshold is the score percentage below which a concept is
	// considered a gap.
	gapScoreThreshold = 70.0

	// minConceptSamples is the minimum number of graded submissions per
	// concept before the engine will judge it.
	minConceptSamples = 2
)

// GapEngine detects learning gaps from per-concept performance averages.
type GapEngine struct {
	performance ports.PerformanceRepository
	logger      *zap.Logger
}

// NewGapEngine creates the heuristic gap detector.
func NewGapEngine(performance ports.PerformanceRepository, logger *zap.Logger) *GapEngine {
	return &GapEngine{performance: performance, logger: logger}
}

// ComputeLearningGaps averages a user's recent scores per concept tag and
// flags concepts scoring below the gap threshold. Severity scales with how
// far below the threshold the concept sits.
func (e *GapEngine) ComputeLearningGaps(ctx context.Context, userID string) ([]analytics.LearningGap, error) {
	since := time.Now().UTC().Add(-analysisWindow)
	records, err := e.performance.FetchRecentPerformance(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch performance for gap analysis: %w", err)
	}

	averages := conceptAverages(records)

	now := time.Now().UTC()
	gaps := make([]analytics.LearningGap, 0)
	for conceptID, avg := range averages {
		if avg.samples < minConceptSamples || avg.percentage >= gapScoreThreshold {
			continue
		}
		gaps = append(gaps, analytics.LearningGap{
			ConceptID:  conceptID,
			Severity:   (gapScoreThreshold - avg.percentage) / gapScoreThreshold,
			DetectedAt: now,
		})
	}

	e.logger.Debug("Gap analysis complete",
		zap.String("userID", userID),
		zap.Int("concepts", len(averages)),
		zap.Int("gaps", len(gaps)),
	)
	return gaps, nil
}

// TrainModel recalibrates nothing real yet; it validates the training set and
// reports corpus statistics as model metrics.
func (e *GapEngine) TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no training records")
	}

	var total float64
	concepts := make(map[string]struct{})
	for _, record := range records {
		total += scorePct(record)
		for _, tag := range record.ConceptTags {
			concepts[tag] = struct{}{}
		}
	}

	return map[string]float64{
		"training_records":  float64(len(records)),
		"distinct_concepts": float64(len(concepts)),
		"mean_score_pct":    total / float64(len(records)),
		"trained_at_unix":   float64(time.Now().UTC().Unix()),
	}, nil
}

// RecommendationEngine derives practice recommendations from detected gaps.
type RecommendationEngine struct {
	gaps   ports.GapAnalyzer
	logger *zap.Logger
}

// NewRecommendationEngine creates the heuristic recommender.
func NewRecommendationEngine(gaps ports.GapAnalyzer, logger *zap.Logger) *RecommendationEngine {
	return &RecommendationEngine{gaps: gaps, logger: logger}
}

// ComputeRecommendations maps each detected gap to a practice resource whose
// priority tracks the gap's severity. Completion filtering happens downstream,
// where stored completion state is visible.
func (e *RecommendationEngine) ComputeRecommendations(ctx context.Context, userID string) ([]analytics.Recommendation, error) {
	gaps, err := e.gaps.ComputeLearningGaps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("compute gaps for recommendations: %w", err)
	}

	recs := make([]analytics.Recommendation, 0, len(gaps))
	for _, gap := range gaps {
		recs = append(recs, analytics.Recommendation{
			ResourceID:    "practice:" + gap.ConceptID,
			ResourceType:  "practice_set",
			ConceptID:     gap.ConceptID,
			PriorityScore: gap.Severity,
		})
	}

	e.logger.Debug("Recommendations computed",
		zap.String("userID", userID),
		zap.Int("count", len(recs)),
	)
	return recs, nil
}

// TrainModel mirrors the gap engine's training stub.
func (e *RecommendationEngine) TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no training records")
	}

	var total float64
	for _, record := range records {
		total += scorePct(record)
	}

	return map[string]float64{
		"training_records": float64(len(records)),
		"mean_score_pct":   total / float64(len(records)),
		"trained_at_unix":  float64(time.Now().UTC().Unix()),
	}, nil
}

type conceptAverage struct {
	percentage float64
	samples    int
}

func conceptAverages(records []analytics.PerformanceRecord) map[string]conceptAverage {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, record := range records {
		pct := scorePct(record)
		for _, tag := range record.ConceptTags {
			totals[tag] += pct
			counts[tag]++
		}
	}

	averages := make(map[string]conceptAverage, len(totals))
	for tag, total := range totals {
		averages[tag] = conceptAverage{
			percentage: total / float64(counts[tag]),
			samples:    counts[tag],
		}
	}
	return averages
}

func scorePct(record analytics.PerformanceRecord) float64 {
	if record.MaxScore <= 0 {
		return 0
	}
	return record.Score / record.MaxScore * 100
}
