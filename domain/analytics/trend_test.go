package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyRecords(weeklyScores ...float64) []PerformanceRecord {
	base := time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
	records := make([]PerformanceRecord, 0, len(weeklyScores))
	for i, score := range weeklyScores {
		records = append(records, PerformanceRecord{
			UserID:      "u1",
			Score:       score,
			MaxScore:    100,
			SubmittedAt: base.AddDate(0, 0, i*7),
		})
	}
	return records
}

func TestComputeProgressTrend_Improving(t *testing.T) {
	trend := ComputeProgressTrend(weeklyRecords(50, 50, 50, 80, 80, 80))

	assert.Equal(t, TrendImproving, trend.Direction)
	assert.Equal(t, 6, trend.ActiveWeeks)
	assert.Equal(t, 6, trend.CurrentStreak)
	assert.Greater(t, trend.ImprovementRate, 0.0)
}

func TestComputeProgressTrend_Declining(t *testing.T) {
	trend := ComputeProgressTrend(weeklyRecords(90, 85, 90, 60, 55, 60))

	assert.Equal(t, TrendDeclining, trend.Direction)
	assert.Less(t, trend.ImprovementRate, 0.0)
}

func TestComputeProgressTrend_StableWithinThreshold(t *testing.T) {
	// Windows differ by less than five percentage points.
	trend := ComputeProgressTrend(weeklyRecords(70, 72, 71, 73, 74, 72))

	assert.Equal(t, TrendStable, trend.Direction)
}

func TestComputeProgressTrend_NoRecords(t *testing.T) {
	trend := ComputeProgressTrend(nil)

	assert.Equal(t, TrendStable, trend.Direction)
	assert.Zero(t, trend.ActiveWeeks)
	assert.Zero(t, trend.CurrentStreak)
	assert.Zero(t, trend.ImprovementRate)
}

func TestComputeProgressTrend_FewRecordsNoRateSignal(t *testing.T) {
	trend := ComputeProgressTrend(weeklyRecords(40, 90))

	assert.Zero(t, trend.ImprovementRate, "fewer than five records carries no slope signal")
	assert.Equal(t, 2, trend.ActiveWeeks)
}

func TestComputeProgressTrend_WeeklyAggregation(t *testing.T) {
	// Three submissions in the same week average into one bucket.
	base := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC) // a Monday
	records := []PerformanceRecord{
		{UserID: "u1", Score: 40, MaxScore: 100, SubmittedAt: base},
		{UserID: "u1", Score: 60, MaxScore: 100, SubmittedAt: base.AddDate(0, 0, 2)},
		{UserID: "u1", Score: 80, MaxScore: 100, SubmittedAt: base.AddDate(0, 0, 5)},
	}

	trend := ComputeProgressTrend(records)

	require.Len(t, trend.WeeklyData, 1)
	assert.InDelta(t, 60.0, trend.WeeklyData[0].AverageScore, 0.001)
	assert.Equal(t, 3, trend.WeeklyData[0].SubmissionCount)
	assert.Equal(t, base.Truncate(24*time.Hour), trend.WeeklyData[0].WeekStart)
}

func TestCategorizeGaps(t *testing.T) {
	gaps := []LearningGap{
		{ConceptID: "math.algebra.linear"},
		{ConceptID: "math.geometry"},
		{ConceptID: "physics.mechanics"},
		{ConceptID: ""},
	}

	categories := CategorizeGaps(gaps)

	assert.Equal(t, 2, categories["math"])
	assert.Equal(t, 1, categories["physics"])
	assert.Equal(t, 1, categories["unknown"])
}

func TestCategorizeRecommendations(t *testing.T) {
	recs := []Recommendation{
		{ResourceID: "r1", ResourceType: "video"},
		{ResourceID: "r2", ResourceType: "video"},
		{ResourceID: "r3", ResourceType: "practice_set"},
		{ResourceID: "r4"},
	}

	categories := CategorizeRecommendations(recs)

	assert.Equal(t, 2, categories["video"])
	assert.Equal(t, 1, categories["practice_set"])
	assert.Equal(t, 1, categories["unknown"])
}
