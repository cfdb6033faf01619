package analytics

import (
	"sort"
	"time"
)

// trendThreshold is the minimum difference (in performance percentage points)
// between the recent and earlier window averages before a trend is classified
// as improving or declining.
const trendThreshold = 5.0

// trendWindow is how many weeks each comparison window spans.
const trendWindow = 3

// ComputeProgressTrend aggregates performance records into weekly buckets and
// derives the trend direction, the linear-slope improvement rate, and the
// current activity streak. Records may arrive in any order.
func ComputeProgressTrend(records []PerformanceRecord) ProgressTrend {
	weekly := aggregateWeekly(records)

	trend := ProgressTrend{
		Direction:   TrendStable,
		WeeklyData:  weekly,
		ActiveWeeks: len(weekly),
	}

	if len(weekly) >= 2 {
		recent := windowAverage(weekly[max(0, len(weekly)-trendWindow):])
		earlier := windowAverage(weekly[:min(trendWindow, len(weekly))])

		switch {
		case recent > earlier+trendThreshold:
			trend.Direction = TrendImproving
		case recent < earlier-trendThreshold:
			trend.Direction = TrendDeclining
		}
	}

	trend.ImprovementRate = improvementRate(records)
	trend.CurrentStreak = activityStreak(weekly)

	return trend
}

// aggregateWeekly groups records by ISO-week start (Monday) and averages
// scores as percentages of max score within each week.
func aggregateWeekly(records []PerformanceRecord) []WeeklyProgress {
	type bucket struct {
		sum   float64
		count int
	}

	buckets := make(map[time.Time]*bucket)
	for _, rec := range records {
		week := weekStart(rec.SubmittedAt)
		b, ok := buckets[week]
		if !ok {
			b = &bucket{}
			buckets[week] = b
		}
		b.sum += scorePercentage(rec)
		b.count++
	}

	weekly := make([]WeeklyProgress, 0, len(buckets))
	for week, b := range buckets {
		weekly = append(weekly, WeeklyProgress{
			WeekStart:       week,
			AverageScore:    b.sum / float64(b.count),
			SubmissionCount: b.count,
		})
	}
	sort.Slice(weekly, func(i, j int) bool {
		return weekly[i].WeekStart.Before(weekly[j].WeekStart)
	})

	return weekly
}

// improvementRate fits a simple linear regression through the chronological
// score sequence and returns the slope. Fewer than 5 data points is treated
// as no signal.
func improvementRate(records []PerformanceRecord) float64 {
	if len(records) < 5 {
		return 0
	}

	sorted := make([]PerformanceRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})

	n := float64(len(sorted))
	var xSum, ySum, xySum, xxSum float64
	for i, rec := range sorted {
		x := float64(i)
		y := scorePercentage(rec)
		xSum += x
		ySum += y
		xySum += x * y
		xxSum += x * x
	}

	denom := n*xxSum - xSum*xSum
	if denom == 0 {
		return 0
	}
	return (n*xySum - xSum*ySum) / denom
}

// activityStreak counts consecutive trailing weeks with at least one
// submission.
func activityStreak(weekly []WeeklyProgress) int {
	streak := 0
	for i := len(weekly) - 1; i >= 0; i-- {
		if weekly[i].SubmissionCount == 0 {
			break
		}
		streak++
	}
	return streak
}

func windowAverage(window []WeeklyProgress) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, w := range window {
		sum += w.AverageScore
	}
	return sum / float64(len(window))
}

func scorePercentage(rec PerformanceRecord) float64 {
	if rec.MaxScore <= 0 {
		return 0
	}
	return rec.Score / rec.MaxScore * 100
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	// time.Weekday starts at Sunday; shift so weeks start on Monday.
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
