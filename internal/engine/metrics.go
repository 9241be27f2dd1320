package engine

import (
	"math"
	"time"

	"github.com/spec-kit/query-engine/internal/domain"
	apperrors "github.com/spec-kit/query-engine/pkg/util/errorutil"
)

// Trailing windows the metrics series supports, in days.
var supportedWindows = map[int]struct{}{7: {}, 30: {}, 90: {}, 180: {}, 365: {}}

// MetricsBucket is one calendar day of the trailing series.
// AvgResolutionDays is nil when no query resolved that day, which
// charting must keep distinct from an average of zero.
type MetricsBucket struct {
	Date              time.Time
	QueryCount        int
	AvgResolutionDays *float64
}

// ComputeMetrics builds windowDays consecutive day buckets ending on the
// day of now (inclusive). Each bucket counts queries submitted that day
// and averages the resolution latency of queries resolved that day. The
// computation is pure: same snapshot and window, same series.
func ComputeMetrics(queries []domain.Query, windowDays int, now time.Time) ([]MetricsBucket, error) {
	if _, ok := supportedWindows[windowDays]; !ok {
		return nil, apperrors.NewValidation("unsupported trailing window", map[string]any{"window_days": windowDays})
	}

	loc := now.Location()
	today := domain.TruncateToDay(now)
	start := today.AddDate(0, 0, -(windowDays - 1))

	submissions := make(map[string]int)
	latencies := make(map[string][]int)
	for i := range queries {
		q := &queries[i]
		submissions[dayKey(q.SubmissionDate, loc)]++
		if q.Status == domain.QueryStatusResolved && q.ResolutionDate != nil {
			key := dayKey(*q.ResolutionDate, loc)
			latencies[key] = append(latencies[key], resolutionLatencyDays(q.SubmissionDate, *q.ResolutionDate))
		}
	}

	series := make([]MetricsBucket, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		date := start.AddDate(0, 0, i)
		key := dayKey(date, loc)
		bucket := MetricsBucket{
			Date:       date,
			QueryCount: submissions[key],
		}
		if resolved := latencies[key]; len(resolved) > 0 {
			sum := 0
			for _, days := range resolved {
				sum += days
			}
			avg := roundToOneDecimal(float64(sum) / float64(len(resolved)))
			bucket.AvgResolutionDays = &avg
		}
		series = append(series, bucket)
	}
	return series, nil
}

// resolutionLatencyDays is the ceiling-rounded whole-day latency between
// submission and resolution, never negative.
func resolutionLatencyDays(submitted, resolved time.Time) int {
	days := int(math.Ceil(resolved.Sub(submitted).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func roundToOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}

// dayKey normalizes a timestamp to its calendar day in loc. Keys are
// strings because time.Time map keys compare location pointers.
func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
