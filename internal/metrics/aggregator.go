package metrics

import (
	"context"
	"math"
	"sort"
	"time"

	"pdfchat/internal/model"
)

// EventSource is the read side of the event log the aggregator computes
// over. The repository implements it; tests provide an in-memory one.
type EventSource interface {
	ListEvents(ctx context.Context, since time.Time, userID string) ([]model.QueryEvent, error)
}

// Filter bounds an aggregate query. Days == 0 means the whole log; UserID ==
// "" means all users.
type Filter struct {
	Days   int
	UserID string
}

func (f Filter) since(now time.Time) time.Time {
	if f.Days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -f.Days)
}

type Stats struct {
	TotalQueries      int     `json:"total_queries"`
	SuccessfulQueries int     `json:"successful_queries"`
	FailedQueries     int     `json:"failed_queries"`
	SuccessRate       float64 `json:"success_rate"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
	MinLatencyMS      float64 `json:"min_latency_ms"`
	MaxLatencyMS      float64 `json:"max_latency_ms"`
	MostUsedTopK      int     `json:"most_used_top_k"`
}

type UserRank struct {
	UserID            string  `json:"user_id"`
	QueryCount        int     `json:"query_count"`
	SuccessfulQueries int     `json:"successful_queries"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
}

type DocumentRank struct {
	Source        string `json:"source"`
	UsageCount    int    `json:"usage_count"`
	UniqueQueries int    `json:"unique_queries"`
}

type KindCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ErrorBreakdown struct {
	TotalErrors int         `json:"total_errors"`
	ByKind      []KindCount `json:"by_kind"`
	ByEndpoint  []KindCount `json:"by_endpoint"`
}

type TimeBucket struct {
	Date              string  `json:"date"`
	QueryCount        int     `json:"query_count"`
	SuccessfulQueries int     `json:"successful_queries"`
	FailedQueries     int     `json:"failed_queries"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
}

// Aggregator derives statistics from the event log on demand. Nothing here
// is stored: the log is the single source of truth and every result is
// recomputable. All operations tolerate an empty log.
type Aggregator struct {
	source EventSource
	now    func() time.Time
}

func NewAggregator(source EventSource) *Aggregator {
	return &Aggregator{source: source, now: time.Now}
}

func (a *Aggregator) events(ctx context.Context, f Filter) ([]model.QueryEvent, error) {
	return a.source.ListEvents(ctx, f.since(a.now()), f.UserID)
}

func (a *Aggregator) Stats(ctx context.Context, f Filter) (*Stats, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalQueries: len(events)}
	topKCounts := make(map[int]int)
	var latencySum float64
	for _, e := range events {
		topKCounts[e.TopK]++
		if !e.Success {
			stats.FailedQueries++
			continue
		}
		stats.SuccessfulQueries++
		latencySum += e.LatencyMS
		if stats.MinLatencyMS == 0 || e.LatencyMS < stats.MinLatencyMS {
			stats.MinLatencyMS = round2(e.LatencyMS)
		}
		if e.LatencyMS > stats.MaxLatencyMS {
			stats.MaxLatencyMS = round2(e.LatencyMS)
		}
	}
	if stats.TotalQueries > 0 {
		stats.SuccessRate = round2(float64(stats.SuccessfulQueries) / float64(stats.TotalQueries) * 100)
	}
	if stats.SuccessfulQueries > 0 {
		stats.AvgLatencyMS = round2(latencySum / float64(stats.SuccessfulQueries))
	}
	for topK, count := range topKCounts {
		best := topKCounts[stats.MostUsedTopK]
		if count > best || (count == best && topK < stats.MostUsedTopK) {
			stats.MostUsedTopK = topK
		}
	}
	return stats, nil
}

func (a *Aggregator) TopUsers(ctx context.Context, limit int, f Filter) ([]UserRank, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count      int
		successful int
		latencySum float64
	}
	byUser := make(map[string]*acc)
	for _, e := range events {
		if e.UserID == "" {
			continue
		}
		u, ok := byUser[e.UserID]
		if !ok {
			u = &acc{}
			byUser[e.UserID] = u
		}
		u.count++
		u.latencySum += e.LatencyMS
		if e.Success {
			u.successful++
		}
	}

	ranks := make([]UserRank, 0, len(byUser))
	for userID, u := range byUser {
		ranks = append(ranks, UserRank{
			UserID:            userID,
			QueryCount:        u.count,
			SuccessfulQueries: u.successful,
			AvgLatencyMS:      round2(u.latencySum / float64(u.count)),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].QueryCount != ranks[j].QueryCount {
			return ranks[i].QueryCount > ranks[j].QueryCount
		}
		return ranks[i].UserID < ranks[j].UserID
	})
	return clip(ranks, limit), nil
}

func (a *Aggregator) TopDocuments(ctx context.Context, limit int, f Filter) ([]DocumentRank, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	usage := make(map[string]int)
	queries := make(map[string]int)
	for _, e := range events {
		seen := make(map[string]bool)
		for _, ref := range e.SourceRefs() {
			usage[ref.Source]++
			if !seen[ref.Source] {
				seen[ref.Source] = true
				queries[ref.Source]++
			}
		}
	}

	ranks := make([]DocumentRank, 0, len(usage))
	for source, count := range usage {
		ranks = append(ranks, DocumentRank{
			Source:        source,
			UsageCount:    count,
			UniqueQueries: queries[source],
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].UsageCount != ranks[j].UsageCount {
			return ranks[i].UsageCount > ranks[j].UsageCount
		}
		return ranks[i].Source < ranks[j].Source
	})
	return clip(ranks, limit), nil
}

func (a *Aggregator) ErrorBreakdown(ctx context.Context, f Filter) (*ErrorBreakdown, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]int)
	byEndpoint := make(map[string]int)
	breakdown := &ErrorBreakdown{}
	for _, e := range events {
		if e.Success {
			continue
		}
		breakdown.TotalErrors++
		byKind[e.ErrorKind]++
		byEndpoint[e.Endpoint]++
	}
	breakdown.ByKind = sortedCounts(byKind)
	breakdown.ByEndpoint = sortedCounts(byEndpoint)
	return breakdown, nil
}

func (a *Aggregator) TimeSeries(ctx context.Context, f Filter) ([]TimeBucket, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	type acc struct {
		count      int
		successful int
		failed     int
		latencySum float64
	}
	byDate := make(map[string]*acc)
	for _, e := range events {
		date := e.CreatedAt.Format("2006-01-02")
		b, ok := byDate[date]
		if !ok {
			b = &acc{}
			byDate[date] = b
		}
		b.count++
		b.latencySum += e.LatencyMS
		if e.Success {
			b.successful++
		} else {
			b.failed++
		}
	}

	buckets := make([]TimeBucket, 0, len(byDate))
	for date, b := range byDate {
		buckets = append(buckets, TimeBucket{
			Date:              date,
			QueryCount:        b.count,
			SuccessfulQueries: b.successful,
			FailedQueries:     b.failed,
			AvgLatencyMS:      round2(b.latencySum / float64(b.count)),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })
	return buckets, nil
}

func sortedCounts(m map[string]int) []KindCount {
	counts := make([]KindCount, 0, len(m))
	for name, count := range m {
		counts = append(counts, KindCount{Name: name, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}

func clip[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
