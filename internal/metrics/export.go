package metrics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	KindQueries       = "queries"
	KindErrors        = "errors"
	KindDocumentUsage = "document-usage"
)

// QueryRow is one exported query event.
type QueryRow struct {
	EventID      string  `json:"event_id"`
	UserID       string  `json:"user_id"`
	Question     string  `json:"question"`
	TopK         int     `json:"top_k"`
	LatencyMS    float64 `json:"latency_ms"`
	Success      bool    `json:"success"`
	ErrorKind    string  `json:"error_kind"`
	SourcesCount int     `json:"sources_count"`
	CreatedAt    string  `json:"created_at"`
}

// ErrorRow is one exported failed event.
type ErrorRow struct {
	EventID   string  `json:"event_id"`
	UserID    string  `json:"user_id"`
	Endpoint  string  `json:"endpoint"`
	ErrorKind string  `json:"error_kind"`
	LatencyMS float64 `json:"latency_ms"`
	CreatedAt string  `json:"created_at"`
}

// UsageRow is one exported (event, source) pair.
type UsageRow struct {
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	Question  string `json:"question"`
	Source    string `json:"source"`
	Page      int    `json:"page"`
	CreatedAt string `json:"created_at"`
}

// Export renders the selected event subset in the requested format. Output
// is byte-stable for identical input: rows follow log order and fields have
// a fixed order.
func (a *Aggregator) Export(ctx context.Context, format, kind string, f Filter) ([]byte, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindQueries:
		rows := make([]QueryRow, 0, len(events))
		for _, e := range events {
			rows = append(rows, QueryRow{
				EventID:      e.EventID,
				UserID:       e.UserID,
				Question:     e.Question,
				TopK:         e.TopK,
				LatencyMS:    e.LatencyMS,
				Success:      e.Success,
				ErrorKind:    e.ErrorKind,
				SourcesCount: len(e.SourceRefs()),
				CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return render(format, queryHeader, rows, queryRecord)

	case KindErrors:
		var rows []ErrorRow
		for _, e := range events {
			if e.Success {
				continue
			}
			rows = append(rows, ErrorRow{
				EventID:   e.EventID,
				UserID:    e.UserID,
				Endpoint:  e.Endpoint,
				ErrorKind: e.ErrorKind,
				LatencyMS: e.LatencyMS,
				CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return render(format, errorHeader, rows, errorRecord)

	case KindDocumentUsage:
		var rows []UsageRow
		for _, e := range events {
			for _, ref := range e.SourceRefs() {
				rows = append(rows, UsageRow{
					EventID:   e.EventID,
					UserID:    e.UserID,
					Question:  e.Question,
					Source:    ref.Source,
					Page:      ref.Page,
					CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
		}
		return render(format, usageHeader, rows, usageRecord)

	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
}

var (
	queryHeader = []string{"event_id", "user_id", "question", "top_k", "latency_ms", "success", "error_kind", "sources_count", "created_at"}
	errorHeader = []string{"event_id", "user_id", "endpoint", "error_kind", "latency_ms", "created_at"}
	usageHeader = []string{"event_id", "user_id", "question", "source", "page", "created_at"}
)

func queryRecord(r QueryRow) []string {
	return []string{
		r.EventID, r.UserID, r.Question,
		strconv.Itoa(r.TopK),
		formatFloat(r.LatencyMS),
		strconv.FormatBool(r.Success),
		r.ErrorKind,
		strconv.Itoa(r.SourcesCount),
		r.CreatedAt,
	}
}

func errorRecord(r ErrorRow) []string {
	return []string{r.EventID, r.UserID, r.Endpoint, r.ErrorKind, formatFloat(r.LatencyMS), r.CreatedAt}
}

func usageRecord(r UsageRow) []string {
	return []string{r.EventID, r.UserID, r.Question, r.Source, strconv.Itoa(r.Page), r.CreatedAt}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func render[T any](format string, header []string, rows []T, record func(T) []string) ([]byte, error) {
	switch format {
	case FormatJSON:
		if rows == nil {
			rows = []T{}
		}
		return json.Marshal(rows)
	case FormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		for _, row := range rows {
			if err := w.Write(record(row)); err != nil {
				return nil, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
