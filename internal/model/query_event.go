package model

import (
	"encoding/json"
	"time"
)

// SourceRef is one cited source: the document it came from and the page.
type SourceRef struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// QueryEvent is the immutable log record of one query's outcome. It is
// append-only; all aggregate statistics are recomputed from these rows.
type QueryEvent struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	EventID   string    `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	UserID    string    `gorm:"size:128;index" json:"user_id"`
	Question  string    `gorm:"type:text" json:"question"`
	TopK      int       `json:"top_k"`
	Endpoint  string    `gorm:"size:128" json:"endpoint"`
	Success   bool      `gorm:"index" json:"success"`
	ErrorKind string    `gorm:"size:64" json:"error_kind"`
	LatencyMS float64   `json:"latency_ms"`
	Sources   string    `gorm:"type:text" json:"sources"` // JSON array of SourceRef
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// SourceRefs returns the parsed source list; empty on parse error.
func (e *QueryEvent) SourceRefs() []SourceRef {
	if e.Sources == "" {
		return nil
	}
	var refs []SourceRef
	_ = json.Unmarshal([]byte(e.Sources), &refs)
	return refs
}

// SetSources stores the source list as JSON.
func (e *QueryEvent) SetSources(refs []SourceRef) {
	if len(refs) == 0 {
		e.Sources = "[]"
		return
	}
	b, _ := json.Marshal(refs)
	e.Sources = string(b)
}
