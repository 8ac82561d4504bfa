package model

import "time"

// Document is one ingested PDF. ContentHash is the version marker used to
// decide whether a re-ingestion may be skipped.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Source      string    `gorm:"size:512;not null;uniqueIndex" json:"source"`
	ContentHash string    `gorm:"size:64;not null" json:"content_hash"`
	PageCount   int       `json:"page_count"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
