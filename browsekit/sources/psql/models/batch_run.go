// browsekit/sources/psql/models/batch_run.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRun struct {
	ID           uuid.UUID      `json:"id" gorm:"type:varchar(36);primaryKey"`
	ClientID     string         `json:"client_id" gorm:"type:varchar(255);index"`
	TotalQueries int            `json:"total_queries" gorm:"not null"`
	Succeeded    int            `json:"succeeded" gorm:"not null"`
	Failed       int            `json:"failed" gorm:"not null"`
	StartedAt    time.Time      `json:"started_at" gorm:"not null;index"`
	FinishedAt   time.Time      `json:"finished_at" gorm:"not null"`
	Items        []BatchRunItem `json:"items,omitempty" gorm:"foreignKey:RunID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (BatchRun) TableName() string {
	return "batch_runs"
}

func (r *BatchRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// BatchRunItem is one query's outcome inside a run.
type BatchRunItem struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RunID        uuid.UUID `json:"run_id" gorm:"type:varchar(36);not null;index"`
	Position     int       `json:"position" gorm:"not null"`
	Query        string    `json:"query" gorm:"type:text;not null"`
	Success      bool      `json:"success"`
	ResultsCount int       `json:"results_count"`
	Error        string    `json:"error,omitempty" gorm:"type:text"`
	ElapsedMs    int64     `json:"elapsed_ms"`
}

func (BatchRunItem) TableName() string {
	return "batch_run_items"
}
