package model

import (
	"time"
)

const (
	JobStatusQueued     = "Queued"
	JobStatusProcessing = "Processing"
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed"
)

type ExportJob struct {
	ID          string       `json:"id"`
	RequestedBy string       `json:"requested_by"`
	Resource    string       `json:"resource"` // a table name
	Params      ExportParams `json:"params"`
	Status      string       `json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   *string      `json:"last_error,omitempty"`
	Result      *string      `json:"-"` // CSV, served by the download endpoint
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ExportParams freezes the listing state at the moment the export was requested.
type ExportParams struct {
	Search  string   `json:"search,omitempty"`
	SortBy  string   `json:"sort_by,omitempty"`
	Order   string   `json:"order,omitempty"`
	Columns []string `json:"columns"`
}

func (j *ExportJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
