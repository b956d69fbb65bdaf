package models

import "time"

// WorkflowRun is the single persisted entity. A logical record is identified
// by (repository_name, workflow_id, run_id); later events for the same triple
// update the row in place.
type WorkflowRun struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RepositoryName     string    `gorm:"not null;index:idx_repository_workflow,priority:1" json:"repository_name"`
	WorkflowID         int64     `gorm:"not null;index:idx_repository_workflow,priority:2" json:"workflow_id"`
	WorkflowName       string    `gorm:"not null" json:"workflow_name"`
	WorkflowConclusion *string   `json:"workflow_conclusion"`
	RunID              *int64    `json:"run_id"`
	RunNumber          *int64    `json:"run_number"`
	RunURL             *string   `json:"run_url"`
	HeadBranch         *string   `json:"head_branch"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (WorkflowRun) TableName() string { return "workflow_runs" }

const (
	ConclusionSuccess = "success"
	ConclusionFailed  = "failed"
	ConclusionPending = "pending"
)
