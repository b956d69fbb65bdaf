package models

// Webhook payload schemas for the two supported GitHub event kinds. Each is
// declared up front with its required and optional fields; anything that does
// not parse into one of them is rejected at the handler.

const (
	EventWorkflowRun = "workflow_run"
	EventWorkflowJob = "workflow_job"
)

type RepositoryPayload struct {
	FullName string `json:"full_name"`
}

type WorkflowRunPayload struct {
	WorkflowID int64   `json:"workflow_id"`
	Name       string  `json:"name"`
	Conclusion *string `json:"conclusion"`
	ID         *int64  `json:"id"`
	RunNumber  *int64  `json:"run_number"`
	HTMLURL    *string `json:"html_url"`
	HeadBranch *string `json:"head_branch"`
}

type WorkflowJobPayload struct {
	ID           int64   `json:"id"`
	RunID        *int64  `json:"run_id"`
	RunURL       *string `json:"run_url"`
	WorkflowName *string `json:"workflow_name"`
	Name         *string `json:"name"`
	Conclusion   *string `json:"conclusion"`
	HeadBranch   *string `json:"head_branch"`
}

type WorkflowRunEvent struct {
	Repository  RepositoryPayload  `json:"repository"`
	WorkflowRun WorkflowRunPayload `json:"workflow_run"`
}

type WorkflowJobEvent struct {
	Repository  RepositoryPayload  `json:"repository"`
	WorkflowJob WorkflowJobPayload `json:"workflow_job"`
}
