package dashboard

import (
	"time"

	"github.com/persys-dev/workflow-watch/internal/models"
	"github.com/persys-dev/workflow-watch/internal/store"
)

const (
	StatusCompleted  = "completed"
	StatusInProgress = "in_progress"
)

// View is the row shape pushed to dashboard clients: workflow_name and
// workflow_conclusion are flattened to name/conclusion, plus a derived
// status field.
type View struct {
	ID             int64     `json:"id"`
	RepositoryName string    `json:"repository_name"`
	WorkflowID     int64     `json:"workflow_id"`
	Name           string    `json:"name"`
	Conclusion     *string   `json:"conclusion"`
	RunID          *int64    `json:"run_id"`
	RunNumber      *int64    `json:"run_number"`
	RunURL         *string   `json:"run_url"`
	HeadBranch     *string   `json:"head_branch"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Status         string    `json:"status"`
}

func toView(run models.WorkflowRun) View {
	status := StatusInProgress
	if c := run.WorkflowConclusion; c != nil && (*c == models.ConclusionSuccess || *c == models.ConclusionFailed) {
		status = StatusCompleted
	}
	return View{
		ID:             run.ID,
		RepositoryName: run.RepositoryName,
		WorkflowID:     run.WorkflowID,
		Name:           run.WorkflowName,
		Conclusion:     run.WorkflowConclusion,
		RunID:          run.RunID,
		RunNumber:      run.RunNumber,
		RunURL:         run.RunURL,
		HeadBranch:     run.HeadBranch,
		CreatedAt:      run.CreatedAt,
		UpdatedAt:      run.UpdatedAt,
		Status:         status,
	}
}

// fetchViews runs a filter request against the store and maps the rows.
func fetchViews(st *store.Store, req FilterRequest) ([]View, error) {
	runs, err := st.Filtered(buildFilter(req, time.Now().UTC()))
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(runs))
	for _, run := range runs {
		views = append(views, toView(run))
	}
	return views, nil
}
