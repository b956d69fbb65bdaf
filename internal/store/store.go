package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/persys-dev/workflow-watch/internal/logging"
	"github.com/persys-dev/workflow-watch/internal/models"
)

var storeLogger = logging.C("store")

// Store wraps the shared SQLite file. Reads go straight to gorm's pool;
// writes are serialized through mu because SQLite allows a single writer.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.WorkflowRun{}); err != nil {
		return nil, fmt.Errorf("migrating workflow_runs: %w", err)
	}
	storeLogger.WithField("path", path).Info("database initialized")
	return &Store{db: db}, nil
}

// Upsert inserts rec or, when a row with the same (repository_name,
// workflow_id, run_id) exists, updates its mutable fields in place.
// created_at is set once; updated_at refreshes on every write.
func (s *Store) Upsert(rec *models.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.db.Where("repository_name = ? AND workflow_id = ?", rec.RepositoryName, rec.WorkflowID)
	if rec.RunID == nil {
		q = q.Where("run_id IS NULL")
	} else {
		q = q.Where("run_id = ?", *rec.RunID)
	}

	var existing models.WorkflowRun
	err := q.First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"workflow_name":       rec.WorkflowName,
			"workflow_conclusion": rec.WorkflowConclusion,
			"run_number":          rec.RunNumber,
			"run_url":             rec.RunURL,
			"head_branch":         rec.HeadBranch,
			"updated_at":          time.Now().UTC(),
		}
		if err := s.db.Model(&models.WorkflowRun{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating workflow run %d: %w", existing.ID, err)
		}
		rec.ID = existing.ID
		storeLogger.Infof("updated workflow run: %s/%s (run %v)", rec.RepositoryName, rec.WorkflowName, deref(rec.RunID))
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now().UTC()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if err := s.db.Create(rec).Error; err != nil {
			return fmt.Errorf("inserting workflow run: %w", err)
		}
		storeLogger.Infof("inserted workflow run: %s/%s (run %v)", rec.RepositoryName, rec.WorkflowName, deref(rec.RunID))
	default:
		return fmt.Errorf("looking up workflow run: %w", err)
	}
	return nil
}

// Recent returns up to limit rows ordered by creation time, newest first,
// optionally filtered by a case-insensitive repository substring.
func (s *Store) Recent(limit int, repoSubstring string) ([]models.WorkflowRun, error) {
	var runs []models.WorkflowRun
	q := s.db.Order("created_at DESC").Limit(limit)
	if repoSubstring != "" {
		q = q.Where("repository_name LIKE ?", "%"+repoSubstring+"%")
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("querying recent workflow runs: %w", err)
	}
	return runs, nil
}

// Filter narrows the dashboard view. A zero Filter matches everything.
type Filter struct {
	// Half-open window [Since, Until) on updated_at; nil means unbounded.
	Since *time.Time
	Until *time.Time
	// Conclusion equality; rows whose id is in IncludeIDs match regardless,
	// so a row that just changed status survives one more refresh.
	Conclusion string
	IncludeIDs []int64
}

// Filtered returns matching rows ordered by updated_at, newest first.
func (s *Store) Filtered(f Filter) ([]models.WorkflowRun, error) {
	q := s.db.Order("updated_at DESC")
	if f.Since != nil {
		q = q.Where("updated_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("updated_at < ?", *f.Until)
	}
	if f.Conclusion != "" {
		if len(f.IncludeIDs) > 0 {
			q = q.Where("workflow_conclusion = ? OR id IN ?", f.Conclusion, f.IncludeIDs)
		} else {
			q = q.Where("workflow_conclusion = ?", f.Conclusion)
		}
	}
	var runs []models.WorkflowRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("querying filtered workflow runs: %w", err)
	}
	return runs, nil
}

// LatestUpdate returns the newest updated_at across all rows, or nil when
// the table is empty. The dashboard poller uses it for change detection.
func (s *Store) LatestUpdate() (*time.Time, error) {
	var rec models.WorkflowRun
	err := s.db.Order("updated_at DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest update: %w", err)
	}
	ts := rec.UpdatedAt
	return &ts, nil
}

func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func deref(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
