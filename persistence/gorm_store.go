package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/restoraworks/reportflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TxRunner executes fn inside a database transaction. The default runner
// uses gorm's plain Transaction; production wiring injects the pool
// manager's retrying runner so deadlocks and serialization failures under
// concurrent polls are retried rather than surfaced. fn must be safe to
// re-run: a retried transaction starts from scratch.
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

// GormStore implements Store on top of gorm. Transitions are expressed as
// conditional UPDATEs so concurrency control lives in the database, not in
// process memory.
type GormStore struct {
	db     *gorm.DB
	runTx  TxRunner
	logger *zap.Logger
}

// GormStoreOption configures a GormStore.
type GormStoreOption func(*GormStore)

// WithTxRunner replaces the store's transaction runner.
func WithTxRunner(r TxRunner) GormStoreOption {
	return func(s *GormStore) {
		if r != nil {
			s.runTx = r
		}
	}
}

// NewGormStore creates a store backed by the given gorm handle.
func NewGormStore(db *gorm.DB, logger *zap.Logger, opts ...GormStoreOption) *GormStore {
	s := &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "workflow_store")),
	}
	s.runTx = func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return db.WithContext(ctx).Transaction(fn)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates the schema via gorm. Production deployments run the
// SQL migrations in internal/migration instead; tests use this directly.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&WorkflowRecord{}, &TaskRecord{}, &AgentDefinitionRecord{})
}

// CreateWorkflow persists a workflow and its initial task set atomically.
func (s *GormStore) CreateWorkflow(ctx context.Context, wf *types.Workflow, tasks []*types.Task) error {
	return s.runTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(toWorkflowRecord(wf)).Error; err != nil {
			return err
		}
		for _, t := range tasks {
			if err := tx.Create(toTaskRecord(t)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetWorkflow retrieves a workflow by ID.
func (s *GormStore) GetWorkflow(ctx context.Context, id string) (*types.Workflow, error) {
	var rec WorkflowRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError("workflow not found")
	}
	if err != nil {
		return nil, err
	}
	return rec.toWorkflow(), nil
}

// GetWorkflowForUser retrieves a workflow scoped to its owner. A foreign
// workflow surfaces the same NOT_FOUND as an absent one.
func (s *GormStore) GetWorkflowForUser(ctx context.Context, id, userID string) (*types.Workflow, error) {
	var rec WorkflowRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFoundError("workflow not found")
	}
	if err != nil {
		return nil, err
	}
	return rec.toWorkflow(), nil
}

// ListTasks returns every task of a workflow, oldest first.
func (s *GormStore) ListTasks(ctx context.Context, workflowID string) ([]*types.Task, error) {
	var recs []TaskRecord
	if err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	tasks := make([]*types.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toTask())
	}
	return tasks, nil
}

// ListTasksByStatus returns the workflow's tasks in the given status.
func (s *GormStore) ListTasksByStatus(ctx context.Context, workflowID string, status types.TaskStatus) ([]*types.Task, error) {
	var recs []TaskRecord
	if err := s.db.WithContext(ctx).
		Where("workflow_id = ? AND status = ?", workflowID, string(status)).
		Order("created_at ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	tasks := make([]*types.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].toTask())
	}
	return tasks, nil
}

// PromoteTask compare-and-sets PENDING -> READY.
func (s *GormStore) PromoteTask(ctx context.Context, taskID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&TaskRecord{}).
		Where("id = ? AND status = ?", taskID, string(types.TaskStatusPending)).
		Updates(map[string]any{
			"status":     string(types.TaskStatusReady),
			"updated_at": time.Now(),
		})
	return res.RowsAffected > 0, res.Error
}

// ClaimTask compare-and-sets READY -> RUNNING. The WHERE clause is the
// guard against double-dispatch by concurrent polls.
func (s *GormStore) ClaimTask(ctx context.Context, taskID string) (bool, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&TaskRecord{}).
		Where("id = ? AND status = ?", taskID, string(types.TaskStatusReady)).
		Updates(map[string]any{
			"status":     string(types.TaskStatusRunning),
			"started_at": now,
			"updated_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

// CompleteTask applies a success result. The surrounding transaction
// re-reads the workflow: results landing after cancellation (or any other
// departure from RUNNING) are discarded.
func (s *GormStore) CompleteTask(ctx context.Context, workflowID, taskID string, output map[string]any) (bool, error) {
	return s.applyResult(ctx, workflowID, taskID, func(tx *gorm.DB, now time.Time) *gorm.DB {
		return tx.Model(&TaskRecord{}).
			Where("id = ? AND status = ?", taskID, string(types.TaskStatusRunning)).
			Updates(map[string]any{
				"status":       string(types.TaskStatusCompleted),
				"output":       marshalJSON(output),
				"error":        "",
				"completed_at": now,
				"updated_at":   now,
			})
	}, "completed_tasks")
}

// FailTask applies a failure result with the same cancellation semantics
// as CompleteTask.
func (s *GormStore) FailTask(ctx context.Context, workflowID, taskID, errMsg string) (bool, error) {
	return s.applyResult(ctx, workflowID, taskID, func(tx *gorm.DB, now time.Time) *gorm.DB {
		return tx.Model(&TaskRecord{}).
			Where("id = ? AND status = ?", taskID, string(types.TaskStatusRunning)).
			Updates(map[string]any{
				"status":       string(types.TaskStatusFailed),
				"error":        errMsg,
				"completed_at": now,
				"updated_at":   now,
			})
	}, "failed_tasks")
}

// applyResult runs the result-apply transaction shared by CompleteTask and
// FailTask: guard on workflow status, CAS the task row, bump the counter.
func (s *GormStore) applyResult(ctx context.Context, workflowID, taskID string, update func(tx *gorm.DB, now time.Time) *gorm.DB, counter string) (bool, error) {
	applied := false
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		applied = false
		var wf WorkflowRecord
		if err := tx.First(&wf, "id = ?", workflowID).Error; err != nil {
			return err
		}
		if types.WorkflowStatus(wf.Status) != types.WorkflowStatusRunning {
			s.logger.Debug("discarding result for non-running workflow",
				zap.String("workflow_id", workflowID),
				zap.String("task_id", taskID),
				zap.String("workflow_status", wf.Status),
			)
			return nil
		}

		now := time.Now()
		res := update(tx, now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		applied = true
		return tx.Model(&WorkflowRecord{}).
			Where("id = ?", workflowID).
			Updates(map[string]any{
				counter:      gorm.Expr(counter + " + 1"),
				"updated_at": now,
			}).Error
	})
	return applied, err
}

// UpdateWorkflowStatus compare-and-sets the workflow status.
func (s *GormStore) UpdateWorkflowStatus(ctx context.Context, workflowID string, to types.WorkflowStatus, from ...types.WorkflowStatus) (bool, error) {
	q := s.db.WithContext(ctx).Model(&WorkflowRecord{}).Where("id = ?", workflowID)
	if len(from) > 0 {
		states := make([]string, 0, len(from))
		for _, f := range from {
			states = append(states, string(f))
		}
		q = q.Where("status IN ?", states)
	}
	res := q.Updates(map[string]any{
		"status":     string(to),
		"updated_at": time.Now(),
	})
	return res.RowsAffected > 0, res.Error
}

// ResumeWorkflow returns a resumable workflow to RUNNING and re-arms its
// FAILED tasks in the same transaction, so no concurrent poll can observe
// a RUNNING workflow over a still-terminal task set.
func (s *GormStore) ResumeWorkflow(ctx context.Context, workflowID string) (int, bool, error) {
	reset := 0
	resumed := false
	err := s.runTx(ctx, func(tx *gorm.DB) error {
		reset, resumed = 0, false
		now := time.Now()

		wfRes := tx.Model(&WorkflowRecord{}).
			Where("id = ? AND status IN ?", workflowID, []string{
				string(types.WorkflowStatusFailed),
				string(types.WorkflowStatusPartiallyFailed),
				string(types.WorkflowStatusPaused),
			}).
			Updates(map[string]any{
				"status":     string(types.WorkflowStatusRunning),
				"updated_at": now,
			})
		if wfRes.Error != nil {
			return wfRes.Error
		}
		if wfRes.RowsAffected == 0 {
			return nil
		}
		resumed = true

		res := tx.Model(&TaskRecord{}).
			Where("workflow_id = ? AND status = ?", workflowID, string(types.TaskStatusFailed)).
			Updates(map[string]any{
				"status":       string(types.TaskStatusReady),
				"error":        "",
				"completed_at": nil,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		reset = int(res.RowsAffected)
		if reset == 0 {
			return nil
		}
		return tx.Model(&WorkflowRecord{}).
			Where("id = ?", workflowID).
			Updates(map[string]any{
				"failed_tasks": gorm.Expr("failed_tasks - ?", reset),
				"updated_at":   now,
			}).Error
	})
	return reset, resumed, err
}

// UpsertAgentDefinitions mirrors registry definitions, overwriting on slug
// conflict so repeated syncs converge.
func (s *GormStore) UpsertAgentDefinitions(ctx context.Context, defs []types.AgentDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	recs := make([]*AgentDefinitionRecord, 0, len(defs))
	for _, d := range defs {
		recs = append(recs, toDefinitionRecord(d))
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			UpdateAll: true,
		}).
		Create(&recs).Error
}

// ListAgentDefinitions returns synced definitions in slug order.
func (s *GormStore) ListAgentDefinitions(ctx context.Context) ([]types.AgentDefinition, error) {
	var recs []AgentDefinitionRecord
	if err := s.db.WithContext(ctx).Order("slug ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	defs := make([]types.AgentDefinition, 0, len(recs))
	for i := range recs {
		defs = append(defs, recs[i].toDefinition())
	}
	return defs, nil
}
