package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/timmy/clipshard/internal/domain"
)

// RunRepository handles pipeline run catalog operations.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Finish persists the final state of a run: status, counters and
// completion time.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record with final fields set.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Finish(ctx context.Context, run *domain.Run) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.Run: run record if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent retrieves the most recently started runs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.Run: matching run records, newest first.
//   - error: non-nil if the query fails.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	var runs []domain.Run
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// ListByKind retrieves runs of one pipeline kind with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: pipeline kind to filter by.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Run: matching run records, newest first.
//   - error: non-nil if the query fails.
func (r *RunRepository) ListByKind(ctx context.Context, kind domain.RunKind, limit, offset int) ([]domain.Run, error) {
	var runs []domain.Run
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
