package repository

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRepository is data access for processing jobs
type JobRepository interface {
	Create(ctx context.Context, job *model.ProcessingJob) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.ProcessingJob, error)
	ListQueued(ctx context.Context, limit int) ([]model.ProcessingJob, error)
	// Claim moves a queued job to running. It returns false when another
	// worker took the job first.
	Claim(ctx context.Context, job *model.ProcessingJob, at time.Time) (bool, error)
	HasActive(ctx context.Context, claimID uint, kind string) (bool, error)
	// ListStale returns running jobs last touched before cutoff, oldest first
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error)
	Update(ctx context.Context, job *model.ProcessingJob) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *model.ProcessingJob) error {
	return GetDB(ctx, r.db).Create(job).Error
}

func (r *jobRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.ProcessingJob, error) {
	var job model.ProcessingJob
	if err := GetDB(ctx, r.db).First(&job, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ListQueued(ctx context.Context, limit int) ([]model.ProcessingJob, error) {
	var jobs []model.ProcessingJob
	err := GetDB(ctx, r.db).
		Where("status = ?", model.JobQueued).
		Order("created_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) Claim(ctx context.Context, job *model.ProcessingJob, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.ProcessingJob{}).
		Where("id = ? AND status = ?", job.ID, model.JobQueued).
		Updates(map[string]interface{}{"status": model.JobRunning, "started_at": at, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	job.Status = model.JobRunning
	job.StartedAt = &at
	job.UpdatedAt = at
	return true, nil
}

func (r *jobRepository) HasActive(ctx context.Context, claimID uint, kind string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.ProcessingJob{}).
		Where("claim_pack_id = ? AND kind = ? AND status IN ?", claimID, kind, []string{model.JobQueued, model.JobRunning}).
		Count(&count).Error
	return count > 0, err
}

func (r *jobRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]model.ProcessingJob, error) {
	var jobs []model.ProcessingJob
	err := GetDB(ctx, r.db).
		Where("status = ? AND updated_at < ?", model.JobRunning, cutoff).
		Order("updated_at asc").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) Update(ctx context.Context, job *model.ProcessingJob) error {
	return GetDB(ctx, r.db).Save(job).Error
}
