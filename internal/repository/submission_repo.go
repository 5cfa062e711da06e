package repository

import (
	"context"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	List(ctx context.Context, claimPackUUID *uuid.UUID) ([]model.Submission, error)
	Update(ctx context.Context, sub *model.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	if err := GetDB(ctx, r.db).First(&sub, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) List(ctx context.Context, claimPackUUID *uuid.UUID) ([]model.Submission, error) {
	var subs []model.Submission
	query := GetDB(ctx, r.db).Model(&model.Submission{})
	if claimPackUUID != nil {
		query = query.Where("claim_pack_uuid = ?", *claimPackUUID)
	}
	if err := query.Order("created_at desc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *submissionRepository) Update(ctx context.Context, sub *model.Submission) error {
	return GetDB(ctx, r.db).Save(sub).Error
}
