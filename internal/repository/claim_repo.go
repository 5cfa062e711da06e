package repository

import (
	"context"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimFilter narrows ClaimRepository.List
type ClaimFilter struct {
	ClientCompanyUUID *uuid.UUID
	Stage             model.ClaimStage
}

// ClaimRepository is data access for claim packs and their adjustments
type ClaimRepository interface {
	Create(ctx context.Context, claim *model.ClaimPack) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.ClaimPack, error)
	GetByID(ctx context.Context, id uint) (*model.ClaimPack, error)
	GetByPeriodID(ctx context.Context, periodID uint) (*model.ClaimPack, error)
	List(ctx context.Context, filter ClaimFilter) ([]model.ClaimPack, error)
	Update(ctx context.Context, claim *model.ClaimPack) error

	CreateAdjustment(ctx context.Context, adj *model.ClaimAdjustment) error
	ListAdjustments(ctx context.Context, claimID uint) ([]model.ClaimAdjustment, error)
}

type claimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Create(ctx context.Context, claim *model.ClaimPack) error {
	return GetDB(ctx, r.db).Create(claim).Error
}

func (r *claimRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.ClaimPack, error) {
	var claim model.ClaimPack
	if err := GetDB(ctx, r.db).First(&claim, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) GetByID(ctx context.Context, id uint) (*model.ClaimPack, error) {
	var claim model.ClaimPack
	if err := GetDB(ctx, r.db).First(&claim, id).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) GetByPeriodID(ctx context.Context, periodID uint) (*model.ClaimPack, error) {
	var claim model.ClaimPack
	if err := GetDB(ctx, r.db).First(&claim, "accounting_period_id = ?", periodID).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) List(ctx context.Context, filter ClaimFilter) ([]model.ClaimPack, error) {
	var claims []model.ClaimPack
	query := GetDB(ctx, r.db).Model(&model.ClaimPack{})
	if filter.ClientCompanyUUID != nil {
		query = query.Where("client_company_uuid = ?", *filter.ClientCompanyUUID)
	}
	if filter.Stage != "" {
		query = query.Where("current_stage = ?", filter.Stage)
	}
	if err := query.Order("updated_at desc").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *claimRepository) Update(ctx context.Context, claim *model.ClaimPack) error {
	return GetDB(ctx, r.db).Save(claim).Error
}

func (r *claimRepository) CreateAdjustment(ctx context.Context, adj *model.ClaimAdjustment) error {
	return GetDB(ctx, r.db).Create(adj).Error
}

func (r *claimRepository) ListAdjustments(ctx context.Context, claimID uint) ([]model.ClaimAdjustment, error) {
	var adjs []model.ClaimAdjustment
	err := GetDB(ctx, r.db).Where("claim_pack_id = ?", claimID).Order("created_at asc").Find(&adjs).Error
	return adjs, err
}
