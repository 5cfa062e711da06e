package repository

import (
	"context"
	"time"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PeriodRepository is data access for accounting periods
type PeriodRepository interface {
	Create(ctx context.Context, period *model.AccountingPeriod) error
	CreateBatch(ctx context.Context, periods []model.AccountingPeriod) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.AccountingPeriod, error)
	List(ctx context.Context, clientCompanyUUID *uuid.UUID) ([]model.AccountingPeriod, error)
	ListByClient(ctx context.Context, clientID uint) ([]model.AccountingPeriod, error)
	ExistsWithEndDate(ctx context.Context, clientID uint, end time.Time) (bool, error)
	Update(ctx context.Context, period *model.AccountingPeriod) error
}

type periodRepository struct {
	db *gorm.DB
}

func NewPeriodRepository(db *gorm.DB) PeriodRepository {
	return &periodRepository{db: db}
}

func (r *periodRepository) Create(ctx context.Context, period *model.AccountingPeriod) error {
	return GetDB(ctx, r.db).Create(period).Error
}

func (r *periodRepository) CreateBatch(ctx context.Context, periods []model.AccountingPeriod) error {
	if len(periods) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&periods).Error
}

func (r *periodRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.AccountingPeriod, error) {
	var period model.AccountingPeriod
	if err := GetDB(ctx, r.db).First(&period, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepository) List(ctx context.Context, clientCompanyUUID *uuid.UUID) ([]model.AccountingPeriod, error) {
	var periods []model.AccountingPeriod
	query := GetDB(ctx, r.db).Model(&model.AccountingPeriod{})
	if clientCompanyUUID != nil {
		query = query.Where("client_company_uuid = ?", *clientCompanyUUID)
	}
	if err := query.Order("end_date desc").Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *periodRepository) ListByClient(ctx context.Context, clientID uint) ([]model.AccountingPeriod, error) {
	var periods []model.AccountingPeriod
	err := GetDB(ctx, r.db).Where("client_company_id = ?", clientID).Order("end_date desc").Find(&periods).Error
	return periods, err
}

func (r *periodRepository) ExistsWithEndDate(ctx context.Context, clientID uint, end time.Time) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.AccountingPeriod{}).
		Where("client_company_id = ? AND end_date = ?", clientID, end.Format("2006-01-02")).
		Count(&count).Error
	return count > 0, err
}

func (r *periodRepository) Update(ctx context.Context, period *model.AccountingPeriod) error {
	return GetDB(ctx, r.db).Save(period).Error
}
