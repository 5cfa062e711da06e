package repository

import (
	"context"
	"strings"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientFilter narrows ClientRepository.List
type ClientFilter struct {
	Search          string
	IncludeInactive bool
}

// ClientRepository is data access for client companies
type ClientRepository interface {
	Create(ctx context.Context, client *model.ClientCompany) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.ClientCompany, error)
	GetByCompanyNumber(ctx context.Context, number string) (*model.ClientCompany, error)
	List(ctx context.Context, filter ClientFilter) ([]model.ClientCompany, error)
	ListWithYearEnd(ctx context.Context) ([]model.ClientCompany, error)
	Update(ctx context.Context, client *model.ClientCompany) error
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *model.ClientCompany) error {
	return GetDB(ctx, r.db).Create(client).Error
}

func (r *clientRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.ClientCompany, error) {
	var client model.ClientCompany
	if err := GetDB(ctx, r.db).First(&client, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) GetByCompanyNumber(ctx context.Context, number string) (*model.ClientCompany, error) {
	var client model.ClientCompany
	if err := GetDB(ctx, r.db).First(&client, "company_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]model.ClientCompany, error) {
	var clients []model.ClientCompany

	query := GetDB(ctx, r.db).Model(&model.ClientCompany{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(company_number) LIKE ?", like, like)
	}

	if err := query.Order("name asc").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *clientRepository) ListWithYearEnd(ctx context.Context) ([]model.ClientCompany, error) {
	var clients []model.ClientCompany
	err := GetDB(ctx, r.db).
		Where("is_active = ? AND year_end_month IS NOT NULL AND year_end_day IS NOT NULL", true).
		Order("id asc").
		Find(&clients).Error
	return clients, err
}

func (r *clientRepository) Update(ctx context.Context, client *model.ClientCompany) error {
	return GetDB(ctx, r.db).Save(client).Error
}
