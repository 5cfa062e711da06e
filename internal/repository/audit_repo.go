package repository

import (
	"context"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditFilter narrows AuditRepository.List. Limit must already be clamped by the caller.
type AuditFilter struct {
	Category          model.AuditCategory
	ClientCompanyUUID *uuid.UUID
	Limit             int
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog

	query := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ClientCompanyUUID != nil {
		query = query.Where("client_company_uuid = ?", *filter.ClientCompanyUUID)
	}

	if err := query.Order("timestamp desc").Order("id desc").Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
