package repository

import (
	"context"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, tpl *model.Template) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.Template, error)
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	List(ctx context.Context, kind string) ([]model.Template, error)
	Update(ctx context.Context, tpl *model.Template) error
	Delete(ctx context.Context, id uint) error
}

type templateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, tpl *model.Template) error {
	return GetDB(ctx, r.db).Create(tpl).Error
}

func (r *templateRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Template, error) {
	var tpl model.Template
	if err := GetDB(ctx, r.db).First(&tpl, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *templateRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Template{}).
		Where("slug = ? AND id <> ?", slug, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *templateRepository) List(ctx context.Context, kind string) ([]model.Template, error) {
	var tpls []model.Template
	query := GetDB(ctx, r.db).Model(&model.Template{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("name asc").Find(&tpls).Error
	return tpls, err
}

func (r *templateRepository) Update(ctx context.Context, tpl *model.Template) error {
	return GetDB(ctx, r.db).Save(tpl).Error
}

func (r *templateRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.Template{}, id).Error
}
