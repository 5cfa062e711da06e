package repository

import (
	"context"
	"strings"

	"taxengine/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines data access for workspace profiles
type UserRepository interface {
	Create(ctx context.Context, user *model.TaxEngineUser) error
	GetByUUID(ctx context.Context, id uuid.UUID) (*model.TaxEngineUser, error)
	GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error)
	GetByEmail(ctx context.Context, email string) (*model.TaxEngineUser, error)
	List(ctx context.Context) ([]model.TaxEngineUser, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, user *model.TaxEngineUser) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.TaxEngineUser) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.TaxEngineUser, error) {
	var user model.TaxEngineUser
	if err := GetDB(ctx, r.db).First(&user, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByAuthUserID(ctx context.Context, authUserID uuid.UUID) (*model.TaxEngineUser, error) {
	var user model.TaxEngineUser
	if err := GetDB(ctx, r.db).First(&user, "auth_user_id = ?", authUserID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.TaxEngineUser, error) {
	var user model.TaxEngineUser
	if err := GetDB(ctx, r.db).First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.TaxEngineUser, error) {
	var users []model.TaxEngineUser
	err := GetDB(ctx, r.db).Order("created_at asc").Find(&users).Error
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.TaxEngineUser{}).Count(&total).Error
	return total, err
}

func (r *userRepository) Update(ctx context.Context, user *model.TaxEngineUser) error {
	return GetDB(ctx, r.db).Save(user).Error
}
