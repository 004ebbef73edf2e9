package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/directory"
	"github.com/schoolfund/backend/internal/domain/shared"
	"github.com/schoolfund/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDirectory implements directory.Directory over the users table owned by
// the identity provider and the local employee_details table.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// FindEmployeeByID finds an employee detail by its own ID
func (r *GormDirectory) FindEmployeeByID(ctx context.Context, id uuid.UUID) (*directory.Employee, error) {
	var model models.EmployeeDetailModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEmployeeByUserID finds the employee detail linked to a user
func (r *GormDirectory) FindEmployeeByUserID(ctx context.Context, userID uuid.UUID) (*directory.Employee, error) {
	var model models.EmployeeDetailModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUserByID finds a user
func (r *GormDirectory) FindUserByID(ctx context.Context, id uuid.UUID) (*directory.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CreateEmployee inserts an employee detail
func (r *GormDirectory) CreateEmployee(ctx context.Context, e *directory.Employee) error {
	return r.db.WithContext(ctx).Create(models.EmployeeDetailModelFromDomain(e)).Error
}

var _ directory.Directory = (*GormDirectory)(nil)
