package models

import (
	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/directory"
)

// UserModel is the read-only projection of the identity provider's users table
type UserModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Username    string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	DisplayName string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a directory User
func (m *UserModel) ToDomain() *directory.User {
	return &directory.User{
		ID:          m.ID,
		Username:    m.Username,
		DisplayName: m.DisplayName,
	}
}

// EmployeeDetailModel is the persistence model for a staff detail record
type EmployeeDetailModel struct {
	BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FullName string    `gorm:"type:varchar(200);not null"`
	Position string    `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (EmployeeDetailModel) TableName() string {
	return "employee_details"
}

// ToDomain converts the persistence model to a directory Employee
func (m *EmployeeDetailModel) ToDomain() *directory.Employee {
	return &directory.Employee{
		BaseEntity: m.Entity(),
		UserID:     m.UserID,
		FullName:   m.FullName,
		Position:   m.Position,
	}
}

// EmployeeDetailModelFromDomain creates a new persistence model from domain
func EmployeeDetailModelFromDomain(e *directory.Employee) *EmployeeDetailModel {
	m := &EmployeeDetailModel{
		UserID:   e.UserID,
		FullName: e.FullName,
		Position: e.Position,
	}
	m.SetEntity(e.BaseEntity)
	return m
}
