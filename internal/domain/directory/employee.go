// Package directory is the read-mostly boundary to the staff directory owned
// by the identity provider.
package directory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/schoolfund/backend/internal/domain/shared"
)

// User is a login identity known to the identity provider
type User struct {
	ID          uuid.UUID
	Username    string
	DisplayName string
}

// Employee is the staff detail record a loan borrower links to
type Employee struct {
	shared.BaseEntity
	UserID   uuid.UUID
	FullName string
	Position string
}

// NewEmployeeForUser builds the minimal employee detail for a known user
func NewEmployeeForUser(u *User) *Employee {
	name := strings.TrimSpace(u.DisplayName)
	if name == "" {
		name = u.Username
	}
	return &Employee{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     u.ID,
		FullName:   name,
	}
}

// Directory looks up users and employee details
type Directory interface {
	// FindEmployeeByID finds an employee detail by its own ID
	FindEmployeeByID(ctx context.Context, id uuid.UUID) (*Employee, error)

	// FindEmployeeByUserID finds the employee detail linked to a user
	FindEmployeeByUserID(ctx context.Context, userID uuid.UUID) (*Employee, error)

	// FindUserByID finds a user
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// CreateEmployee inserts an employee detail
	CreateEmployee(ctx context.Context, e *Employee) error
}

// ResolveEmployee resolves a borrower reference: first as an employee detail
// ID, then as a user ID. A known user without a detail record gets a minimal
// one created on the directory's behalf.
func ResolveEmployee(ctx context.Context, dir Directory, ref uuid.UUID) (*Employee, error) {
	emp, err := dir.FindEmployeeByID(ctx, ref)
	if err == nil {
		return emp, nil
	}
	if !shared.IsCode(err, shared.CodeNotFound) {
		return nil, err
	}

	emp, err = dir.FindEmployeeByUserID(ctx, ref)
	if err == nil {
		return emp, nil
	}
	if !shared.IsCode(err, shared.CodeNotFound) {
		return nil, err
	}

	user, err := dir.FindUserByID(ctx, ref)
	if err != nil {
		if shared.IsCode(err, shared.CodeNotFound) {
			return nil, shared.NewNotFoundError("Employee or user %s not found", ref)
		}
		return nil, err
	}
	emp = NewEmployeeForUser(user)
	if err := dir.CreateEmployee(ctx, emp); err != nil {
		return nil, err
	}
	return emp, nil
}
