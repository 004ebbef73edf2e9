package ledger

import (
	"strings"

	"github.com/schoolfund/backend/internal/domain/shared"
)

// CategoryType classifies a budget category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
)

// IsValid checks if the category type is valid
func (t CategoryType) IsValid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// String returns the string representation of CategoryType
func (t CategoryType) String() string {
	return string(t)
}

// Category is an income or expense budget classification
type Category struct {
	shared.BaseEntity
	Name        string
	Type        CategoryType
	Description *string
	IsSystem    bool
}

// NewCategory creates a new budget category
func NewCategory(name string, categoryType CategoryType, description *string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Category name cannot be empty")
	}
	if !categoryType.IsValid() {
		return nil, shared.NewValidationError("Category type must be INCOME or EXPENSE")
	}
	return &Category{
		BaseEntity:  shared.NewBaseEntity(),
		Name:        name,
		Type:        categoryType,
		Description: normalizeText(description),
	}, nil
}

// Update overwrites the editable fields that are present
func (c *Category) Update(name *string, categoryType *CategoryType, description *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return shared.NewValidationError("Category name cannot be empty")
		}
		c.Name = trimmed
	}
	if categoryType != nil {
		if !categoryType.IsValid() {
			return shared.NewValidationError("Category type must be INCOME or EXPENSE")
		}
		c.Type = *categoryType
	}
	if description != nil {
		c.Description = normalizeText(description)
	}
	c.Touch()
	return nil
}

// CanDelete checks the system-protection flag
func (c *Category) CanDelete() error {
	if c.IsSystem {
		return shared.NewConstraintError("Cannot delete a system category")
	}
	return nil
}
