package domain

import (
	"context"
	"time"
)

const MaxCategoryNameLength = 50

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_categories_user_name" json:"user_id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex:idx_categories_user_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

type CategoryRepository interface {
	FindUserCategories(ctx context.Context, userID uint) ([]Category, error)
	InsertUserCategory(ctx context.Context, category *Category) error
}
