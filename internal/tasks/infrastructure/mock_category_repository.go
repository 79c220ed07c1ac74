package infrastructure

import (
	"context"
	"errors"

	"github.com/sebuszqo/TaskManager/internal/tasks/domain"
)

var ErrMockInsertFailed = errors.New("insert failed")

type MockCategoryRepository struct {
	Categories []domain.Category
	FailInsert bool
	FailFind   bool
}

func (m *MockCategoryRepository) FindUserCategories(_ context.Context, userID uint) ([]domain.Category, error) {
	if m.FailFind {
		return nil, errors.New("find failed")
	}
	var result []domain.Category
	for _, c := range m.Categories {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockCategoryRepository) InsertUserCategory(_ context.Context, category *domain.Category) error {
	if m.FailInsert {
		return ErrMockInsertFailed
	}
	category.ID = uint(len(m.Categories) + 1)
	m.Categories = append(m.Categories, *category)
	return nil
}
