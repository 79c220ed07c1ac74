package interfaces

import (
	"context"
	"errors"

	tasksErrors "github.com/sebuszqo/TaskManager/internal/tasks/errors"
)

type createdCategory struct {
	userID uint
	name   string
}

type MockCategoryService struct {
	names      []string
	created    []createdCategory
	shouldFail bool
}

func (m *MockCategoryService) GetUserCategoryNames(_ context.Context, _ uint) ([]string, error) {
	if m.shouldFail {
		return nil, errors.New("service error")
	}
	return m.names, nil
}

func (m *MockCategoryService) CreateUserCategory(_ context.Context, userID uint, name string) error {
	if name == "" || len([]rune(name)) > 50 {
		return tasksErrors.ErrInvalidCategoryName
	}
	if m.shouldFail {
		return errors.New("service error")
	}
	m.created = append(m.created, createdCategory{userID: userID, name: name})
	return nil
}
