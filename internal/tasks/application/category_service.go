package application

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sebuszqo/TaskManager/internal/metrics"
	"github.com/sebuszqo/TaskManager/internal/tasks/domain"
	tasksErrors "github.com/sebuszqo/TaskManager/internal/tasks/errors"
)

type newCategory struct {
	// max is domain.MaxCategoryNameLength, counted in runes.
	Name string `validate:"required,max=50"`
}

type CategoryService struct {
	repo     domain.CategoryRepository
	validate *validator.Validate
	logger   *zap.Logger

	// suppressInsertErrors keeps failed inserts invisible to the caller.
	// Pending product review; see SUPPRESS_INSERT_ERRORS.
	suppressInsertErrors bool
}

func NewCategoryService(repo domain.CategoryRepository, logger *zap.Logger, suppressInsertErrors bool) *CategoryService {
	return &CategoryService{
		repo:                 repo,
		validate:             validator.New(),
		logger:               logger,
		suppressInsertErrors: suppressInsertErrors,
	}
}

func (s *CategoryService) GetUserCategoryNames(ctx context.Context, userID uint) ([]string, error) {
	categories, err := s.repo.FindUserCategories(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, category.Name)
	}
	return names, nil
}

func (s *CategoryService) CreateUserCategory(ctx context.Context, userID uint, name string) error {
	if err := s.validate.Struct(newCategory{Name: name}); err != nil {
		return tasksErrors.ErrInvalidCategoryName
	}

	err := s.repo.InsertUserCategory(ctx, &domain.Category{UserID: userID, Name: name})
	if err == nil {
		return nil
	}

	if s.suppressInsertErrors {
		metrics.CategoryInsertFailures.WithLabelValues("true").Inc()
		s.logger.Warn("Category insert failed, reporting success",
			zap.Uint("user_id", userID), zap.String("name", name), zap.Error(err))
		return nil
	}
	metrics.CategoryInsertFailures.WithLabelValues("false").Inc()
	return err
}
