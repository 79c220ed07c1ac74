package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sebuszqo/TaskManager/internal/auth"
	tasksErrors "github.com/sebuszqo/TaskManager/internal/tasks/errors"
)

type CategoryServiceInterface interface {
	GetUserCategoryNames(ctx context.Context, userID uint) ([]string, error)
	CreateUserCategory(ctx context.Context, userID uint, name string) error
}

type CategoryHandler struct {
	service      CategoryServiceInterface
	logger       *zap.Logger
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string)
}

func NewCategoryHandler(
	service CategoryServiceInterface,
	logger *zap.Logger,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string),
) *CategoryHandler {
	if service == nil || logger == nil || respondJSON == nil || respondError == nil {
		panic("Service, logger and response functions must not be nil")
	}
	return &CategoryHandler{
		service:      service,
		logger:       logger,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	names, err := h.service.GetUserCategoryNames(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to retrieve categories", zap.Uint("user_id", userID), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}

	h.respondJSON(w, http.StatusOK, names)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Name is decoded loosely so a non-string value is a validation failure
	// rather than a decoding one.
	var req struct {
		Name interface{} `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	name, ok := req.Name.(string)
	if !ok {
		h.respondError(w, http.StatusBadRequest, tasksErrors.ErrInvalidCategoryName.Error())
		return
	}

	if err := h.service.CreateUserCategory(r.Context(), userID, name); err != nil {
		if tasksErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to create category", zap.Uint("user_id", userID), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
