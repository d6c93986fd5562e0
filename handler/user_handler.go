package handler

import (
	"context"
	"errors"
	"knoword-api/common"
	"knoword-api/model"
	"knoword-api/service"
	"net/http"
)

type IUserService interface {
	GetProfile(ctx context.Context, id int) (*model.UserSummary, error)
}

type UserHandler struct {
	service IUserService
}

func NewUserHandler(service IUserService) *UserHandler {
	return &UserHandler{service: service}
}

// Me godoc
// @Summary      Current user
// @Description  Returns the profile of the authenticated user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.UserSummary
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /users/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := userIDFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", nil)
	case err != nil:
		return common.NewAppError(http.StatusInternalServerError, "Could not load user", err)
	}

	common.WriteJSON(w, http.StatusOK, profile)
	return nil
}
