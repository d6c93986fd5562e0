package service

import (
	"context"
	"errors"
	"fmt"
	"knoword-api/model"
	"knoword-api/repository"
)

type IUserReader interface {
	GetUserByID(ctx context.Context, id int) (*model.User, error)
}

// UserService handles user-related business logic.
type UserService struct {
	userRepo IUserReader
}

func NewUserService(userRepo IUserReader) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile returns the public view of the user with the given ID.
func (s *UserService) GetProfile(ctx context.Context, id int) (*model.UserSummary, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	summary := user.Summary()
	return &summary, nil
}
