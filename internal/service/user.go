package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	"cargo_miniapp/internal/repository"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

type UserService interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*domain.User, error)
}

type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	Gender   *string `json:"gender"`
	Birthday *string `json:"birthday"` // формат YYYY-MM-DD
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *userService) Update(ctx context.Context, userID uuid.UUID, req *UpdateUserRequest) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: fullName must not be empty", apperrors.ErrBadRequest)
		}
		user.FullName = name
	}

	if req.Gender != nil {
		if *req.Gender != domain.GenderMale && *req.Gender != domain.GenderFemale {
			return nil, fmt.Errorf("%w: gender must be MALE or FEMALE", apperrors.ErrBadRequest)
		}
		user.Gender = req.Gender
	}

	if req.Birthday != nil {
		birthday, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("%w: birthday must be YYYY-MM-DD", apperrors.ErrBadRequest)
		}
		user.Birthday = &birthday
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
