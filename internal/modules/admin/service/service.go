package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/modules/admin/dto"
	"anoa.com/labeebacademy/internal/modules/user/repository"
	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminService interface {
	ListProfiles(ctx context.Context) ([]*entity.Profile, error)
	ChangeRole(ctx context.Context, id string, input dto.ChangeRoleInput) (*dto.ChangeRoleResponse, error)
}

type adminService struct {
	userRepo repository.UserRepository
}

func NewAdminService(userRepo repository.UserRepository) AdminService {
	return &adminService{
		userRepo: userRepo,
	}
}

// ListProfiles returns every profile in storage order.
func (s *adminService) ListProfiles(ctx context.Context) ([]*entity.Profile, error) {
	return s.userRepo.FindAllProfiles(ctx)
}

// ChangeRole persists the new role and returns the refreshed profile so the
// caller can redraw its list.
func (s *adminService) ChangeRole(ctx context.Context, id string, input dto.ChangeRoleInput) (*dto.ChangeRoleResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", apperror.ErrInvalidInput)
	}

	role, err := entity.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	profile, err := s.userRepo.FindProfileByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	log.Printf("[admin] role of %s set to %s", userID, role)
	return &dto.ChangeRoleResponse{
		Message: fmt.Sprintf("User role updated to %s successfully!", role),
		Profile: profile,
	}, nil
}
