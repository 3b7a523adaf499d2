package service

import (
	"context"
	"errors"
	"log"

	"anoa.com/labeebacademy/internal/entity"
	"anoa.com/labeebacademy/internal/modules/user/repository"
	"anoa.com/labeebacademy/internal/navigation"
	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleResolver maps an authenticated identity to its profile and dashboard.
type RoleResolver interface {
	Resolve(ctx context.Context, subjectID uuid.UUID) (*entity.Profile, navigation.Destination, error)
}

type roleResolver struct {
	repo repository.UserRepository
}

func NewRoleResolver(repo repository.UserRepository) RoleResolver {
	return &roleResolver{repo: repo}
}

// Resolve fetches exactly one profile. A missing profile or a role outside the
// known set blocks navigation; fetch failures are returned untouched.
func (r *roleResolver) Resolve(ctx context.Context, subjectID uuid.UUID) (*entity.Profile, navigation.Destination, error) {
	profile, err := r.repo.FindProfileByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[resolver] no profile for identity %s", subjectID)
			return nil, navigation.Destination{}, apperror.ErrProfileNotFound
		}
		return nil, navigation.Destination{}, err
	}

	dest, err := navigation.DashboardFor(profile.Role)
	if err != nil {
		log.Printf("[resolver] identity %s has unknown role %q", subjectID, profile.Role)
		return nil, navigation.Destination{}, err
	}

	return profile, dest, nil
}
