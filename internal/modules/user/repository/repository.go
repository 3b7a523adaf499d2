package repository

import (
	"context"

	"anoa.com/labeebacademy/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, identity *entity.Identity, profile *entity.Profile) error
	FindIdentityByEmail(ctx context.Context, email string) (*entity.Identity, error)
	FindProfileByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error)
	FindAllProfiles(ctx context.Context) ([]*entity.Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error
	CountByRole(ctx context.Context, role entity.Role) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create writes the identity and its profile together; the profile takes the
// identity's id.
func (r *userRepository) Create(ctx context.Context, identity *entity.Identity, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(identity).Error; err != nil {
			return err
		}

		if profile != nil {
			profile.ID = identity.ID
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *userRepository) FindIdentityByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	var identity entity.Identity
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&identity).Error; err != nil {
		return nil, err
	}

	return &identity, nil
}

func (r *userRepository) FindProfileByID(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error; err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *userRepository) FindAllProfiles(ctx context.Context) ([]*entity.Profile, error) {
	var profiles []*entity.Profile
	if err := r.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, err
	}

	return profiles, nil
}

// UpdateRole overwrites the role column only. gorm.ErrRecordNotFound is
// returned when no profile has the id.
func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(ctx context.Context, role entity.Role) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
