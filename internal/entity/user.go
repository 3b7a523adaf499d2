package entity

import (
	"fmt"
	"time"

	"anoa.com/labeebacademy/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// DefaultRole is assigned to every profile created at sign-up.
const DefaultRole = RoleStudent

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts only the closed set of known roles.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", apperror.ErrInvalidInput, s)
	}
	return r, nil
}

// Identity holds sign-in credentials. Its ID is the subject of issued tokens.
type Identity struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Profile is the application-level user record, keyed by the identity's
// subject id.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;not null" json:"email"`
	Role      Role      `gorm:"type:varchar(20);not null;default:student" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "users"
}
