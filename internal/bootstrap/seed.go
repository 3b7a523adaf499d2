package bootstrap

import (
	"log"
	"strings"

	"anoa.com/labeebacademy/internal/entity"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Identity{},
		&entity.Profile{},
		&entity.Video{},
	)
}

// SeedAdminUser creates an identity and an admin profile for email unless
// the identity already exists.
func SeedAdminUser(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := db.Model(&entity.Identity{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		identity := entity.Identity{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: string(hashedPasswordBytes),
		}
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}

		adminProfile := entity.Profile{
			ID:    identity.ID,
			Name:  "Administrator",
			Email: email,
			Role:  entity.RoleAdmin,
		}
		return tx.Create(&adminProfile).Error
	})
	if err != nil {
		return err
	}

	log.Println("✅ Admin user seeded successfully")
	log.Printf("   Email: %s", email)

	return nil
}
