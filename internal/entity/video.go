package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Video struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	VideoURL    string         `gorm:"column:video_url;type:text;not null" json:"videoUrl"`
	StorageKey  string         `gorm:"type:text;not null" json:"-"`
	UploadedBy  uuid.UUID      `gorm:"type:uuid" json:"uploadedBy"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
