package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one rating per (user, book).
type Review struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_book" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BookID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_review_user_book" json:"book_id"`
	Book      Book           `gorm:"foreignKey:BookID" json:"-"`
	Rating    int            `gorm:"not null" json:"rating"` // 1-5
	Comment   string         `json:"comment"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
