package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one product-quantity row per user. The updated_at column is
// the server-side timestamp the cartsync merge compares against, so it must
// change on every quantity write.
type CartItem struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_book" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	BookID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_book" json:"product_id"`
	Book      Book           `gorm:"foreignKey:BookID" json:"product"`
	Quantity  int            `gorm:"default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
