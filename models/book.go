package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Book struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name          string         `gorm:"not null;index" json:"name"`
	Author        string         `gorm:"index" json:"author"`
	ISBN          string         `gorm:"uniqueIndex" json:"isbn"`
	Publisher     string         `json:"publisher"`
	Language      string         `gorm:"default:English" json:"language"`
	Pages         int            `json:"pages"`
	Price         float64        `gorm:"not null" json:"price"`
	DiscountPrice *float64       `json:"discount_price,omitempty"`
	CategoryID    uuid.UUID      `gorm:"type:uuid;not null" json:"category_id"`
	Category      Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Stock         int            `gorm:"default:0" json:"stock"`
	Description   string         `json:"description"`
	Featured      bool           `gorm:"default:false" json:"featured"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Images        []BookImage    `gorm:"foreignKey:BookID" json:"images,omitempty"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// GetCurrentPrice returns the discount price when one is set and lower than
// the list price.
func (b *Book) GetCurrentPrice() float64 {
	if b.DiscountPrice != nil && *b.DiscountPrice > 0 && *b.DiscountPrice < b.Price {
		return *b.DiscountPrice
	}
	return b.Price
}

type BookImage struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BookID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"book_id"`
	ImageURL  string         `gorm:"not null" json:"image_url"`
	IsPrimary bool           `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (i *BookImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
