package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

type PromoCode struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Code          string         `gorm:"uniqueIndex;not null" json:"code"`
	Description   string         `json:"description"`
	DiscountType  string         `gorm:"default:percent" json:"discount_type"` // percent, fixed
	DiscountValue float64        `gorm:"not null" json:"discount_value"`
	MinSubtotal   float64        `gorm:"default:0" json:"min_subtotal"`
	MaxUses       int            `gorm:"default:0" json:"max_uses"` // 0 means unlimited
	UsedCount     int            `gorm:"default:0" json:"used_count"`
	StartsAt      *time.Time     `json:"starts_at"`
	EndsAt        *time.Time     `json:"ends_at"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *PromoCode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	return nil
}

// UsableAt reports whether the code can be applied at the given time and
// subtotal.
func (p *PromoCode) UsableAt(now time.Time, subtotal float64) bool {
	if !p.IsActive {
		return false
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return false
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return false
	}
	return subtotal >= p.MinSubtotal
}

// DiscountFor returns the discount amount for a subtotal, never exceeding
// the subtotal itself.
func (p *PromoCode) DiscountFor(subtotal float64) float64 {
	var discount float64
	switch p.DiscountType {
	case DiscountTypeFixed:
		discount = p.DiscountValue
	default:
		discount = subtotal * p.DiscountValue / 100
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
