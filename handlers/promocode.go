package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromoCodeHandler struct {
	DB *gorm.DB
}

// ListPromoCodes returns all promo codes, active or not, for admin use.
func (h *PromoCodeHandler) ListPromoCodes(c *gin.Context) {
	var codes []models.PromoCode
	if err := h.DB.Order("created_at DESC").Find(&codes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch promo codes"})
		return
	}
	c.JSON(http.StatusOK, codes)
}

func (h *PromoCodeHandler) GetPromoCode(c *gin.Context) {
	id := c.Param("id")
	var code models.PromoCode

	if err := h.DB.Where("id = ?", id).First(&code).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}

	c.JSON(http.StatusOK, code)
}

func (h *PromoCodeHandler) CreatePromoCode(c *gin.Context) {
	var req struct {
		Code          string     `json:"code" binding:"required,min=3,max=32"`
		Description   string     `json:"description"`
		DiscountType  string     `json:"discount_type" binding:"required,oneof=percent fixed"`
		DiscountValue float64    `json:"discount_value" binding:"required,gte=0"`
		MinSubtotal   float64    `json:"min_subtotal" binding:"gte=0"`
		MaxUses       int        `json:"max_uses" binding:"gte=0"`
		StartsAt      *time.Time `json:"starts_at"`
		EndsAt        *time.Time `json:"ends_at"`
		IsActive      *bool      `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.DiscountType == models.DiscountTypePercent && req.DiscountValue > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Percent discount cannot exceed 100"})
		return
	}

	var existing models.PromoCode
	if err := h.DB.Where("code = ?", strings.ToUpper(strings.TrimSpace(req.Code))).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Promo code already exists"})
		return
	}

	code := models.PromoCode{
		ID:            uuid.New(),
		Code:          req.Code,
		Description:   req.Description,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinSubtotal:   req.MinSubtotal,
		MaxUses:       req.MaxUses,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		IsActive:      true,
	}
	if req.IsActive != nil {
		code.IsActive = *req.IsActive
	}

	if err := h.DB.Create(&code).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create promo code"})
		return
	}

	c.JSON(http.StatusCreated, code)
}

func (h *PromoCodeHandler) UpdatePromoCode(c *gin.Context) {
	id := c.Param("id")
	var code models.PromoCode

	if err := h.DB.Where("id = ?", id).First(&code).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}

	var req struct {
		Description   *string    `json:"description"`
		DiscountType  *string    `json:"discount_type"`
		DiscountValue *float64   `json:"discount_value"`
		MinSubtotal   *float64   `json:"min_subtotal"`
		MaxUses       *int       `json:"max_uses"`
		StartsAt      *time.Time `json:"starts_at"`
		EndsAt        *time.Time `json:"ends_at"`
		IsActive      *bool      `json:"is_active"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Description != nil {
		code.Description = *req.Description
	}
	if req.DiscountType != nil {
		if *req.DiscountType != models.DiscountTypePercent && *req.DiscountType != models.DiscountTypeFixed {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount_type must be percent or fixed"})
			return
		}
		code.DiscountType = *req.DiscountType
	}
	if req.DiscountValue != nil {
		code.DiscountValue = *req.DiscountValue
	}
	if req.MinSubtotal != nil {
		code.MinSubtotal = *req.MinSubtotal
	}
	if req.MaxUses != nil {
		code.MaxUses = *req.MaxUses
	}
	if req.StartsAt != nil {
		code.StartsAt = req.StartsAt
	}
	if req.EndsAt != nil {
		code.EndsAt = req.EndsAt
	}
	if req.IsActive != nil {
		code.IsActive = *req.IsActive
	}

	if code.DiscountType == models.DiscountTypePercent && code.DiscountValue > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Percent discount cannot exceed 100"})
		return
	}

	if err := h.DB.Save(&code).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update promo code"})
		return
	}

	c.JSON(http.StatusOK, code)
}

func (h *PromoCodeHandler) DeletePromoCode(c *gin.Context) {
	id := c.Param("id")

	var code models.PromoCode
	if err := h.DB.Where("id = ?", id).First(&code).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Promo code not found"})
		return
	}

	if err := h.DB.Delete(&models.PromoCode{}, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete promo code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Promo code deleted successfully"})
}

// ValidatePromoCode lets the checkout page preview a discount before the
// order is placed.
func (h *PromoCodeHandler) ValidatePromoCode(c *gin.Context) {
	var req struct {
		Code     string  `json:"code" binding:"required"`
		Subtotal float64 `json:"subtotal" binding:"required,gte=0"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var code models.PromoCode
	if err := h.DB.Where("code = ?", strings.ToUpper(strings.TrimSpace(req.Code))).First(&code).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid promo code"})
		return
	}

	if !code.UsableAt(time.Now(), req.Subtotal) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Promo code cannot be applied to this order"})
		return
	}

	discount := code.DiscountFor(req.Subtotal)
	c.JSON(http.StatusOK, gin.H{
		"code":     code.Code,
		"discount": discount,
		"total":    req.Subtotal - discount,
	})
}
