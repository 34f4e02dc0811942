package handlers

import (
	"net/http"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	DB *gorm.DB
}

// GetBookReviews returns all reviews for a book along with the average rating.
func (h *ReviewHandler) GetBookReviews(c *gin.Context) {
	bookID := c.Param("id")

	if err := h.DB.First(&models.Book{}, "id = ?", bookID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	var reviews []models.Review
	if err := h.DB.Preload("User").Where("book_id = ?", bookID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	var average float64
	h.DB.Model(&models.Review{}).Where("book_id = ?", bookID).
		Select("COALESCE(AVG(rating), 0)").Scan(&average)

	c.JSON(http.StatusOK, gin.H{
		"reviews":        reviews,
		"average_rating": average,
		"count":          len(reviews),
	})
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	var req struct {
		Rating  int    `json:"rating" binding:"required,gte=1,lte=5"`
		Comment string `json:"comment" binding:"max=2000"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := h.DB.First(&models.Book{}, "id = ?", bookID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	// One review per user per book: a repeat submission updates the
	// existing review.
	var review models.Review
	err = h.DB.Where("user_id = ? AND book_id = ?", userID, bookID).First(&review).Error
	if err == nil {
		review.Rating = req.Rating
		review.Comment = req.Comment
		if err := h.DB.Save(&review).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update review"})
			return
		}
		h.DB.Preload("User").First(&review, review.ID)
		c.JSON(http.StatusOK, review)
		return
	}

	review = models.Review{
		ID:      uuid.New(),
		UserID:  userID.(uuid.UUID),
		BookID:  bookID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	if err := h.DB.Create(&review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
		return
	}

	h.DB.Preload("User").First(&review, review.ID)
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userRole, _ := c.Get("user_role")

	id := c.Param("reviewId")

	var review models.Review
	if err := h.DB.Where("id = ?", id).First(&review).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
		return
	}

	// Owners delete their own reviews, admins delete any
	roleStr, _ := userRole.(string)
	if roleStr != "admin" && review.UserID != userID.(uuid.UUID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete another user's review"})
		return
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete review"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}
