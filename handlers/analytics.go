package handlers

import (
	"net/http"
	"time"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	DB *gorm.DB
}

// GetDashboard returns pre-computed store stats for the admin dashboard.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	var bookCount int64
	h.DB.Model(&models.Book{}).Count(&bookCount)

	var totalOrders int64
	h.DB.Model(&models.Order{}).Count(&totalOrders)

	var totalRevenue float64
	h.DB.Model(&models.Order{}).Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").Scan(&totalRevenue)

	// Recent revenue (last 7 days)
	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recentRevenue float64
	h.DB.Model(&models.Order{}).
		Where("created_at >= ? AND status <> ?", sevenDaysAgo, models.OrderStatusCancelled).
		Select("COALESCE(SUM(total), 0)").Scan(&recentRevenue)

	var pendingOrders int64
	h.DB.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending).Count(&pendingOrders)

	var categoryCount int64
	h.DB.Model(&models.Category{}).Count(&categoryCount)

	var customerCount int64
	h.DB.Model(&models.User{}).Where("role = ?", "customer").Count(&customerCount)

	var lowStock []models.Book
	h.DB.Where("stock <= ?", 5).Order("stock asc").Limit(10).Find(&lowStock)

	var recentOrders []models.Order
	h.DB.Preload("Items").Preload("User").Order("created_at DESC").Limit(10).Find(&recentOrders)

	c.JSON(http.StatusOK, gin.H{
		"total_books":      bookCount,
		"total_orders":     totalOrders,
		"total_revenue":    totalRevenue,
		"recent_revenue":   recentRevenue,
		"pending_orders":   pendingOrders,
		"total_categories": categoryCount,
		"total_customers":  customerCount,
		"low_stock_books":  lowStock,
		"recent_orders":    recentOrders,
	})
}

// GetTopBooks returns the best sellers by quantity ordered.
func (h *AnalyticsHandler) GetTopBooks(c *gin.Context) {
	type topBook struct {
		BookID   string `json:"product_id"`
		BookName string `json:"product_name"`
		Sold     int64  `json:"sold"`
	}

	var top []topBook
	err := h.DB.Model(&models.OrderItem{}).
		Select("order_items.book_id as book_id, order_items.book_name as book_name, SUM(order_items.quantity) as sold").
		Joins("JOIN orders ON orders.id = order_items.order_id AND orders.status <> ?", models.OrderStatusCancelled).
		Group("order_items.book_id, order_items.book_name").
		Order("sold DESC").
		Limit(10).
		Scan(&top).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"top_books": top})
}
