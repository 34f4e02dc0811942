package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderHandler struct {
	DB *gorm.DB
}

// FreeShippingMin is the subtotal above which shipping is free.
const FreeShippingMin = 500.0

// StandardShippingFee applies to orders below FreeShippingMin.
const StandardShippingFee = 40.0

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ShippingAddress string `json:"shipping_address" binding:"required"`
		PaymentMethod   string `json:"payment_method"`
		PromoCode       string `json:"promo_code"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var cartItems []models.CartItem
	if err := h.DB.Preload("Book").Where("user_id = ?", userID).Find(&cartItems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
		return
	}

	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	// Batch query the primary images for everything in the cart
	bookIDs := make([]uuid.UUID, len(cartItems))
	for i, item := range cartItems {
		bookIDs[i] = item.BookID
	}
	var primaryImages []models.BookImage
	h.DB.Where("book_id IN ? AND is_primary = ?", bookIDs, true).Find(&primaryImages)

	primaryImageMap := make(map[uuid.UUID]string)
	for _, img := range primaryImages {
		primaryImageMap[img.BookID] = img.ImageURL
	}

	var subtotal float64
	var orderItems []models.OrderItem

	for _, item := range cartItems {
		currentPrice := item.Book.GetCurrentPrice()
		subtotal += currentPrice * float64(item.Quantity)

		orderItems = append(orderItems, models.OrderItem{
			BookID:   item.BookID,
			BookName: item.Book.Name,
			ImageURL: primaryImageMap[item.BookID],
			Quantity: item.Quantity,
			Price:    currentPrice,
		})
	}

	// Resolve promo code before totals
	var promo *models.PromoCode
	discount := 0.0
	if req.PromoCode != "" {
		code := strings.ToUpper(strings.TrimSpace(req.PromoCode))
		var p models.PromoCode
		if err := h.DB.Where("code = ?", code).First(&p).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid promo code"})
			return
		}
		if !p.UsableAt(time.Now(), subtotal) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Promo code cannot be applied to this order"})
			return
		}
		discount = p.DiscountFor(subtotal)
		promo = &p
	}

	shippingFee := 0.0
	if subtotal-discount < FreeShippingMin {
		shippingFee = StandardShippingFee
	}

	total := subtotal - discount + shippingFee

	order := models.Order{
		ID:              uuid.New(),
		UserID:          userID.(uuid.UUID),
		Status:          models.OrderStatusPending,
		Subtotal:        subtotal,
		Discount:        discount,
		ShippingFee:     shippingFee,
		Total:           total,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	if promo != nil {
		order.PromoCodeID = &promo.ID
	}

	tx := h.DB.Begin()

	// Decrement stock with row-level locking so concurrent orders cannot
	// oversell the same book.
	for _, item := range cartItems {
		var book models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", item.BookID).
			First(&book).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Book not found"})
			return
		}
		if book.Stock < item.Quantity {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock for " + book.Name})
			return
		}
		book.Stock -= item.Quantity
		tx.Save(&book)
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	for i := range orderItems {
		orderItems[i].OrderID = order.ID
	}

	if err := tx.Omit("Book", "Order").CreateInBatches(&orderItems, 100).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order items"})
		return
	}

	if promo != nil {
		if err := tx.Model(&models.PromoCode{}).Where("id = ?", promo.ID).
			Update("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply promo code"})
			return
		}
	}

	// Clear cart
	tx.Where("user_id = ?", userID).Delete(&models.CartItem{})

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete order"})
		return
	}

	h.DB.Preload("Items").Preload("Items.Book").Preload("Items.Book.Images").Preload("User").First(&order, order.ID)

	// Send order confirmation email (non-blocking)
	utils.SendOrderConfirmation(order.User.Email, order.User.Name, order.OrderNumber, order.Total)

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, exists := c.Get("user_id")
	userRole, _ := c.Get("user_role")

	var orders []models.Order
	query := h.DB.Preload("Items").Preload("Items.Book").Preload("Items.Book.Images").Preload("User")

	roleStr, _ := userRole.(string)

	if roleStr == "admin" {
		// Admin sees all orders, optionally filtered by status
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
	} else if exists {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("user_id")
	userRole, _ := c.Get("user_role")

	var order models.Order
	query := h.DB.Preload("Items").Preload("Items.Book").Preload("Items.Book.Images").Preload("User")

	roleStr, _ := userRole.(string)

	if roleStr == "admin" {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("id = ? AND user_id = ?", id, userID)
	}

	if err := query.First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ?", id).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if !models.IsValidTransition(order.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid status transition from '%s' to '%s'", order.Status, req.Status),
		})
		return
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}

	// Restore stock on cancellation
	if req.Status == models.OrderStatusCancelled {
		var items []models.OrderItem
		h.DB.Where("order_id = ?", order.ID).Find(&items)
		for _, item := range items {
			h.DB.Model(&models.Book{}).Where("id = ?", item.BookID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity))
		}
	}

	h.DB.Preload("Items").Preload("Items.Book").Preload("User").First(&order, order.ID)

	// Send status update email (non-blocking)
	if order.User.Email != "" {
		utils.SendOrderStatusUpdate(order.User.Email, order.User.Name, order.OrderNumber, string(req.Status))
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllowedTransitions)
}
