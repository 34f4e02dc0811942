package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestAddToCartSuccess(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	_, token := seedTestUser(db, "cart@test.com", "customer")
	cat := seedCategory(db, "CartCat")
	book := seedBook(db, "Cart Book", cat.ID, 299.00)

	body := map[string]interface{}{
		"product_id": book.ID.String(),
		"quantity":   2,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	qty, ok := resp["quantity"].(float64)
	if !ok || int(qty) != 2 {
		t.Errorf("expected quantity 2, got %v", resp["quantity"])
	}
}

func TestGetCartSuccess(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "getcart@test.com", "customer")
	cat := seedCategory(db, "GetCartCat")
	book := seedBook(db, "Get Cart Book", cat.ID, 199.00)
	seedCartItem(db, user.ID, book.ID, 3)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := parseResponseArray(w)
	if len(result) != 1 {
		t.Errorf("expected 1 cart item, got %d", len(result))
	}
}

func TestUpdateCartItemQuantity(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "updatecart@test.com", "customer")
	cat := seedCategory(db, "UpdateCartCat")
	book := seedBook(db, "Update Cart Book", cat.ID, 249.00)
	cartItem := seedCartItem(db, user.ID, book.ID, 1)

	body := map[string]interface{}{
		"quantity": 5,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/%s", cartItem.ID), body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	qty, ok := resp["quantity"].(float64)
	if !ok || int(qty) != 5 {
		t.Errorf("expected quantity 5, got %v", resp["quantity"])
	}
}

// Quantity writes must move updated_at forward because clients compare that
// timestamp against their local edits when reconciling.
func TestUpdateCartItemBumpsUpdatedAt(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "bumpcart@test.com", "customer")
	cat := seedCategory(db, "BumpCartCat")
	book := seedBook(db, "Bump Cart Book", cat.ID, 150.00)
	cartItem := seedCartItem(db, user.ID, book.ID, 1)

	// Backdate the row so the bump is observable regardless of clock
	// granularity.
	old := time.Now().Add(-time.Hour)
	db.Model(&models.CartItem{}).Where("id = ?", cartItem.ID).Update("updated_at", old)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/%s", cartItem.ID), map[string]interface{}{
		"quantity": 4,
	}, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated models.CartItem
	db.Where("id = ?", cartItem.ID).First(&updated)
	if !updated.UpdatedAt.After(old) {
		t.Errorf("expected updated_at to advance past %v, got %v", old, updated.UpdatedAt)
	}
}

func TestRemoveCartItem(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "removecart@test.com", "customer")
	cat := seedCategory(db, "RemoveCartCat")
	book := seedBook(db, "Remove Cart Book", cat.ID, 350.00)
	cartItem := seedCartItem(db, user.ID, book.ID, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/cart/%s", cartItem.ID), nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["message"] != "Item removed from cart" {
		t.Errorf("expected removal message, got %v", resp["message"])
	}

	var count int64
	db.Model(&models.CartItem{}).Where("id = ?", cartItem.ID).Count(&count)
	if count != 0 {
		t.Error("expected cart item to be deleted")
	}
}

func TestClearCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "clearcart@test.com", "customer")
	cat := seedCategory(db, "ClearCartCat")
	book1 := seedBook(db, "Clear Cart Book 1", cat.ID, 120.00)
	book2 := seedBook(db, "Clear Cart Book 2", cat.ID, 180.00)
	seedCartItem(db, user.ID, book1.ID, 1)
	seedCartItem(db, user.ID, book2.ID, 2)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["message"] != "Cart cleared" {
		t.Errorf("expected 'Cart cleared', got %v", resp["message"])
	}

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected 0 cart items, got %d", count)
	}
}

func TestAddDuplicateToCartMerges(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "dupcart@test.com", "customer")
	cat := seedCategory(db, "DupCartCat")
	book := seedBook(db, "Dup Cart Book", cat.ID, 275.00)
	seedCartItem(db, user.ID, book.ID, 2)

	// Add same book again
	body := map[string]interface{}{
		"product_id": book.ID.String(),
		"quantity":   3,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	qty, ok := resp["quantity"].(float64)
	if !ok || int(qty) != 5 {
		t.Errorf("expected merged quantity 5 (2+3), got %v", resp["quantity"])
	}

	// Only one row exists for this (user, book)
	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ? AND book_id = ?", user.ID, book.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 cart item (merged), got %d", count)
	}
}

func TestAddToCartMergeCappedAtStock(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "mergecap@test.com", "customer")
	cat := seedCategory(db, "MergeCat")
	book := seedBook(db, "Merge Cap Book", cat.ID, 275.00)
	db.Model(&book).Update("stock", 5)
	seedCartItem(db, user.ID, book.ID, 3)

	// 3 + 4 = 7 exceeds stock 5, so the row is capped at 5.
	body := map[string]interface{}{
		"product_id": book.ID.String(),
		"quantity":   4,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	qty, ok := resp["quantity"].(float64)
	if !ok || int(qty) != 5 {
		t.Errorf("expected quantity capped at 5, got %v", resp["quantity"])
	}
}

func TestAddToCartBookNotFound(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"product_id": uuid.New(),
		"quantity":   1,
	}, token))
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddToCartInsufficientStock(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	cat := seedCategory(db, "TestCat")
	book := seedBook(db, "LowStock", cat.ID, 99.00)
	db.Model(&book).Update("stock", 2)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"product_id": book.ID,
		"quantity":   5,
	}, token))
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddToCartInvalidBody(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{}, token))
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateCartItemNotFound(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/cart/"+uuid.New().String(), map[string]interface{}{
		"quantity": 2,
	}, token))
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateCartItemInvalidBody(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/cart/"+uuid.New().String(), map[string]interface{}{}, token))
	if w.Code != 400 {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateCartItemInsufficientStock(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "stockcart@test.com", "customer")
	cat := seedCategory(db, "StockCat")
	book := seedBook(db, "Low Stock Cart Book", cat.ID, 130.00)
	db.Model(&book).Update("stock", 2)
	cartItem := seedCartItem(db, user.ID, book.ID, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/%s", cartItem.ID), map[string]interface{}{
		"quantity": 10,
	}, token))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["error"] != "Insufficient stock" {
		t.Errorf("expected 'Insufficient stock', got %v", resp["error"])
	}
}

func TestGetCartEmpty(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "user@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := parseResponseArray(w)
	if len(result) != 0 {
		t.Errorf("expected empty cart, got %d items", len(result))
	}
}

func TestGetCartWithPreloadedBook(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "preload@test.com", "customer")
	cat := seedCategory(db, "PreloadCat")
	book := seedBook(db, "Preloaded Book", cat.ID, 399.00)
	seedCartItem(db, user.ID, book.ID, 2)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := parseResponseArray(w)
	if len(result) != 1 {
		t.Fatalf("expected 1 cart item, got %d", len(result))
	}

	item := result[0].(map[string]interface{})
	product, ok := item["product"].(map[string]interface{})
	if !ok {
		t.Fatal("expected book to be preloaded in cart item")
	}
	if product["name"] != "Preloaded Book" {
		t.Errorf("expected book name 'Preloaded Book', got %v", product["name"])
	}
}

func TestGetCartWithBookImages(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "cartimg@test.com", "customer")
	cat := seedCategory(db, "ImgCartCat")
	book := seedBook(db, "Cart Img Book", cat.ID, 450.00)
	seedBookImage(db, book.ID, "https://example.com/img1.jpg", true)
	seedCartItem(db, user.ID, book.ID, 1)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := parseResponseArray(w)
	if len(result) != 1 {
		t.Fatalf("expected 1 cart item, got %d", len(result))
	}

	item := result[0].(map[string]interface{})
	product, ok := item["product"].(map[string]interface{})
	if !ok {
		t.Fatal("expected book to be preloaded")
	}

	images, ok := product["images"].([]interface{})
	if !ok || len(images) == 0 {
		t.Fatal("expected book images to be preloaded")
	}
	imgMap := images[0].(map[string]interface{})
	if imgMap["image_url"] != "https://example.com/img1.jpg" {
		t.Errorf("expected image URL, got %v", imgMap["image_url"])
	}
}

func TestGetCartMultipleItems(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "multicart@test.com", "customer")
	cat := seedCategory(db, "MultiCartCat")
	book1 := seedBook(db, "Cart Book A", cat.ID, 199.00)
	book2 := seedBook(db, "Cart Book B", cat.ID, 249.00)
	seedCartItem(db, user.ID, book1.ID, 1)
	seedCartItem(db, user.ID, book2.ID, 3)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	result := parseResponseArray(w)
	if len(result) != 2 {
		t.Errorf("expected 2 cart items, got %d", len(result))
	}
}

func TestRemoveFromCartVerifyOtherItemsRemain(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user, token := seedTestUser(db, "removeone@test.com", "customer")
	cat := seedCategory(db, "RemoveOneCat")
	book1 := seedBook(db, "Remove Cart Book 1", cat.ID, 199.00)
	book2 := seedBook(db, "Remove Cart Book 2", cat.ID, 249.00)
	item1 := seedCartItem(db, user.ID, book1.ID, 1)
	seedCartItem(db, user.ID, book2.ID, 2)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/cart/%s", item1.ID), nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 remaining cart item, got %d", count)
	}
}

// GORM soft delete does not error on missing rows, so this still returns 200.
func TestRemoveFromCartNonexistentItem(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "removenonexist@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/cart/%s", uuid.New()), nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "Item removed from cart" {
		t.Errorf("expected removal message, got %v", resp["message"])
	}
}

func TestRemoveFromCartWrongUser(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user1, _ := seedTestUser(db, "cartowner@test.com", "customer")
	_, token2 := seedTestUser(db, "otheruser@test.com", "customer")
	cat := seedCategory(db, "WrongUserCat")
	book := seedBook(db, "Wrong User Book", cat.ID, 199.00)
	cartItem := seedCartItem(db, user1.ID, book.ID, 1)

	// User2 tries to delete user1's cart item
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", fmt.Sprintf("/api/cart/%s", cartItem.ID), nil, token2))

	// Delete scoped to user2 matches no rows and does not error
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 (no rows affected, no error), got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.CartItem{}).Where("id = ?", cartItem.ID).Count(&count)
	if count != 1 {
		t.Error("expected user1's cart item to remain untouched")
	}
}

func TestClearCartEmptyCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "emptyclear@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["message"] != "Cart cleared" {
		t.Errorf("expected 'Cart cleared', got %v", resp["message"])
	}
}

func TestClearCartDoesNotAffectOtherUsers(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)

	user1, token1 := seedTestUser(db, "clearuser1@test.com", "customer")
	user2, _ := seedTestUser(db, "clearuser2@test.com", "customer")
	cat := seedCategory(db, "ClearOtherCat")
	book := seedBook(db, "Clear Other Book", cat.ID, 199.00)
	seedCartItem(db, user1.ID, book.ID, 1)
	seedCartItem(db, user2.ID, book.ID, 2)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart", nil, token1))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var count1 int64
	db.Model(&models.CartItem{}).Where("user_id = ?", user1.ID).Count(&count1)
	if count1 != 0 {
		t.Errorf("expected 0 items for user1, got %d", count1)
	}

	var count2 int64
	db.Model(&models.CartItem{}).Where("user_id = ?", user2.ID).Count(&count2)
	if count2 != 1 {
		t.Errorf("expected 1 item for user2, got %d", count2)
	}
}

func TestGetCartNoUserIDInContext(t *testing.T) {
	db := freshDB()
	r := gin.New()
	cartHandler := &CartHandler{DB: db}
	r.GET("/api/cart", cartHandler.GetCart)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/cart", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["error"] != "Unauthorized" {
		t.Errorf("expected 'Unauthorized', got %v", resp["error"])
	}
}

func TestAddToCartNoUserIDInContext(t *testing.T) {
	db := freshDB()
	r := gin.New()
	cartHandler := &CartHandler{DB: db}
	r.POST("/api/cart", cartHandler.AddToCart)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest("POST", "/api/cart", map[string]interface{}{
		"product_id": uuid.New().String(),
		"quantity":   1,
	}))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRemoveFromCartNoUserIDInContext(t *testing.T) {
	db := freshDB()
	r := gin.New()
	cartHandler := &CartHandler{DB: db}
	r.DELETE("/api/cart/:id", cartHandler.RemoveFromCart)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/cart/"+uuid.New().String(), nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClearCartNoUserIDInContext(t *testing.T) {
	db := freshDB()
	r := gin.New()
	cartHandler := &CartHandler{DB: db}
	r.DELETE("/api/cart", cartHandler.ClearCart)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/cart", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}
