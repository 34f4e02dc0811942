package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucifer-kj/naazbookdepot-19-sub003/models"
	"github.com/lucifer-kj/naazbookdepot-19-sub003/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterSuccess(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "newuser@test.com",
		"password": "password123",
		"name":     "New User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["token"] == nil || resp["token"] == "" {
		t.Error("expected token in response")
	}
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected refresh_token in response")
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "newuser@test.com" {
		t.Errorf("expected email newuser@test.com, got %v", user["email"])
	}
	if user["role"] != "customer" {
		t.Errorf("expected role customer, got %v", user["role"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "existing@test.com", "customer")

	body := map[string]string{
		"email":    "existing@test.com",
		"password": "password123",
		"name":     "Duplicate User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["error"] != "Email already registered" {
		t.Errorf("expected 'Email already registered', got %v", resp["error"])
	}
}

func TestRegisterValidationMissingEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterValidationShortPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "short@test.com",
		"password": "short",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterInvalidEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "not-an-email",
		"password": "password123",
		"name":     "Bad Email User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginSuccess(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "login@test.com", "customer")

	body := map[string]string{
		"email":    "login@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["token"] == nil || resp["token"] == "" {
		t.Error("expected token in response")
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "login@test.com" {
		t.Errorf("expected email login@test.com, got %v", user["email"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "wrongpwd@test.com", "customer")

	body := map[string]string{
		"email":    "wrongpwd@test.com",
		"password": "wrongpassword",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["error"] != "Invalid credentials" {
		t.Errorf("expected 'Invalid credentials', got %v", resp["error"])
	}
}

func TestLoginNonexistentUser(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "nonexistent@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginBlockedUser(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	user, _ := seedTestUser(db, "blocked@test.com", "customer")
	db.Model(&user).Update("is_blocked", true)

	body := map[string]string{
		"email":    "blocked@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", body))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetProfileSuccess(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	user, token := seedTestUser(db, "profile@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/auth/profile", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["email"] != user.Email {
		t.Errorf("expected email %s, got %v", user.Email, resp["email"])
	}
	if resp["role"] != "customer" {
		t.Errorf("expected role customer, got %v", resp["role"])
	}
}

func TestGetProfileUnauthorized(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/auth/profile", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

// Valid token but the user row has since been deleted.
func TestGetProfileUserNotFoundInDB(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	user, token := seedTestUser(db, "deleted@test.com", "customer")
	db.Unscoped().Delete(&models.User{}, "id = ?", user.ID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/auth/profile", nil, token))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetProfileNoUserIDInContext(t *testing.T) {
	db := freshDB()
	r := gin.New()
	authHandler := &AuthHandler{DB: db}
	r.GET("/api/auth/profile", authHandler.GetProfile)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/auth/profile", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["error"] != "Unauthorized" {
		t.Errorf("expected 'Unauthorized', got %v", resp["error"])
	}
}

func TestUpdateProfile(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	_, token := seedTestUser(db, "update@test.com", "customer")

	body := map[string]string{
		"name":  "Updated Name",
		"phone": "9876543210",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/auth/profile", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["name"] != "Updated Name" {
		t.Errorf("expected name 'Updated Name', got %v", resp["name"])
	}
	if resp["phone"] != "9876543210" {
		t.Errorf("expected phone 9876543210, got %v", resp["phone"])
	}
}

func TestPasswordIsHashed(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "hash@test.com",
		"password": "password123",
		"name":     "Hash Test",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var user models.User
	db.Where("email = ?", "hash@test.com").First(&user)

	if user.Password == "password123" {
		t.Error("password was stored in plain text")
	}

	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123"))
	if err != nil {
		t.Error("stored password is not a valid bcrypt hash of the original password")
	}
}

func TestTokenInRegisterResponse(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "tokentest@test.com",
		"password": "password123",
		"name":     "Token Test",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	token, ok := resp["token"].(string)
	if !ok || token == "" {
		t.Fatal("expected non-empty token string in response")
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		t.Fatalf("token should be valid, got error: %v", err)
	}
	if claims.Email != "tokentest@test.com" {
		t.Errorf("expected email tokentest@test.com in claims, got %s", claims.Email)
	}
	if claims.Role != "customer" {
		t.Errorf("expected role customer in claims, got %s", claims.Role)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "refresh@test.com", "customer")

	loginBody := map[string]string{
		"email":    "refresh@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", loginBody))
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d: %s", w.Code, w.Body.String())
	}
	oldRefresh := parseResponse(w)["refresh_token"].(string)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, jsonRequest("POST", "/api/auth/refresh", map[string]string{"refresh_token": oldRefresh}))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected status 200 on refresh, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := parseResponse(w2)
	if resp["token"] == nil || resp["refresh_token"] == nil {
		t.Fatal("expected new token pair in refresh response")
	}

	// The old refresh token is revoked and cannot be reused.
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, jsonRequest("POST", "/api/auth/refresh", map[string]string{"refresh_token": oldRefresh}))
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reused refresh token, got %d: %s", w3.Code, w3.Body.String())
	}
}

func TestRefreshTokenInvalid(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/refresh", map[string]string{"refresh_token": "bogus"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	_, customerToken := seedTestUser(db, "cust@test.com", "customer")
	_, adminToken := seedTestUser(db, "admin@test.com", "admin")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/users", nil, customerToken))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d: %s", w.Code, w.Body.String())
	}

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, authRequest("GET", "/api/admin/users", nil, adminToken))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := parseResponse(w2)
	if resp["users"] == nil {
		t.Error("expected users list in response")
	}
	if resp["total"].(float64) != 2 {
		t.Errorf("expected total 2, got %v", resp["total"])
	}
}

func TestListUsersRoleFilter(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "c1@test.com", "customer")
	seedTestUser(db, "c2@test.com", "customer")
	_, adminToken := seedTestUser(db, "admin2@test.com", "admin")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/users?role=customer", nil, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["total"].(float64) != 2 {
		t.Errorf("expected 2 customers, got %v", resp["total"])
	}
}

func TestUpdateUserBlock(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	target, _ := seedTestUser(db, "target@test.com", "customer")
	_, adminToken := seedTestUser(db, "admin3@test.com", "admin")

	body := map[string]interface{}{"is_blocked": true}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+target.ID.String(), body, adminToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated models.User
	db.Where("id = ?", target.ID).First(&updated)
	if !updated.IsBlocked {
		t.Error("expected user to be blocked")
	}
}

func TestUpdateUserCannotChangeOwnRole(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	admin, adminToken := seedTestUser(db, "selfadmin@test.com", "admin")

	body := map[string]interface{}{"role": "customer"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+admin.ID.String(), body, adminToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["error"] != "Cannot change your own role" {
		t.Errorf("expected 'Cannot change your own role', got %v", resp["error"])
	}
}

func TestUpdateUserInvalidRole(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	target, _ := seedTestUser(db, "badrole@test.com", "customer")
	_, adminToken := seedTestUser(db, "admin4@test.com", "admin")

	body := map[string]interface{}{"role": "superuser"}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/users/"+target.ID.String(), body, adminToken))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
