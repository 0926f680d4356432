package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/controller"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/db"
	"github.com/ikkim/marketplace-backend/internal/kv"
	"github.com/ikkim/marketplace-backend/internal/middleware"
	"github.com/ikkim/marketplace-backend/internal/router"
	"github.com/ikkim/marketplace-backend/internal/storage"
	ws "github.com/ikkim/marketplace-backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret        = "test-secret"
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin-password"
)

type TestServer struct {
	Router *gin.Engine
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	// Setup database
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		S3: config.S3Config{
			Region:          "us-east-1",
			Bucket:          "test-bucket",
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
		},
		Admin: config.AdminConfig{Name: "Admin", Email: testAdminEmail, Password: testAdminPassword},
	}
	require.NoError(t, db.SeedAdmin(testDB, &cfg.Admin))

	store := kv.NewMemoryStore()
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	// Setup repositories
	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	wishlistRepo := repository.NewWishlistRepository(store)

	// Setup services
	authService := service.NewAuthService(
		userRepo,
		service.NewDatabaseCredentialVerifier(userRepo),
		store,
		testSecret,
		15*time.Minute,
		7*24*time.Hour,
	)
	productService := service.NewProductService(productRepo, hub)
	cartService := service.NewCartService(cartRepo)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)

	registry := prometheus.NewRegistry()

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewWishlistController(wishlistService),
		controller.NewAdminController(productService),
		controller.NewUploadController(storage.NewS3Storage(ctx, &cfg.S3)),
		controller.NewEventsController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(testSecret, authService),
		middleware.NewMetrics(registry),
		registry,
		cfg,
	)

	return &TestServer{Router: r.Setup()}
}

func (s *TestServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

type authResponse struct {
	User   model.User `json:"user"`
	Tokens struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokens"`
}

func (s *TestServer) login(t *testing.T, email, password string, role model.UserRole) authResponse {
	t.Helper()
	w := s.do(t, "POST", "/api/users/login", "", gin.H{"email": email, "password": password, "role": role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *TestServer) register(t *testing.T, name, email string) authResponse {
	t.Helper()
	w := s.do(t, "POST", "/api/users/register", "", gin.H{"name": name, "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *TestServer) createProduct(t *testing.T, token string, body gin.H) model.Product {
	t.Helper()
	w := s.do(t, "POST", "/api/products", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	return product
}

func TestIntegration_Health(t *testing.T) {
	server := setupIntegrationTest(t)

	w := server.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestIntegration_CatalogLifecycle(t *testing.T) {
	server := setupIntegrationTest(t)
	admin := server.login(t, testAdminEmail, testAdminPassword, model.RoleAdmin)
	assert.Equal(t, model.RoleAdmin, admin.User.Role)

	mug := server.createProduct(t, admin.Tokens.AccessToken, gin.H{
		"title": "Red Mug", "description": "Stoneware", "price": 12.5, "category": "Kitchen", "inStock": true,
	})
	server.createProduct(t, admin.Tokens.AccessToken, gin.H{
		"title": "Desk Lamp", "description": "Warm red light", "price": 30, "category": "Home",
	})

	// anonymous catalog browsing
	w := server.do(t, "GET", "/api/products?search=red&category=Kitchen", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, mug.ID, products[0].ID)

	w = server.do(t, "GET", "/api/products/categories", "", nil)
	assert.JSONEq(t, `["All","Kitchen","Home"]`, w.Body.String())

	// customers cannot write the catalog
	customer := server.register(t, "Customer", "customer@example.com")
	w = server.do(t, "POST", "/api/products", customer.Tokens.AccessToken, gin.H{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = server.do(t, "POST", "/api/products", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// clicks are public
	w = server.do(t, "POST", "/api/products/"+mug.ID+"/clicks", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = server.do(t, "PATCH", "/api/products/"+mug.ID, admin.Tokens.AccessToken, gin.H{"inStock": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(t, "GET", "/api/admin/stats", admin.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalProducts":2`)
	assert.Contains(t, w.Body.String(), `"inStockProducts":0`)
	assert.Contains(t, w.Body.String(), `"totalClicks":1`)

	w = server.do(t, "GET", "/api/admin/stats", customer.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = server.do(t, "DELETE", "/api/products/"+mug.ID, admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = server.do(t, "GET", "/api/products/"+mug.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_CartAndWishlist(t *testing.T) {
	server := setupIntegrationTest(t)
	admin := server.login(t, testAdminEmail, testAdminPassword, "")
	alice := server.register(t, "Alice", "alice@example.com")
	bob := server.register(t, "Bob", "bob@example.com")

	mug := server.createProduct(t, admin.Tokens.AccessToken, gin.H{
		"title": "Mug", "description": "Stoneware", "price": 12.5, "category": "Kitchen",
	})

	aliceToken := alice.Tokens.AccessToken
	cartPath := "/api/cart/" + alice.User.ID

	w := server.do(t, "GET", cartPath, aliceToken, nil)
	assert.JSONEq(t, `{"userId":"`+alice.User.ID+`","items":[]}`, w.Body.String())

	for _, qty := range []int{2, 3} {
		w = server.do(t, "POST", "/api/cart/add", aliceToken, gin.H{"userId": alice.User.ID, "productId": mug.ID, "quantity": qty})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	var cart model.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	// bob cannot touch alice's cart; the admin can
	w = server.do(t, "GET", cartPath, bob.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = server.do(t, "POST", "/api/cart/add", bob.Tokens.AccessToken, gin.H{"userId": alice.User.ID, "productId": mug.ID, "quantity": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = server.do(t, "GET", cartPath, admin.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// wishlist
	w = server.do(t, "POST", "/api/wishlist", aliceToken, gin.H{"productId": mug.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = server.do(t, "GET", "/api/wishlist/"+mug.ID, aliceToken, nil)
	assert.Contains(t, w.Body.String(), `"inWishlist":true`)
	w = server.do(t, "GET", "/api/wishlist/"+mug.ID, bob.Tokens.AccessToken, nil)
	assert.Contains(t, w.Body.String(), `"inWishlist":false`)

	// deleted products drop out of the resolved wishlist but stay in the cart
	w = server.do(t, "DELETE", "/api/products/"+mug.ID, admin.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = server.do(t, "GET", "/api/wishlist/products", aliceToken, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	w = server.do(t, "GET", cartPath, aliceToken, nil)
	assert.Contains(t, w.Body.String(), mug.ID)

	w = server.do(t, "DELETE", cartPath, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = server.do(t, "GET", cartPath, aliceToken, nil)
	assert.JSONEq(t, `{"userId":"`+alice.User.ID+`","items":[]}`, w.Body.String())
}

func TestIntegration_LogoutAndMetrics(t *testing.T) {
	server := setupIntegrationTest(t)
	alice := server.register(t, "Alice", "alice@example.com")

	w := server.do(t, "GET", "/api/users/me", alice.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(t, "POST", "/api/users/logout", alice.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = server.do(t, "GET", "/api/users/me", alice.Tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = server.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `marketplace_http_requests_total{endpoint="/api/users/me",method="GET",status="401"} 1`)
}

func TestIntegration_CORSPreflight(t *testing.T) {
	server := setupIntegrationTest(t)

	req := httptest.NewRequest("OPTIONS", "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
