package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/query"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/db"
	"github.com/ikkim/marketplace-backend/internal/middleware"
	"github.com/ikkim/marketplace-backend/internal/storage"
	ws "github.com/ikkim/marketplace-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminControllerTest(t *testing.T) (*gin.Engine, service.ProductService, *ws.Hub) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	productService := service.NewProductService(repository.NewProductRepository(testDB), hub)
	adminController := NewAdminController(productService)
	uploadController := NewUploadController(storage.NewS3Storage(context.Background(), &config.S3Config{
		Region:          "us-east-1",
		Bucket:          "test-bucket",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}))
	eventsController := NewEventsController(hub, []string{"http://localhost:5173"})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "admin-1")
		c.Set(middleware.UserRoleKey, model.RoleAdmin)
		c.Next()
	})
	router.GET("/admin/stats", adminController.GetStats)
	router.GET("/admin/products", adminController.SearchProducts)
	router.POST("/admin/uploads", uploadController.GeneratePresignedURL)
	router.GET("/admin/events", eventsController.StreamEvents)

	return router, productService, hub
}

func TestAdminController_GetStats(t *testing.T) {
	router, productService, _ := setupAdminControllerTest(t)

	mug := createTestProduct(t, productService, "Mug", "Kitchen")
	createTestProduct(t, productService, "Lamp", "Home")
	require.NoError(t, productService.IncrementClicks(mug.ID))

	w := performJSON(router, "GET", "/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary query.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalProducts)
	assert.Equal(t, 2, summary.InStockProducts)
	assert.Equal(t, int64(1), summary.TotalClicks)
	assert.Equal(t, []query.CategoryCount{{Category: "Kitchen", Count: 1}, {Category: "Home", Count: 1}}, summary.Categories)
	require.Len(t, summary.TopProducts, 2)
	assert.Equal(t, mug.ID, summary.TopProducts[0].ID)
}

func TestAdminController_SearchProducts(t *testing.T) {
	router, productService, _ := setupAdminControllerTest(t)

	mug := createTestProduct(t, productService, "Mug", "Kitchen")
	createTestProduct(t, productService, "Lamp", "Home")

	w := performJSON(router, "GET", "/admin/products?q="+mug.ID[:8], nil)
	require.Equal(t, http.StatusOK, w.Code)

	var products []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, mug.ID, products[0].ID)

	w = performJSON(router, "GET", "/admin/products", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Len(t, products, 2)
}

func TestUploadController_GeneratePresignedURL(t *testing.T) {
	router, _, _ := setupAdminControllerTest(t)

	w := performJSON(router, "POST", "/admin/uploads", gin.H{"filename": "lamp.jpg", "contentType": "image/jpeg"})
	require.Equal(t, http.StatusOK, w.Code)

	var upload storage.PresignedUpload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &upload))
	assert.True(t, strings.HasPrefix(upload.Key, "products/"))
	assert.NotEmpty(t, upload.UploadURL)
	assert.Contains(t, upload.FileURL, upload.Key)

	w = performJSON(router, "POST", "/admin/uploads", gin.H{"filename": "x.exe", "contentType": "application/octet-stream"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UPLOAD_INVALID_FILE_TYPE")

	w = performJSON(router, "POST", "/admin/uploads", gin.H{"filename": "lamp.jpg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsController_StreamsCatalogEvents(t *testing.T) {
	router, productService, hub := setupAdminControllerTest(t)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/admin/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	product := createTestProduct(t, productService, "Mug", "Kitchen")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event model.CatalogEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, model.CatalogEventCreated, event.Type)
	assert.Equal(t, product.ID, event.ProductID)
}

func TestEventsController_RejectsForeignOrigin(t *testing.T) {
	router, _, _ := setupAdminControllerTest(t)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/admin/events"
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
