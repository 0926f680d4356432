package repository

import (
	"sync"
	"testing"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductTest(t *testing.T) (*gorm.DB, ProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewProductRepository(testDB)
	return testDB, repo
}

func newTestProduct(title, category string) *model.Product {
	return &model.Product{
		Title:       title,
		Description: title + " description",
		Price:       199.99,
		Images:      []string{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		Category:    category,
		InStock:     true,
		BuyLink:     "https://shop.example.com/" + title,
	}
}

func TestProductRepository_Create(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := newTestProduct("Laptop", "Electronics")
	product.Clicks = 42
	product.Reviews = []model.Review{
		{ID: "review-1", UserName: "alice", Rating: 5, Comment: "Great", Date: "2024-01-01"},
		{ID: "review-2", UserName: "bob", Rating: 3, Comment: "Okay", Date: "2024-01-02"},
	}

	err := repo.Create(product)
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Zero(t, product.Clicks)
	assert.False(t, product.CreatedAt.IsZero())

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", found.Title)
	assert.Equal(t, product.Images, found.Images)
	assert.Equal(t, "Electronics", found.Category)
	assert.True(t, found.InStock)
	assert.Equal(t, product.BuyLink, found.BuyLink)
	assert.Zero(t, found.Clicks)
	require.Len(t, found.Reviews, 2)
	assert.Equal(t, "review-1", found.Reviews[0].ID)
	assert.Equal(t, "review-2", found.Reviews[1].ID)
}

func TestProductRepository_CreateOutOfStock(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := newTestProduct("Speaker", "Audio")
	product.InStock = false
	product.Images = nil
	require.NoError(t, repo.Create(product))

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.False(t, found.InStock)
	assert.Equal(t, []string{}, found.Images)
}

func TestProductRepository_FindAll(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	for _, title := range []string{"Laptop", "Headphones", "Monitor"} {
		require.NoError(t, repo.Create(newTestProduct(title, "Electronics")))
	}

	products, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Laptop", products[0].Title)
	assert.Equal(t, "Headphones", products[1].Title)
	assert.Equal(t, "Monitor", products[2].Title)
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := repo.FindByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_FindByIDs(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	first := newTestProduct("Laptop", "Electronics")
	second := newTestProduct("Headphones", "Audio")
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	products, err := repo.FindByIDs([]string{second.ID, "missing", first.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, second.ID, products[0].ID)
	assert.Equal(t, first.ID, products[1].ID)

	empty, err := repo.FindByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProductRepository_Update(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := newTestProduct("Laptop", "Electronics")
	product.Reviews = []model.Review{{ID: "review-1", UserName: "alice", Rating: 5, Comment: "Great"}}
	require.NoError(t, repo.Create(product))
	_, err := repo.IncrementClicks(product.ID)
	require.NoError(t, err)

	t.Run("Only supplied fields change", func(t *testing.T) {
		price := 899.0
		inStock := false
		updated, err := repo.Update(product.ID, model.ProductPatch{Price: &price, InStock: &inStock})
		require.NoError(t, err)

		assert.Equal(t, 899.0, updated.Price)
		assert.False(t, updated.InStock)
		assert.Equal(t, "Laptop", updated.Title)
		assert.Equal(t, product.Images, updated.Images)
		assert.Equal(t, int64(1), updated.Clicks)
		assert.Len(t, updated.Reviews, 1)
	})

	t.Run("Images and reviews are replaced", func(t *testing.T) {
		images := []string{"https://example.com/c.jpg"}
		reviews := []model.Review{
			{ID: "review-2", UserName: "bob", Rating: 2, Comment: "Meh"},
			{ID: "review-3", UserName: "carol", Rating: 4, Comment: "Good"},
		}
		updated, err := repo.Update(product.ID, model.ProductPatch{Images: &images, Reviews: &reviews})
		require.NoError(t, err)

		assert.Equal(t, images, updated.Images)
		require.Len(t, updated.Reviews, 2)
		assert.Equal(t, "review-2", updated.Reviews[0].ID)
		assert.Equal(t, "review-3", updated.Reviews[1].ID)
		assert.Equal(t, 899.0, updated.Price)
	})

	t.Run("Missing product", func(t *testing.T) {
		title := "Nothing"
		_, err := repo.Update("missing", model.ProductPatch{Title: &title})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestProductRepository_Delete(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := newTestProduct("Laptop", "Electronics")
	product.Reviews = []model.Review{{ID: "review-1", UserName: "alice", Rating: 5, Comment: "Great"}}
	require.NoError(t, repo.Create(product))

	require.NoError(t, repo.Delete(product.ID))

	_, err := repo.FindByID(product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var reviewCount int64
	testDB.Model(&model.Review{}).Where("product_id = ?", product.ID).Count(&reviewCount)
	assert.Zero(t, reviewCount)

	// deleting again reports not found
	assert.ErrorIs(t, repo.Delete(product.ID), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete("missing"), gorm.ErrRecordNotFound)
}

func TestProductRepository_IncrementClicks(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := newTestProduct("Laptop", "Electronics")
	require.NoError(t, repo.Create(product))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementClicks(product.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := repo.FindByID(product.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), found.Clicks)

	affected, err := repo.IncrementClicks("missing")
	require.NoError(t, err)
	assert.Zero(t, affected)
}
