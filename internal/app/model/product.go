package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          string         `gorm:"type:varchar(36);primarykey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"not null" json:"price"`
	Images      []string       `gorm:"serializer:json;type:text" json:"images"` // order preserved
	Category    string         `gorm:"type:varchar(100);index" json:"category"`
	InStock     bool           `gorm:"not null" json:"inStock"`
	BuyLink     string         `json:"buyLink"`
	Clicks      int64          `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Reviews []Review `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"reviews"`
}

func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns a fresh identifier and resets the click counter.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	p.Clicks = 0
	return nil
}

// Review is owned by its product; ID is unique only within the parent.
type Review struct {
	ProductID string `gorm:"type:varchar(36);primaryKey" json:"-"`
	ID        string `gorm:"type:varchar(64);primaryKey" json:"id"`
	Position  int    `gorm:"not null;default:0" json:"-"`
	UserName  string `gorm:"not null" json:"userName"`
	Rating    int    `gorm:"not null" json:"rating"` // 1-5
	Comment   string `gorm:"type:text;not null" json:"comment"`
	Date      string `json:"date"`
}

func (Review) TableName() string {
	return "product_reviews"
}

// ProductPatch is a field-mask update: nil fields are left untouched.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Images      *[]string
	Category    *string
	InStock     *bool
	BuyLink     *string
	Reviews     *[]Review
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Price == nil && p.Images == nil &&
		p.Category == nil && p.InStock == nil && p.BuyLink == nil && p.Reviews == nil
}

// Apply copies the set scalar fields onto product and returns their column
// names. Reviews are replaced separately by the repository.
func (p ProductPatch) Apply(product *Product) []string {
	var columns []string
	if p.Title != nil {
		product.Title = *p.Title
		columns = append(columns, "title")
	}
	if p.Description != nil {
		product.Description = *p.Description
		columns = append(columns, "description")
	}
	if p.Price != nil {
		product.Price = *p.Price
		columns = append(columns, "price")
	}
	if p.Images != nil {
		product.Images = *p.Images
		columns = append(columns, "images")
	}
	if p.Category != nil {
		product.Category = *p.Category
		columns = append(columns, "category")
	}
	if p.InStock != nil {
		product.InStock = *p.InStock
		columns = append(columns, "in_stock")
	}
	if p.BuyLink != nil {
		product.BuyLink = *p.BuyLink
		columns = append(columns, "buy_link")
	}
	return columns
}
