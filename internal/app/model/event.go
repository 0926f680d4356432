package model

import "time"

type CatalogEventType string

const (
	CatalogEventCreated CatalogEventType = "product.created"
	CatalogEventUpdated CatalogEventType = "product.updated"
	CatalogEventDeleted CatalogEventType = "product.deleted"
	CatalogEventClicked CatalogEventType = "product.clicked"
)

// CatalogEvent describes one change to the catalog. Product is nil for
// deletions and clicks.
type CatalogEvent struct {
	Type       CatalogEventType `json:"type"`
	ProductID  string           `json:"productId"`
	Product    *Product         `json:"product,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}
