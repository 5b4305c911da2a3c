// Package events holds product change notification payloads.
package events

import (
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/google/uuid"
)

// ProductUpdated is the body of a product.update notification: the product as stored after the update.
type ProductUpdated struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	UnitPrice       float64   `json:"unit_price"`
	QuantityInStock int32     `json:"quantity_in_stock"`
}

// ProductDeleted is the body of a product.delete notification.
type ProductDeleted struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
}

// UpdateAttributes returns the routing attributes of a product.update notification.
func UpdateAttributes(rowCount int64) messaging.Attributes {
	return messaging.Attributes{
		messaging.AttrEvent:    messaging.EventProductUpdate,
		messaging.AttrRowCount: rowCount,
	}
}

// DeleteAttributes returns the routing attributes of a product.delete notification.
func DeleteAttributes(rowCount int64) messaging.Attributes {
	return messaging.Attributes{
		messaging.AttrEvent:    messaging.EventProductDelete,
		messaging.AttrRowCount: rowCount,
	}
}
