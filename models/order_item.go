package models

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/money"
)

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemDelivered ItemStatus = "delivered"
)

// OrderItem is a line of an order. UnitPrice is the product price at the
// moment the line was added. Removed lines keep their row with CancelledAt set.
type OrderItem struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	CompanyID        uint         `gorm:"not null;index" json:"company_id"`
	OrderID          uint         `gorm:"not null;index" json:"order_id"`
	ProductID        uint         `gorm:"not null" json:"product_id"`
	Quantity         int          `gorm:"not null" json:"quantity"`
	UnitPrice        money.Amount `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal         money.Amount `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Status           ItemStatus   `gorm:"type:varchar(20);not null" json:"status"`
	ProductionSector string       `gorm:"type:varchar(50)" json:"production_sector,omitempty"`
	Notes            string       `gorm:"type:text" json:"notes,omitempty"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (i OrderItem) Cancelled() bool { return i.CancelledAt != nil }
