package models

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/money"
)

type OrderType string

const (
	OrderDineIn   OrderType = "dine_in"
	OrderDelivery OrderType = "delivery"
	OrderTakeout  OrderType = "takeout"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderDineIn, OrderDelivery, OrderTakeout:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderOpen          OrderStatus = "open"
	OrderSentToKitchen OrderStatus = "sent_to_kitchen"
	OrderPreparing     OrderStatus = "preparing"
	OrderReady         OrderStatus = "ready"
	OrderClosed        OrderStatus = "closed"
	OrderCancelled     OrderStatus = "cancelled"
)

// Terminal reports whether the order can no longer change.
func (s OrderStatus) Terminal() bool {
	return s == OrderClosed || s == OrderCancelled
}

// Order is one customer check. Subtotal and Total are cached from the item
// rows; the ledger rewrites them in the same transaction as every item write.
type Order struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	CompanyID       uint          `gorm:"not null;uniqueIndex:idx_orders_company_number,priority:1;index:idx_orders_company_status,priority:1" json:"company_id"`
	TableID         *uint         `gorm:"index" json:"table_id,omitempty"`
	OrderNumber     string        `gorm:"type:varchar(48);not null;uniqueIndex:idx_orders_company_number,priority:2" json:"order_number"`
	Type            OrderType     `gorm:"type:varchar(20);not null" json:"type"`
	Status          OrderStatus   `gorm:"type:varchar(20);not null;index:idx_orders_company_status,priority:2" json:"status"`
	Subtotal        money.Amount  `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ServiceCharge   money.Amount  `gorm:"type:decimal(12,2);not null" json:"service_charge"`
	Discount        money.Amount  `gorm:"type:decimal(12,2);not null" json:"discount"`
	Total           money.Amount  `gorm:"type:decimal(12,2);not null" json:"total"`
	Shortfall       *money.Amount `gorm:"type:decimal(12,2)" json:"shortfall,omitempty"`
	CustomerName    string        `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CustomerPhone   string        `gorm:"type:varchar(50)" json:"customer_phone,omitempty"`
	CustomerAddress string        `gorm:"type:text" json:"customer_address,omitempty"`
	CreatedBy       uint          `gorm:"not null" json:"created_by"`
	ClosedBy        *uint         `json:"closed_by,omitempty"`
	ClosedAt        *time.Time    `gorm:"index" json:"closed_at,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
	Items           []OrderItem   `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}
