package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Table is a seat group of one company. CurrentOrderID mirrors the open order
// seated here and is only written together with that order.
type Table struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	CompanyID      uint        `gorm:"not null;uniqueIndex:idx_tables_company_number,priority:1" json:"company_id"`
	Number         string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_tables_company_number,priority:2" json:"number"`
	Capacity       int         `gorm:"not null" json:"capacity"`
	Status         TableStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CurrentOrderID *uint       `gorm:"index" json:"current_order_id,omitempty"`
	CreatedAt      time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updated_at"`
}
