package models

import (
	"time"

	"github.com/yeremiapane/restaurant-pos/money"
)

// PaymentMethod is a tender type configured per company (cash, card, ...).
type PaymentMethod struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID uint      `gorm:"not null;uniqueIndex:idx_payment_methods_company_name,priority:1" json:"company_id"`
	Name      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_methods_company_name,priority:2" json:"name"`
	IsCash    bool      `gorm:"not null" json:"is_cash"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Payment is an immutable tender applied to an order. Corrections are new rows.
type Payment struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	CompanyID       uint         `gorm:"not null;index" json:"company_id"`
	OrderID         uint         `gorm:"not null;index" json:"order_id"`
	PaymentMethodID uint         `gorm:"not null;index" json:"payment_method_id"`
	Amount          money.Amount `gorm:"type:decimal(12,2);not null" json:"amount"`
	UserID          uint         `gorm:"not null" json:"user_id"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

// BillSplit records an informational per-person share; it is not a payment.
type BillSplit struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	CompanyID       uint         `gorm:"not null;index" json:"company_id"`
	OrderID         uint         `gorm:"not null;index" json:"order_id"`
	NumberOfPeople  int          `gorm:"not null" json:"number_of_people"`
	Total           money.Amount `gorm:"type:decimal(12,2);not null" json:"total"`
	AmountPerPerson money.Amount `gorm:"type:decimal(12,2);not null" json:"amount_per_person"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}
