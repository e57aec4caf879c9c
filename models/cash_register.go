package models

import (
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-pos/money"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

type MovementType string

const (
	MovementWithdrawal MovementType = "withdrawal"
	MovementDeposit    MovementType = "deposit"
)

func (t MovementType) Valid() bool {
	return t == MovementWithdrawal || t == MovementDeposit
}

// CashRegisterSession is one operator's drawer period. OpenSlot carries a
// unique value while the session is open and NULL afterwards, which lets the
// store reject a second open session for the same operator.
type CashRegisterSession struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	CompanyID      uint          `gorm:"not null;index:idx_sessions_company_user,priority:1" json:"company_id"`
	UserID         uint          `gorm:"not null;index:idx_sessions_company_user,priority:2" json:"user_id"`
	OpeningAmount  money.Amount  `gorm:"type:decimal(12,2);not null" json:"opening_amount"`
	ClosingAmount  *money.Amount `gorm:"type:decimal(12,2)" json:"closing_amount,omitempty"`
	ExpectedAmount *money.Amount `gorm:"type:decimal(12,2)" json:"expected_amount,omitempty"`
	Difference     *money.Amount `gorm:"type:decimal(12,2)" json:"difference,omitempty"`
	Status         SessionStatus `gorm:"type:varchar(10);not null" json:"status"`
	OpenSlot       *string       `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	Classification string        `gorm:"type:varchar(20)" json:"classification,omitempty"`
	OverrideBy     *uint         `json:"override_by,omitempty"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`
	OpenedAt       time.Time     `gorm:"not null;index" json:"opened_at"`
	ClosedAt       *time.Time    `json:"closed_at,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

// SessionSlot is the OpenSlot value for an operator of a company.
func SessionSlot(companyID, userID uint) string {
	return fmt.Sprintf("%d:%d", companyID, userID)
}

// CashMovement is an append-only drawer deposit or withdrawal.
type CashMovement struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	CompanyID uint         `gorm:"not null;index" json:"company_id"`
	SessionID uint         `gorm:"not null;index" json:"session_id"`
	Type      MovementType `gorm:"type:varchar(20);not null" json:"type"`
	Amount    money.Amount `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason    string       `gorm:"type:text" json:"reason"`
	UserID    uint         `gorm:"not null" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}
