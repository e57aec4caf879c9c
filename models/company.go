package models

import "time"

// Company is the tenant boundary. Companies are disabled through IsActive and
// never hard-deleted.
type Company struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive          bool      `gorm:"not null" json:"is_active"`
	SupervisorPinHash string    `gorm:"type:varchar(255)" json:"-"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}
