package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SellerProfile holds the contact details of a seller.
type SellerProfile struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:char(36);uniqueIndex;not null"`
	Address   string    `json:"address" gorm:"size:512"`
	Phone     string    `json:"phone" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (p *SellerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// BuyerProfile holds the contact and business details of a buyer.
type BuyerProfile struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:char(36);uniqueIndex;not null"`
	BusinessName string    `json:"business_name" gorm:"size:255"`
	Address      string    `json:"address" gorm:"size:512"`
	Phone        string    `json:"phone" gorm:"size:32"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (p *BuyerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
