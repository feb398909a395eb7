package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus represents the availability of a listing.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
)

// Product is a seller's listing.
// PickupLocation is copied from the seller profile when the listing is created.
type Product struct {
	ID             uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name           string          `json:"name" gorm:"size:255;not null"`
	Description    string          `json:"description" gorm:"type:text"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(20,2);not null;default:0"`
	Type           string          `json:"type" gorm:"size:100;index"`
	Quantity       int             `json:"quantity" gorm:"not null;default:0"`
	MinOrderQty    int             `json:"min_order_qty" gorm:"not null;default:0"`
	Image          *string         `json:"image" gorm:"size:512"`
	Status         ProductStatus   `json:"status" gorm:"type:varchar(20);not null;default:'available';index"`
	SellerID       uuid.UUID       `json:"seller_id" gorm:"type:char(36);not null;index"`
	PickupLocation string          `json:"pickup_location" gorm:"size:512"`
	CreatedAt      time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Relations
	Seller *User `json:"-" gorm:"foreignKey:SellerID"`
}

// BeforeCreate sets UUID and initial status before creating the record.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProductStatusAvailable
		if p.Quantity == 0 {
			p.Status = ProductStatusSold
		}
	}
	return nil
}
