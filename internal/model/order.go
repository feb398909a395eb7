package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a buyer's purchase against one product.
// TotalAmount is frozen at placement time.
type Order struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ProductID   uuid.UUID       `json:"product_id" gorm:"type:char(36);not null;index"`
	BuyerID     uuid.UUID       `json:"buyer_id" gorm:"type:char(36);not null;index"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(20,2);not null"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	OrderDate   time.Time       `json:"order_date" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relations
	Product *Product `json:"-" gorm:"foreignKey:ProductID"`
	Buyer   *User    `json:"-" gorm:"foreignKey:BuyerID"`
}

// BeforeCreate sets UUID and initial status before creating the record.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

