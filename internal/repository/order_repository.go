package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scrapdeal/internal/model"
)

// OrderRepository defines order persistence operations.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Order, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status model.OrderStatus) (bool, error)
	CountPendingByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByBuyer returns the buyer's orders newest first. Product is nil for
// orders whose product has since been deleted.
func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Buyer").
		Where("buyer_id = ?", buyerID).
		Order("order_date DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByProduct returns orders on a product with a subset of product and buyer fields loaded.
func (r *orderRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "type", "image", "pickup_location")
		}).
		Preload("Buyer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email")
		}).
		Preload("Buyer.BuyerProfile").
		Where("product_id = ?", productID).
		Order("order_date DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusIfPending moves a pending order to status. It reports false if
// the order was no longer pending.
func (r *orderRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status model.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) CountPendingByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("product_id = ? AND status = ?", productID, model.OrderStatusPending).
		Count(&count).Error
	return count, err
}
