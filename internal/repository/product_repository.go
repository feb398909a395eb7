package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scrapdeal/internal/model"
)

// status is assigned before quantity: MySQL evaluates SET left to right.
const (
	reserveSQL = `UPDATE products SET status = CASE WHEN quantity = ? THEN 'sold' ELSE status END, ` +
		`quantity = quantity - ?, updated_at = ? WHERE id = ? AND quantity >= ?`
	restoreSQL = `UPDATE products SET status = CASE WHEN status = 'sold' THEN 'available' ELSE status END, ` +
		`quantity = quantity + ?, updated_at = ? WHERE id = ?`
)

// ProductRepository defines catalog persistence operations.
// Quantity and status change only through Reserve and Restore.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error)
	ListAvailable(ctx context.Context) ([]model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Restore(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate reads the product holding a row lock until the surrounding transaction ends.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads the product with its seller and the seller's profile.
func (r *productRepository) FindDetail(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).
		Preload("Seller").
		Preload("Seller.SellerProfile").
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListAvailable(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).
		Preload("Seller").
		Where("status = ?", model.ProductStatusAvailable).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{}).Error
}

// Reserve takes qty units off the product if at least qty remain, marking it
// sold when the last unit goes. It reports false when stock was insufficient
// or the product is gone.
func (r *productRepository) Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(reserveSQL, qty, qty, time.Now(), id, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Restore returns qty units to the product and flips a sold product back to
// available. It reports false when the product no longer exists.
func (r *productRepository) Restore(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(restoreSQL, qty, time.Now(), id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
