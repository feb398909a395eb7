package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"scrapdeal/internal/cache"
	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/metrics"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
)

// OrderService runs the order lifecycle and keeps product inventory in step with it.
type OrderService interface {
	PlaceOrder(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*model.Order, error)
	CancelOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.Order, error)
	ConfirmOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error)
	ListByProduct(ctx context.Context, productID, callerID uuid.UUID) ([]model.Order, error)
}

type orderService struct {
	repos repository.Repositories
	tx    repository.TxManager
	cache *cache.Client
}

// NewOrderService creates a new order service.
func NewOrderService(repos repository.Repositories, tx repository.TxManager, cacheClient *cache.Client) OrderService {
	return &orderService{
		repos: repos,
		tx:    tx,
		cache: cacheClient,
	}
}

// PlaceOrder reserves stock and records a pending order in one transaction.
func (s *orderService) PlaceOrder(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*model.Order, error) {
	if quantity <= 0 {
		return nil, s.reject(apperrors.Validation("quantity must be a positive integer"))
	}

	product, err := s.repos.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.reject(apperrors.ErrProductNotFound)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if err := checkOrderable(product, quantity); err != nil {
		return nil, s.reject(err)
	}

	var order *model.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		locked, err := repos.Products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrProductNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}
		if err := checkOrderable(locked, quantity); err != nil {
			return err
		}

		reserved, err := repos.Products.Reserve(ctx, productID, quantity)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if !reserved {
			return fmt.Errorf("only %d items available: %w", locked.Quantity, apperrors.ErrInsufficientStock)
		}

		order = &model.Order{
			ProductID:   productID,
			BuyerID:     buyerID,
			Quantity:    quantity,
			TotalAmount: locked.Price.Mul(decimal.NewFromInt(int64(quantity))),
			Status:      model.OrderStatusPending,
		}
		if err := repos.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.invalidateProduct(ctx, productID)
	metrics.OrdersTotal.WithLabelValues(metrics.EventPlaced).Inc()
	logger.L.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("product_id", productID.String()),
		slog.Int("quantity", quantity),
		slog.String("total_amount", order.TotalAmount.String()),
	)
	return order, nil
}

// CancelOrder cancels the buyer's pending order and returns its quantity to the product.
func (s *orderService) CancelOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, s.reject(err)
	}
	if order.BuyerID != buyerID {
		return nil, s.reject(fmt.Errorf("this is not your order: %w", apperrors.ErrForbidden))
	}
	if order.Status != model.OrderStatusPending {
		return nil, s.reject(fmt.Errorf("only pending orders can be cancelled: %w", apperrors.ErrInvalidTransition))
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		updated, err := repos.Orders.UpdateStatusIfPending(ctx, orderID, model.OrderStatusCancelled)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if !updated {
			return fmt.Errorf("only pending orders can be cancelled: %w", apperrors.ErrInvalidTransition)
		}

		restored, err := repos.Products.Restore(ctx, order.ProductID, order.Quantity)
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		if !restored {
			logger.L.InfoContext(ctx, "product gone, skipping stock restore",
				slog.String("order_id", orderID.String()),
				slog.String("product_id", order.ProductID.String()),
			)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(err)
	}

	s.invalidateProduct(ctx, order.ProductID)
	metrics.OrdersTotal.WithLabelValues(metrics.EventCancelled).Inc()
	logger.L.InfoContext(ctx, "order cancelled", slog.String("order_id", orderID.String()))
	return s.findOrder(ctx, orderID)
}

// ConfirmOrder confirms a pending order on one of the seller's products.
func (s *orderService) ConfirmOrder(ctx context.Context, sellerID, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, s.reject(err)
	}

	product, err := s.repos.Products.FindByID(ctx, order.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.reject(apperrors.ErrProductNotFound)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.SellerID != sellerID {
		return nil, s.reject(fmt.Errorf("this is not your product order: %w", apperrors.ErrForbidden))
	}
	if err := pendingOnly(order.Status); err != nil {
		return nil, s.reject(err)
	}

	updated, err := s.repos.Orders.UpdateStatusIfPending(ctx, orderID, model.OrderStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}
	if !updated {
		current, err := s.findOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return nil, s.reject(pendingOnly(current.Status))
	}

	metrics.OrdersTotal.WithLabelValues(metrics.EventConfirmed).Inc()
	logger.L.InfoContext(ctx, "order confirmed", slog.String("order_id", orderID.String()))
	return s.findOrder(ctx, orderID)
}

func (s *orderService) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]model.Order, error) {
	orders, err := s.repos.Orders.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list buyer orders: %w", err)
	}
	return orders, nil
}

// ListByProduct lists orders on a product owned by the caller.
func (s *orderService) ListByProduct(ctx context.Context, productID, callerID uuid.UUID) ([]model.Order, error) {
	product, err := s.repos.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.SellerID != callerID {
		return nil, fmt.Errorf("you do not own this product: %w", apperrors.ErrForbidden)
	}

	orders, err := s.repos.Orders.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list product orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) findOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.repos.Orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderService) invalidateProduct(ctx context.Context, productID uuid.UUID) {
	invalidateDetail(ctx, s.cache, productID)
}

// reject counts business rule rejections and passes err through.
func (s *orderService) reject(err error) error {
	if reason := rejectionReason(err); reason != "" {
		metrics.OrderRejections.WithLabelValues(reason).Inc()
	}
	return err
}

// checkOrderable applies the minimum order and stock rules. Stock at or below
// the minimum may be cleared with a smaller order.
func checkOrderable(p *model.Product, quantity int) error {
	if quantity < p.MinOrderQty && p.Quantity > p.MinOrderQty {
		return fmt.Errorf("minimum order quantity is %d: %w", p.MinOrderQty, apperrors.ErrBelowMinimumOrder)
	}
	if quantity > p.Quantity {
		return fmt.Errorf("only %d items available: %w", p.Quantity, apperrors.ErrInsufficientStock)
	}
	return nil
}

func pendingOnly(status model.OrderStatus) error {
	switch status {
	case model.OrderStatusPending:
		return nil
	case model.OrderStatusConfirmed:
		return apperrors.ErrAlreadyConfirmed
	default:
		return fmt.Errorf("cannot confirm a %s order: %w", status, apperrors.ErrInvalidTransition)
	}
}

var rejectionReasons = []struct {
	target error
	reason string
}{
	{apperrors.ErrValidation, "validation"},
	{apperrors.ErrProductNotFound, "product_not_found"},
	{apperrors.ErrOrderNotFound, "order_not_found"},
	{apperrors.ErrForbidden, "forbidden"},
	{apperrors.ErrBelowMinimumOrder, "below_minimum_order"},
	{apperrors.ErrInsufficientStock, "insufficient_stock"},
	{apperrors.ErrInvalidTransition, "invalid_transition"},
	{apperrors.ErrAlreadyConfirmed, "already_confirmed"},
}

func rejectionReason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.target) {
			return r.reason
		}
	}
	return ""
}

func recordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(result).Inc()
}
