package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"scrapdeal/internal/cache"
	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
	"scrapdeal/internal/storage"
)

// CreateListingInput holds the seller supplied listing fields.
type CreateListingInput struct {
	Name        string
	Description string
	Type        string
	Price       decimal.Decimal
	Quantity    int
	MinOrderQty int
	Image       *string
}

// SellerInfo is the public identity of a seller.
type SellerInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// SellerContact is the seller profile data shown on a listing.
type SellerContact struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// ProductDetail is a product joined with its seller. It is the cached form of a listing.
type ProductDetail struct {
	model.Product
	SellerInfo    SellerInfo    `json:"seller"`
	SellerContact SellerContact `json:"seller_profile"`
}

// ProductService manages listings.
type ProductService interface {
	CreateListing(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (*model.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error)
	GetByID(ctx context.Context, productID uuid.UUID) (*ProductDetail, error)
	ListAvailable(ctx context.Context) ([]model.Product, error)
	DeleteListing(ctx context.Context, productID, callerID uuid.UUID) error
	ExportBySeller(ctx context.Context, sellerID uuid.UUID, w io.Writer) error
}

type productService struct {
	repos  repository.Repositories
	tx     repository.TxManager
	cache  *cache.Client
	images storage.ImageStore
}

// NewProductService creates a new product service.
func NewProductService(repos repository.Repositories, tx repository.TxManager, cacheClient *cache.Client, images storage.ImageStore) ProductService {
	return &productService{
		repos:  repos,
		tx:     tx,
		cache:  cacheClient,
		images: images,
	}
}

// CreateListing validates the fields, copies the seller's address as pickup
// location, and stores the listing.
func (s *productService) CreateListing(ctx context.Context, sellerID uuid.UUID, in CreateListingInput) (*model.Product, error) {
	if err := validateListing(in); err != nil {
		return nil, err
	}

	seller, err := s.repos.Users.FindByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("only sellers can list products: %w", apperrors.ErrForbidden)
		}
		return nil, fmt.Errorf("find seller: %w", err)
	}
	if seller.Role != model.RoleSeller {
		return nil, fmt.Errorf("only sellers can list products: %w", apperrors.ErrForbidden)
	}

	profile, err := s.repos.Users.FindSellerProfile(ctx, sellerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find seller profile: %w", err)
	}
	if profile == nil || strings.TrimSpace(profile.Address) == "" {
		return nil, apperrors.ErrProfileMissing
	}

	product := &model.Product{
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Type:           in.Type,
		Price:          in.Price,
		Quantity:       in.Quantity,
		MinOrderQty:    in.MinOrderQty,
		Image:          in.Image,
		SellerID:       sellerID,
		PickupLocation: profile.Address,
	}
	if err := s.repos.Products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logger.L.InfoContext(ctx, "product listed",
		slog.String("product_id", product.ID.String()),
		slog.Int("quantity", product.Quantity),
	)
	return product, nil
}

func (s *productService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]model.Product, error) {
	products, err := s.repos.Products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	return products, nil
}

// GetByID serves the product detail from cache, loading and caching it on a miss.
func (s *productService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	key := s.detailKey(ctx, productID)

	var cached ProductDetail
	if s.cache.GetJSON(ctx, key, &cached) {
		recordCacheLookup(true)
		return &cached, nil
	}
	recordCacheLookup(false)

	product, err := s.repos.Products.FindDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.Seller == nil {
		return nil, apperrors.ErrProductNotFound
	}

	detail := &ProductDetail{
		Product: *product,
		SellerInfo: SellerInfo{
			ID:    product.Seller.ID,
			Name:  product.Seller.Name,
			Email: product.Seller.Email,
		},
	}
	if p := product.Seller.SellerProfile; p != nil {
		detail.SellerContact = SellerContact{Address: p.Address, Phone: p.Phone}
	}
	detail.Product.Seller = nil

	_ = s.cache.SetJSON(ctx, key, detail, cache.ProductTTL)
	return detail, nil
}

// detailKey resolves the cache key at the product's current generation. A
// load that races an invalidation writes under a superseded key no reader uses.
func (s *productService) detailKey(ctx context.Context, productID uuid.UUID) string {
	id := productID.String()
	return cache.ProductKey(id, s.cache.Generation(ctx, cache.ProductGenerationKey(id)))
}

func invalidateDetail(ctx context.Context, c *cache.Client, productID uuid.UUID) {
	c.Bump(ctx, cache.ProductGenerationKey(productID.String()))
}

func (s *productService) ListAvailable(ctx context.Context) ([]model.Product, error) {
	products, err := s.repos.Products.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available products: %w", err)
	}
	return products, nil
}

// DeleteListing removes the caller's listing. Listings referenced by a
// pending order cannot be deleted.
func (s *productService) DeleteListing(ctx context.Context, productID, callerID uuid.UUID) error {
	var image *string
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		product, err := repos.Products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrProductNotFound
			}
			return fmt.Errorf("find product: %w", err)
		}
		if product.SellerID != callerID {
			return fmt.Errorf("you cannot delete this product: %w", apperrors.ErrForbidden)
		}

		pending, err := repos.Orders.CountPendingByProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("count pending orders: %w", err)
		}
		if pending > 0 {
			return fmt.Errorf("%d pending orders reference this product: %w", pending, apperrors.ErrHasPendingOrders)
		}

		if err := repos.Products.Delete(ctx, productID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		image = product.Image
		return nil
	})
	if err != nil {
		return err
	}

	invalidateDetail(ctx, s.cache, productID)
	if image != nil && s.images != nil {
		if err := s.images.Remove(*image); err != nil {
			logger.L.WarnContext(ctx, "failed to remove product image",
				slog.String("product_id", productID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.L.InfoContext(ctx, "product deleted", slog.String("product_id", productID.String()))
	return nil
}

var exportHeader = []string{"ID", "Name", "Type", "Price", "Quantity", "Min Order Qty", "Status", "Pickup Location", "Listed At"}

// ExportBySeller writes the seller's listings as an xlsx workbook.
func (s *productService) ExportBySeller(ctx context.Context, sellerID uuid.UUID, w io.Writer) error {
	products, err := s.ListBySeller(ctx, sellerID)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Listings")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.String())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Type)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Quantity)
		row.AddCell().SetInt(p.MinOrderQty)
		row.AddCell().SetString(string(p.Status))
		row.AddCell().SetString(p.PickupLocation)
		row.AddCell().SetString(p.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func validateListing(in CreateListingInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperrors.Validation("name is required")
	case in.Price.IsNegative():
		return apperrors.Validation("price must not be negative")
	case in.Quantity < 1:
		return apperrors.Validation("quantity must be at least 1")
	case in.MinOrderQty < 0:
		return apperrors.Validation("minimum order quantity must not be negative")
	case in.Quantity < in.MinOrderQty:
		return apperrors.Validation("available quantity cannot be less than minimum order quantity")
	}
	return nil
}
