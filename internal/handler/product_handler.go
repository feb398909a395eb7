package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
	"scrapdeal/internal/service"
	"scrapdeal/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProductHandler handles listing endpoints.
type ProductHandler struct {
	productService service.ProductService
	images         storage.ImageStore
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService service.ProductService, images storage.ImageStore) *ProductHandler {
	return &ProductHandler{productService: productService, images: images}
}

// ListProductRequest is the multipart form for a new listing. The optional
// image file travels in the "image" part.
type ListProductRequest struct {
	Name        string `form:"name" validate:"required"`
	Description string `form:"description"`
	Type        string `form:"type"`
	Price       string `form:"price" validate:"required"`
	Quantity    int    `form:"quantity"`
	MinOrderQty int    `form:"min_order_qty"`
}

// ProductResponse wraps a single product.
type ProductResponse struct {
	Message string         `json:"message,omitempty"`
	Product *model.Product `json:"product"`
}

// ProductsResponse wraps a product list.
type ProductsResponse struct {
	Products []model.Product `json:"products"`
}

// ProductDetailResponse wraps a product joined with seller details.
type ProductDetailResponse struct {
	Product *service.ProductDetail `json:"product"`
}

// AvailableProduct is a listing with its seller's public identity.
type AvailableProduct struct {
	model.Product
	SellerInfo *service.SellerInfo `json:"seller"`
}

// AvailableProductsResponse wraps available listings.
type AvailableProductsResponse struct {
	Products []AvailableProduct `json:"products"`
}

// DeleteProductResponse acknowledges a deletion.
type DeleteProductResponse struct {
	Message   string    `json:"message"`
	ProductID uuid.UUID `json:"product_id"`
}

// List godoc
// @Summary Create a listing
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Name"
// @Param description formData string false "Description"
// @Param type formData string false "Material type"
// @Param price formData string true "Unit price"
// @Param quantity formData int true "Available quantity"
// @Param min_order_qty formData int false "Minimum order quantity"
// @Param image formData file false "JPEG or PNG image"
// @Success 201 {object} ProductResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/list [post]
func (h *ProductHandler) List(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req ListProductRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return fail(c, apperrors.Validation("price must be a number"))
	}

	ctx := c.Request().Context()
	image, err := h.saveImage(c)
	if err != nil {
		return fail(c, err)
	}

	product, err := h.productService.CreateListing(ctx, sellerID, service.CreateListingInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Price:       price,
		Quantity:    req.Quantity,
		MinOrderQty: req.MinOrderQty,
		Image:       image,
	})
	if err != nil {
		if image != nil {
			if rmErr := h.images.Remove(*image); rmErr != nil {
				logger.L.WarnContext(ctx, "failed to remove orphaned image", slog.String("error", rmErr.Error()))
			}
		}
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, ProductResponse{Message: "product listed successfully", Product: product})
}

func (h *ProductHandler) saveImage(c echo.Context) (*string, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Validation("unable to read uploaded image")
	}

	src, err := fh.Open()
	if err != nil {
		return nil, apperrors.Validation("unable to read uploaded image")
	}
	defer func() { _ = src.Close() }()

	ref, err := h.images.Save(c.Request().Context(), src)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// MyProducts godoc
// @Summary List the caller's listings, newest first
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProductsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/my-products [get]
func (h *ProductHandler) MyProducts(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	products, err := h.productService.ListBySeller(c.Request().Context(), sellerID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, ProductsResponse{Products: nonNil(products)})
}

// ExportMyProducts godoc
// @Summary Download the caller's listings as an Excel workbook
// @Tags products
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/my-products/export [get]
func (h *ProductHandler) ExportMyProducts(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.productService.ExportBySeller(c.Request().Context(), sellerID, &buf); err != nil {
		return fail(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="my-products.xlsx"`)
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetByID godoc
// @Summary Get a listing with its seller's contact details
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} ProductDetailResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/products/{id} [get]
func (h *ProductHandler) GetByID(c echo.Context) error {
	productID, err := pathUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	detail, err := h.productService.GetByID(c.Request().Context(), productID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, ProductDetailResponse{Product: detail})
}

// Available godoc
// @Summary List available listings, newest first
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AvailableProductsResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/available-products [get]
func (h *ProductHandler) Available(c echo.Context) error {
	products, err := h.productService.ListAvailable(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}

	out := make([]AvailableProduct, 0, len(products))
	for _, p := range products {
		item := AvailableProduct{Product: p}
		if p.Seller != nil {
			item.SellerInfo = &service.SellerInfo{ID: p.Seller.ID, Name: p.Seller.Name, Email: p.Seller.Email}
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, AvailableProductsResponse{Products: out})
}

// Delete godoc
// @Summary Delete one of the caller's listings
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} DeleteProductResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /product/{id} [delete]
func (h *ProductHandler) Delete(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}
	productID, err := pathUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.productService.DeleteListing(c.Request().Context(), productID, sellerID); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, DeleteProductResponse{Message: "product deleted successfully", ProductID: productID})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
