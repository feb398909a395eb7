package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/model"
	"scrapdeal/internal/service"
)

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// PlaceOrderRequest represents an order placement.
type PlaceOrderRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

// OrderResponse wraps a single order.
type OrderResponse struct {
	Message string       `json:"message"`
	Order   *model.Order `json:"order"`
}

// BuyerOrder is an order with its product and buyer attached. Product is
// null once the product has been deleted.
type BuyerOrder struct {
	model.Order
	ProductInfo *model.Product `json:"product"`
	BuyerInfo   *UserResponse  `json:"buyer"`
}

// OrderProductSummary is the product subset shown to sellers.
type OrderProductSummary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Image          *string   `json:"image"`
	PickupLocation string    `json:"pickup_location"`
}

// OrderBuyerSummary is the buyer subset shown to sellers.
type OrderBuyerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

// ProductOrder is an order on a seller's product.
type ProductOrder struct {
	model.Order
	ProductInfo *OrderProductSummary `json:"product"`
	BuyerInfo   *OrderBuyerSummary   `json:"buyer"`
}

// ProductOrdersResponse wraps orders on one product.
type ProductOrdersResponse struct {
	Orders []ProductOrder `json:"orders"`
}

// Place godoc
// @Summary Place an order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceOrderRequest true "Order"
// @Success 201 {object} OrderResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /order/place [post]
func (h *OrderHandler) Place(c echo.Context) error {
	buyerID, err := callerID(c)
	if err != nil {
		return err
	}

	var req PlaceOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, err)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fail(c, apperrors.Validation("invalid product_id"))
	}

	order, err := h.orderService.PlaceOrder(c.Request().Context(), buyerID, productID, req.Quantity)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, OrderResponse{Message: "order placed successfully", Order: order})
}

// Cancel godoc
// @Summary Cancel one of the caller's pending orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} OrderResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /order/cancel/{id} [put]
func (h *OrderHandler) Cancel(c echo.Context) error {
	buyerID, err := callerID(c)
	if err != nil {
		return err
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.CancelOrder(c.Request().Context(), buyerID, orderID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, OrderResponse{Message: "order cancelled successfully", Order: order})
}

// Confirm godoc
// @Summary Confirm a pending order on one of the caller's products
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} OrderResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /order/confirm/{id} [put]
func (h *OrderHandler) Confirm(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	order, err := h.orderService.ConfirmOrder(c.Request().Context(), sellerID, orderID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, OrderResponse{Message: "order confirmed successfully", Order: order})
}

// BuyerOrders godoc
// @Summary List the caller's orders, newest first
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} BuyerOrder
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /order/buyer/orders [get]
func (h *OrderHandler) BuyerOrders(c echo.Context) error {
	buyerID, err := callerID(c)
	if err != nil {
		return err
	}

	orders, err := h.orderService.ListByBuyer(c.Request().Context(), buyerID)
	if err != nil {
		return fail(c, err)
	}

	out := make([]BuyerOrder, 0, len(orders))
	for _, o := range orders {
		item := BuyerOrder{Order: o, ProductInfo: o.Product}
		if o.Buyer != nil {
			item.BuyerInfo = &UserResponse{ID: o.Buyer.ID, Name: o.Buyer.Name, Email: o.Buyer.Email, Role: o.Buyer.Role}
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, out)
}

// ProductOrders godoc
// @Summary List orders on one of the caller's products
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Success 200 {object} ProductOrdersResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /order/product/{productId} [get]
func (h *OrderHandler) ProductOrders(c echo.Context) error {
	sellerID, err := callerID(c)
	if err != nil {
		return err
	}
	productID, err := pathUUID(c, "productId")
	if err != nil {
		return fail(c, err)
	}

	orders, err := h.orderService.ListByProduct(c.Request().Context(), productID, sellerID)
	if err != nil {
		return fail(c, err)
	}

	out := make([]ProductOrder, 0, len(orders))
	for _, o := range orders {
		item := ProductOrder{Order: o}
		if p := o.Product; p != nil {
			item.ProductInfo = &OrderProductSummary{
				ID:             p.ID,
				Name:           p.Name,
				Type:           p.Type,
				Image:          p.Image,
				PickupLocation: p.PickupLocation,
			}
		}
		if b := o.Buyer; b != nil {
			item.BuyerInfo = &OrderBuyerSummary{ID: b.ID, Name: b.Name, Email: b.Email}
			if b.BuyerProfile != nil {
				item.BuyerInfo.Phone = b.BuyerProfile.Phone
			}
		}
		out = append(out, item)
	}

	return c.JSON(http.StatusOK, ProductOrdersResponse{Orders: out})
}
