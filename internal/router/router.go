package router

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"scrapdeal/internal/auth"
	"scrapdeal/internal/config"
	"scrapdeal/internal/handler"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/metrics"
	"scrapdeal/internal/model"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	Health  *handler.HealthHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	h Handlers,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
) {
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			c.SetRequest(c.Request().WithContext(logger.WithRequestID(c.Request().Context(), id)))
		},
	}))
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Origins(),
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.StoreTimeout,
		// Handlers already turn deadline errors into a retryable 503.
		ErrorHandler: func(err error, c echo.Context) error {
			return err
		},
	}))

	e.GET("/healthz", h.Health.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", cfg.UploadDir)

	api := e.Group("/api")
	gate := jwtService.Middleware()
	anyRole := auth.RequireRoles(tokenStore)
	sellers := auth.RequireRoles(tokenStore, model.RoleSeller)
	buyers := auth.RequireRoles(tokenStore, model.RoleBuyer)
	everyone := auth.RequireRoles(tokenStore, model.RoleSeller, model.RoleBuyer)

	// Public routes
	api.POST("/auth/signup", h.Auth.Signup)
	api.POST("/auth/signin", h.Auth.Signin)
	api.POST("/auth/signout", h.Auth.Signout, gate, anyRole)

	product := api.Group("/product", gate)
	product.POST("/list", h.Product.List, sellers)
	product.GET("/my-products", h.Product.MyProducts, sellers)
	product.GET("/my-products/export", h.Product.ExportMyProducts, sellers)
	product.GET("/products/:id", h.Product.GetByID, everyone)
	product.GET("/available-products", h.Product.Available, buyers)
	product.DELETE("/:id", h.Product.Delete, sellers)

	order := api.Group("/order", gate)
	order.POST("/place", h.Order.Place, buyers)
	order.PUT("/cancel/:id", h.Order.Cancel, buyers)
	order.PUT("/confirm/:id", h.Order.Confirm, sellers)
	order.GET("/buyer/orders", h.Order.BuyerOrders, buyers)
	order.GET("/product/:productId", h.Order.ProductOrders, sellers)
}

// requestLogger emits one structured line per request and records its latency.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRoutePath: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			metrics.HTTPRequestDuration.
				WithLabelValues(v.Method, v.RoutePath, strconv.Itoa(v.Status)).
				Observe(v.Latency.Seconds())

			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.L.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
