package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapdeal/internal/auth"
	"scrapdeal/internal/config"
	"scrapdeal/internal/handler"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
	"scrapdeal/internal/service"
	"scrapdeal/internal/storage"
	"scrapdeal/internal/testutil"
)

type testServer struct {
	t *testing.T
	e *echo.Echo
}

func newTestServer(t *testing.T, storeTimeout time.Duration) *testServer {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		StoreTimeout:   storeTimeout,
		UploadDir:      t.TempDir(),
		MaxUploadMB:    1,
		AllowedOrigins: "http://localhost:5173",
	}

	db := testutil.NewDB(t)
	cacheClient, _ := testutil.NewCache(t)
	images, err := storage.NewDiskStore(cfg.UploadDir, cfg.MaxUploadMB)
	require.NoError(t, err)

	repos := repository.NewRepositories(db)
	tx := repository.NewTxManager(db)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	productService := service.NewProductService(repos, tx, cacheClient, images)
	e := echo.New()
	Register(e, cfg, Handlers{
		Auth:    handler.NewAuthHandler(service.NewAuthService(repos.Users, jwtService, tokenStore)),
		Product: handler.NewProductHandler(productService, images),
		Order:   handler.NewOrderHandler(service.NewOrderService(repos, tx, cacheClient)),
		Health:  handler.NewHealthHandler(db, cacheClient),
	}, jwtService, tokenStore)

	return &testServer{t: t, e: e}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(email, role string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":          "User " + email,
		"email":         email,
		"password":      "password123",
		"role":          role,
		"address":       "1 Yard Rd",
		"phone":         "555-0100",
		"business_name": "Metals Ltd",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handler.AuthResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (s *testServer) listProduct(token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "scrap.png")
		require.NoError(s.t, err)
		_, err = part.Write(image)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/product/list", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, code, decode(t, rec)["code"])
}

func TestMarketplaceFlow(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	seller := s.signup("seller@example.com", "seller")
	buyer := s.signup("buyer@example.com", "buyer")

	rec := s.listProduct(seller, map[string]string{
		"name": "Copper wire", "type": "metal", "price": "2",
		"quantity": "10", "min_order_qty": "5", "description": "stripped",
	}, testutil.PNG(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode(t, rec)["product"].(map[string]interface{})
	productID := product["id"].(string)
	assert.Equal(t, "1 Yard Rd", product["pickup_location"])
	image := product["image"].(string)
	assert.True(t, strings.HasPrefix(image, "/uploads/"))

	rec = s.do(http.MethodGet, image, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/product/available-products", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	available := decode(t, rec)["products"].([]interface{})
	require.Len(t, available, 1)
	assert.Equal(t, "seller@example.com", available[0].(map[string]interface{})["seller"].(map[string]interface{})["email"])

	rec = s.do(http.MethodGet, "/api/product/products/"+productID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)["product"].(map[string]interface{})
	assert.Equal(t, "555-0100", detail["seller_profile"].(map[string]interface{})["phone"])

	rec = s.do(http.MethodPost, "/api/order/place", buyer, map[string]interface{}{"product_id": productID, "quantity": 3})
	assertError(t, rec, http.StatusBadRequest, "BELOW_MINIMUM_ORDER")

	rec = s.do(http.MethodPost, "/api/order/place", buyer, map[string]interface{}{"product_id": productID, "quantity": 11})
	assertError(t, rec, http.StatusConflict, "INSUFFICIENT_STOCK")

	rec = s.do(http.MethodPost, "/api/order/place", buyer, map[string]interface{}{"product_id": productID, "quantity": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode(t, rec)["order"].(map[string]interface{})
	orderID := order["id"].(string)
	assert.Equal(t, "20", order["total_amount"])
	assert.Equal(t, "pending", order["status"])

	rec = s.do(http.MethodGet, "/api/product/products/"+productID, buyer, nil)
	detail = decode(t, rec)["product"].(map[string]interface{})
	assert.Equal(t, "sold", detail["status"])
	assert.EqualValues(t, 0, detail["quantity"])

	rec = s.do(http.MethodDelete, "/api/product/"+productID, seller, nil)
	assertError(t, rec, http.StatusConflict, "HAS_PENDING_ORDERS")

	rec = s.do(http.MethodGet, "/api/order/product/"+productID, seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode(t, rec)["orders"].([]interface{})
	require.Len(t, orders, 1)
	assert.Equal(t, "555-0100", orders[0].(map[string]interface{})["buyer"].(map[string]interface{})["phone"])

	rec = s.do(http.MethodPut, "/api/order/confirm/"+orderID, seller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode(t, rec)["order"].(map[string]interface{})["status"])

	rec = s.do(http.MethodPut, "/api/order/confirm/"+orderID, seller, nil)
	assertError(t, rec, http.StatusConflict, "ALREADY_CONFIRMED")

	rec = s.do(http.MethodPut, "/api/order/cancel/"+orderID, buyer, nil)
	assertError(t, rec, http.StatusConflict, "INVALID_TRANSITION")

	rec = s.do(http.MethodGet, "/api/order/buyer/orders", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var buyerOrders []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyerOrders))
	require.Len(t, buyerOrders, 1)
	assert.Equal(t, "Copper wire", buyerOrders[0]["product"].(map[string]interface{})["name"])

	rec = s.do(http.MethodDelete, "/api/product/"+productID, seller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/order/buyer/orders", buyer, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buyerOrders))
	assert.Nil(t, buyerOrders[0]["product"])
}

func TestCancelRestoresStock(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	seller := s.signup("seller@example.com", "seller")
	buyer := s.signup("buyer@example.com", "buyer")

	rec := s.listProduct(seller, map[string]string{"name": "Brass", "price": "1.50", "quantity": "4"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID := decode(t, rec)["product"].(map[string]interface{})["id"].(string)

	rec = s.do(http.MethodPost, "/api/order/place", buyer, map[string]interface{}{"product_id": productID, "quantity": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "6", decode(t, rec)["order"].(map[string]interface{})["total_amount"])
	orderID := decode(t, rec)["order"].(map[string]interface{})["id"].(string)

	rec = s.do(http.MethodGet, "/api/product/available-products", buyer, nil)
	assert.Empty(t, decode(t, rec)["products"])

	rec = s.do(http.MethodPut, "/api/order/cancel/"+orderID, buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/product/my-products", seller, nil)
	mine := decode(t, rec)["products"].([]interface{})
	require.Len(t, mine, 1)
	assert.EqualValues(t, 4, mine[0].(map[string]interface{})["quantity"])
	assert.Equal(t, "available", mine[0].(map[string]interface{})["status"])
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	seller := s.signup("seller@example.com", "seller")
	buyer := s.signup("buyer@example.com", "buyer")

	rec := s.do(http.MethodGet, "/api/product/my-products", "", nil)
	assertError(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")

	rec = s.do(http.MethodGet, "/api/product/my-products", buyer, nil)
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN_ROLE")

	rec = s.do(http.MethodGet, "/api/product/available-products", seller, nil)
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN_ROLE")

	rec = s.listProduct(buyer, map[string]string{"name": "x", "price": "1", "quantity": "1"}, nil)
	assertError(t, rec, http.StatusForbidden, "FORBIDDEN_ROLE")

	rec = s.do(http.MethodGet, "/api/product/products/not-a-uuid", buyer, nil)
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = s.do(http.MethodPost, "/api/auth/signout", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/product/my-products", seller, nil)
	assertError(t, rec, http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TestAuthErrors(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	s.signup("seller@example.com", "seller")

	rec := s.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Again", "email": "seller@example.com", "password": "password123",
		"role": "seller", "address": "a", "phone": "p",
	})
	assertError(t, rec, http.StatusConflict, "DUPLICATE_EMAIL")

	rec = s.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "Buyer", "email": "b@example.com", "password": "password123",
		"role": "buyer", "address": "a", "phone": "p",
	})
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = s.do(http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "seller@example.com", "password": "wrong-password",
	})
	assertError(t, rec, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	rec = s.do(http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "seller@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])
}

func TestListingRejectsBadImage(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	seller := s.signup("seller@example.com", "seller")

	rec := s.listProduct(seller, map[string]string{"name": "Tin", "price": "1", "quantity": "2"}, []byte("plain text"))
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")

	rec = s.listProduct(seller, map[string]string{"name": "Tin", "price": "abc", "quantity": "2"}, nil)
	assertError(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestExportMyProducts(t *testing.T) {
	s := newTestServer(t, 5*time.Second)
	seller := s.signup("seller@example.com", "seller")
	rec := s.listProduct(seller, map[string]string{"name": "Lead", "price": "3", "quantity": "2"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, "/api/product/my-products/export", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "my-products.xlsx")
	assert.Equal(t, "PK", string(rec.Body.Bytes()[:2]))
}

func TestStoreDeadlineIsRetryable(t *testing.T) {
	s := newTestServer(t, time.Nanosecond)
	token, err := auth.NewJWTService("test-secret", time.Hour).GenerateAccessToken(uuid.New(), model.RoleSeller)
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/product/my-products", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "STORE_TIMEOUT", body["code"])
	assert.Equal(t, true, body["retryable"])
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t, 5*time.Second)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scrapdeal_http_request_duration_seconds")

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	res := httptest.NewRecorder()
	s.e.ServeHTTP(res, req)
	assert.Equal(t, "http://localhost:5173", res.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, strconv.FormatBool(true), res.Header().Get(echo.HeaderAccessControlAllowCredentials))
}
