package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"scrapdeal/internal/auth"
	"scrapdeal/internal/model"
	"scrapdeal/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest represents an account creation request.
type SignupRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Role         string `json:"role" example:"seller"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
}

// SigninRequest represents a login request.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toAuthResponse(s *service.Session) AuthResponse {
	return AuthResponse{
		Token: s.Token,
		User: UserResponse{
			ID:    s.User.ID,
			Name:  s.User.Name,
			Email: s.User.Email,
			Role:  s.User.Role,
		},
	}
}

// Signup godoc
// @Summary Create an account with its buyer or seller profile
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	session, err := h.authService.Signup(c.Request().Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
		Profile: service.ProfileFields{
			Address:      req.Address,
			Phone:        req.Phone,
			BusinessName: req.BusinessName,
		},
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, toAuthResponse(session))
}

// Signin godoc
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SigninRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) Signin(c echo.Context) error {
	var req SigninRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	session, err := h.authService.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, toAuthResponse(session))
}

// Signout godoc
// @Summary Revoke the presented token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signout [post]
func (h *AuthHandler) Signout(c echo.Context) error {
	claims, ok := auth.CurrentUser(c)
	if !ok {
		_, err := callerID(c)
		return err
	}

	if err := h.authService.Signout(c.Request().Context(), claims); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "signed out successfully"})
}
