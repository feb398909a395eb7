package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"scrapdeal/internal/auth"
	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
)

const bcryptCost = 10

var validate = validator.New()

// ProfileFields carries the role specific signup details.
type ProfileFields struct {
	Address      string
	Phone        string
	BusinessName string
}

// SignupInput is everything needed to open an account.
type SignupInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     model.Role
	Profile  ProfileFields
}

// Session is an authenticated identity with its bearer token.
type Session struct {
	Token string
	User  *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*Session, error)
	Signin(ctx context.Context, email, password string) (*Session, error)
	Signout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

// Signup creates the user and its role profile atomically and issues a token.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateSignup(in); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
		Role:         in.Role,
	}
	switch in.Role {
	case model.RoleSeller:
		user.SellerProfile = &model.SellerProfile{Address: in.Profile.Address, Phone: in.Profile.Phone}
	case model.RoleBuyer:
		user.BuyerProfile = &model.BuyerProfile{
			Address:      in.Profile.Address,
			Phone:        in.Profile.Phone,
			BusinessName: in.Profile.BusinessName,
		}
	}

	if err := s.userRepo.CreateWithProfile(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.L.InfoContext(ctx, "user signed up",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Signin verifies the credentials and issues a token.
func (s *authService) Signin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Signout revokes the presented token for the rest of its lifetime.
func (s *authService) Signout(ctx context.Context, claims *auth.Claims) error {
	if err := s.tokenStore.BlacklistAccessToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *authService) issue(user *model.User) (*Session, error) {
	token, err := s.jwtService.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

func validateSignup(in SignupInput) error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.Validation(describeField(verrs[0]))
		}
		return apperrors.Validation(err.Error())
	}
	if len(in.Password) > maxPasswordBytes {
		return apperrors.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if !in.Role.Valid() {
		return apperrors.Validation("role must be either 'buyer' or 'seller'")
	}
	if strings.TrimSpace(in.Profile.Address) == "" || strings.TrimSpace(in.Profile.Phone) == "" {
		return apperrors.Validation("address and phone are required")
	}
	if in.Role == model.RoleBuyer && strings.TrimSpace(in.Profile.BusinessName) == "" {
		return apperrors.Validation("business name is required for buyer")
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
