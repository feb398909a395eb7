package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scrapdeal/internal/model"
)

// UserRepository defines identity persistence operations.
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindSellerProfile(ctx context.Context, userID uuid.UUID) (*model.SellerProfile, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateWithProfile inserts the user and whichever profile is attached in one transaction.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		if p := user.SellerProfile; p != nil {
			p.UserID = user.ID
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("create seller profile: %w", err)
			}
		}
		if p := user.BuyerProfile; p != nil {
			p.UserID = user.ID
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("create buyer profile: %w", err)
			}
		}
		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindSellerProfile(ctx context.Context, userID uuid.UUID) (*model.SellerProfile, error) {
	var profile model.SellerProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
