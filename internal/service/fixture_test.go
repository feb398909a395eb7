package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scrapdeal/internal/cache"
	"scrapdeal/internal/model"
	"scrapdeal/internal/repository"
	"scrapdeal/internal/testutil"
)

type fixture struct {
	db       *gorm.DB
	repos    repository.Repositories
	mr       *miniredis.Miniredis
	products ProductService
	orders   OrderService
	seller   *model.User
	buyer    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewDB(t))
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	cacheClient, mr := testutil.NewCache(t)
	repos := repository.NewRepositories(db)
	tx := repository.NewTxManager(db)

	f := &fixture{
		db:       db,
		repos:    repos,
		mr:       mr,
		products: NewProductService(repos, tx, cacheClient, nil),
		orders:   NewOrderService(repos, tx, cacheClient),
	}
	f.seller = f.newSeller(t, "seller@example.com", "1 Yard Rd")
	f.buyer = f.newBuyer(t, "buyer@example.com")
	return f
}

func (f *fixture) newSeller(t *testing.T, email, address string) *model.User {
	t.Helper()
	u := &model.User{
		Name:          "Seller " + email,
		Email:         email,
		PasswordHash:  "x",
		Role:          model.RoleSeller,
		SellerProfile: &model.SellerProfile{Address: address, Phone: "555-0100"},
	}
	require.NoError(t, f.repos.Users.CreateWithProfile(context.Background(), u))
	return u
}

func (f *fixture) newBuyer(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "Buyer " + email,
		Email:        email,
		PasswordHash: "x",
		Role:         model.RoleBuyer,
		BuyerProfile: &model.BuyerProfile{Address: "2 Dock St", Phone: "555-0199", BusinessName: "Metals Ltd"},
	}
	require.NoError(t, f.repos.Users.CreateWithProfile(context.Background(), u))
	return u
}

func (f *fixture) newProduct(t *testing.T, qty, minQty int, price int64) *model.Product {
	t.Helper()
	p, err := f.products.CreateListing(context.Background(), f.seller.ID, CreateListingInput{
		Name:        "Copper wire",
		Type:        "metal",
		Price:       decimal.NewFromInt(price),
		Quantity:    qty,
		MinOrderQty: minQty,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *model.Product {
	t.Helper()
	p, err := f.repos.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// detailKey is the cache key a product detail lives under at its current generation.
func (f *fixture) detailKey(id uuid.UUID) string {
	var gen int64
	if v, err := f.mr.Get(cache.ProductGenerationKey(id.String())); err == nil {
		gen, _ = strconv.ParseInt(v, 10, 64)
	}
	return cache.ProductKey(id.String(), gen)
}
