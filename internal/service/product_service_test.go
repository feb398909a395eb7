package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"scrapdeal/internal/cache"
	apperrors "scrapdeal/internal/errors"
	"scrapdeal/internal/model"
)

func TestProductService_CreateListingValidation(t *testing.T) {
	f := newFixture(t)

	valid := CreateListingInput{Name: "Steel beams", Price: decimal.NewFromInt(5), Quantity: 10, MinOrderQty: 2}
	tests := []struct {
		name   string
		mutate func(*CreateListingInput)
	}{
		{"missing name", func(in *CreateListingInput) { in.Name = "  " }},
		{"negative price", func(in *CreateListingInput) { in.Price = decimal.NewFromInt(-1) }},
		{"zero quantity", func(in *CreateListingInput) { in.Quantity = 0; in.MinOrderQty = 0 }},
		{"negative minimum", func(in *CreateListingInput) { in.MinOrderQty = -1 }},
		{"quantity below minimum", func(in *CreateListingInput) { in.Quantity = 3; in.MinOrderQty = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.products.CreateListing(context.Background(), f.seller.ID, in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestProductService_CreateListingCopiesPickupLocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := f.newProduct(t, 10, 2, 3)
	assert.Equal(t, "1 Yard Rd", p.PickupLocation)
	assert.Equal(t, model.ProductStatusAvailable, p.Status)
	assert.Equal(t, f.seller.ID, p.SellerID)

	require.NoError(t, f.db.Model(&model.SellerProfile{}).Where("user_id = ?", f.seller.ID).
		Update("address", "77 New Site").Error)
	assert.Equal(t, "1 Yard Rd", f.reload(t, p.ID).PickupLocation)

	next, err := f.products.CreateListing(ctx, f.seller.ID, CreateListingInput{
		Name: "Aluminium", Price: decimal.Zero, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "77 New Site", next.PickupLocation)
}

func TestProductService_CreateListingRequiresSellerWithAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := CreateListingInput{Name: "Brass", Price: decimal.NewFromInt(1), Quantity: 1}

	_, err := f.products.CreateListing(ctx, f.buyer.ID, in)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.products.CreateListing(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	noAddress := f.newSeller(t, "noaddr@example.com", "")
	_, err = f.products.CreateListing(ctx, noAddress.ID, in)
	assert.ErrorIs(t, err, apperrors.ErrProfileMissing)
}

func TestProductService_GetByIDJoinsSellerAndCaches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.newProduct(t, 10, 2, 3)

	detail, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, detail.ID)
	assert.Equal(t, f.seller.Email, detail.SellerInfo.Email)
	assert.Equal(t, "1 Yard Rd", detail.SellerContact.Address)
	assert.Equal(t, "555-0100", detail.SellerContact.Phone)
	assert.True(t, f.mr.Exists(f.detailKey(p.ID)))
	assert.Equal(t, cache.ProductTTL, f.mr.TTL(f.detailKey(p.ID)))

	// A second read is served from cache even if the row changes underneath.
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("name", "Renamed").Error)
	cached, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Copper wire", cached.Name)
	assert.Equal(t, f.seller.Email, cached.SellerInfo.Email)

	_, err = f.products.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
}

func TestProductService_GetByIDWorksWithoutRedis(t *testing.T) {
	f := newFixture(t)
	p := f.newProduct(t, 10, 2, 3)
	f.mr.Close()

	detail, err := f.products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, detail.ID)
}

func TestProductService_ListAvailableExcludesSold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	open := f.newProduct(t, 10, 0, 3)
	soldOut := f.newProduct(t, 2, 0, 3)

	_, err := f.orders.PlaceOrder(ctx, f.buyer.ID, soldOut.ID, 2)
	require.NoError(t, err)

	products, err := f.products.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, open.ID, products[0].ID)
	require.NotNil(t, products[0].Seller)
	assert.Equal(t, f.seller.Name, products[0].Seller.Name)

	mine, err := f.products.ListBySeller(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestProductService_DeleteListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.newProduct(t, 10, 0, 3)
	otherSeller := f.newSeller(t, "other-seller@example.com", "9 Mill Ln")

	order, err := f.orders.PlaceOrder(ctx, f.buyer.ID, p.ID, 2)
	require.NoError(t, err)

	err = f.products.DeleteListing(ctx, p.ID, otherSeller.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = f.products.DeleteListing(ctx, p.ID, f.seller.ID)
	assert.ErrorIs(t, err, apperrors.ErrHasPendingOrders)

	_, err = f.orders.ConfirmOrder(ctx, f.seller.ID, order.ID)
	require.NoError(t, err)
	_, err = f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.products.DeleteListing(ctx, p.ID, f.seller.ID))
	assert.False(t, f.mr.Exists(f.detailKey(p.ID)))

	_, err = f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	err = f.products.DeleteListing(ctx, p.ID, f.seller.ID)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)

	// Confirmed orders outlive the product.
	orders, err := f.orders.ListByBuyer(ctx, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Nil(t, orders[0].Product)
	_, err = f.orders.ListByProduct(ctx, p.ID, f.seller.ID)
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
}

func TestProductService_ExportBySeller(t *testing.T) {
	f := newFixture(t)
	f.newProduct(t, 10, 2, 3)
	f.newProduct(t, 4, 1, 7)

	var buf bytes.Buffer
	require.NoError(t, f.products.ExportBySeller(context.Background(), f.seller.ID, &buf))

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	sheet := book.Sheets[0]
	assert.Equal(t, "Listings", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "Name", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "Copper wire", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "1 Yard Rd", sheet.Rows[1].Cells[7].String())
}
