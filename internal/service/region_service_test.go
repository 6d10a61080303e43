package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
)

type regionTestEnv struct {
	svc       RegionService
	orderRepo *stubOrderRepo
	stock     *stubStock
}

func newRegionTestEnv() *regionTestEnv {
	env := &regionTestEnv{
		orderRepo: newStubOrderRepo(),
		stock:     &stubStock{level: 100},
	}
	regions := &stubRegionRepo{regions: map[uint]*model.Region{
		1: {
			ID: 1, Name: "UK", Active: true,
			PostagePrice: 500, PostagePerKG: 100, MaxWeight: 15,
			Country: model.Country{VATRequired: model.VATAlways, Currency: model.Currency{Symbol: "£", ExchangeRate: 1}},
		},
		2: {ID: 2, Name: "Retired", Active: false},
	}}
	cat := &stubCatalog{
		products: map[string]*catalog.Product{
			"ABC-001": {SKU: "ABC-001", WeightGrams: 500, PurchasePrice: 450},
		},
	}
	env.svc = NewRegionService(regions, env.orderRepo, &stubAuditRepo{}, cat, env.stock, nil, zap.NewNop())
	return env
}

func TestCalculatePrice(t *testing.T) {
	env := newRegionTestEnv()

	result, err := env.svc.CalculatePrice(context.Background(), &PriceCalculationRequest{
		SKU:          "ABC-001",
		RegionID:     1,
		SellingPrice: 30,
		FBAFee:       2.5,
		Quantity:     10,
	})
	require.NoError(t, err)

	assert.Equal(t, 12.5, result.Profit)
	assert.Equal(t, "£", result.CurrencySymbol)
	assert.Equal(t, 30, result.MaxQuantity)
}

func TestCalculatePriceLookupFailures(t *testing.T) {
	env := newRegionTestEnv()
	ctx := context.Background()

	_, err := env.svc.CalculatePrice(ctx, &PriceCalculationRequest{SKU: "MISSING", RegionID: 1, SellingPrice: 10, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.CalculatePrice(ctx, &PriceCalculationRequest{SKU: "ABC-001", RegionID: 99, SellingPrice: 10, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.CalculatePrice(ctx, &PriceCalculationRequest{SKU: "ABC-001", RegionID: 2, SellingPrice: 10, Quantity: 1})
	assert.ErrorIs(t, err, ErrDomainRule, "inactive region rejected")
}

func TestCalculatePriceSurfacesStockFailure(t *testing.T) {
	env := newRegionTestEnv()
	env.stock.levelErr = errors.New("platform unreachable")

	_, err := env.svc.CalculatePrice(context.Background(), &PriceCalculationRequest{
		SKU: "ABC-001", RegionID: 1, SellingPrice: 30, Quantity: 1,
	})
	assert.ErrorIs(t, err, ErrStockUnavailable, "never answer with a quantity based on made-up stock")
}

func TestDeleteRegionWithOpenOrders(t *testing.T) {
	env := newRegionTestEnv()
	env.orderRepo.add(&model.FBAOrder{RegionID: 1, ProductSKU: "ABC-001"})

	err := env.svc.Delete(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrDomainRule)
}

func TestDeleteRegionWithoutOrders(t *testing.T) {
	env := newRegionTestEnv()
	require.NoError(t, env.svc.Delete(context.Background(), "", 1))
}
