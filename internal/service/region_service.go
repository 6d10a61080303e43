package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/pricing"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/internal/stock"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const exchangeRateCacheTTL = time.Hour

// CreateRegionRequest carries the rate card and policy for a new region.
type CreateRegionRequest struct {
	Name               string  `json:"name" binding:"required"`
	CountryID          uint    `json:"country_id" binding:"required"`
	PostagePrice       int     `json:"postage_price" binding:"required,min=0"`
	PostagePerKG       int     `json:"postage_per_kg" binding:"min=0"`
	PostageOverheadG   int     `json:"postage_overhead_g" binding:"min=0"`
	MinShippingCost    int     `json:"min_shipping_cost" binding:"min=0"`
	MaxWeight          int     `json:"max_weight" binding:"required,min=1"`
	MaxSize            float64 `json:"max_size" binding:"min=0"`
	FulfillmentUnit    string  `json:"fulfillment_unit" binding:"omitempty,oneof=METRIC IMPERIAL"`
	AutoClose          bool    `json:"auto_close"`
	WarehouseRequired  bool    `json:"warehouse_required"`
	ExpiryDateRequired bool    `json:"expiry_date_required"`
	Position           int     `json:"position"`
}

// UpdateRegionRequest updates a region in place. Pointer fields are left
// unchanged when omitted.
type UpdateRegionRequest struct {
	Name               *string  `json:"name"`
	CountryID          *uint    `json:"country_id"`
	PostagePrice       *int     `json:"postage_price" binding:"omitempty,min=0"`
	PostagePerKG       *int     `json:"postage_per_kg" binding:"omitempty,min=0"`
	PostageOverheadG   *int     `json:"postage_overhead_g" binding:"omitempty,min=0"`
	MinShippingCost    *int     `json:"min_shipping_cost" binding:"omitempty,min=0"`
	MaxWeight          *int     `json:"max_weight" binding:"omitempty,min=1"`
	MaxSize            *float64 `json:"max_size" binding:"omitempty,min=0"`
	FulfillmentUnit    *string  `json:"fulfillment_unit" binding:"omitempty,oneof=METRIC IMPERIAL"`
	AutoClose          *bool    `json:"auto_close"`
	WarehouseRequired  *bool    `json:"warehouse_required"`
	ExpiryDateRequired *bool    `json:"expiry_date_required"`
	Active             *bool    `json:"active"`
	Position           *int     `json:"position"`
}

// PriceCalculationRequest asks for the margin breakdown of listing a product
// in a region at a given local selling price.
type PriceCalculationRequest struct {
	SKU          string  `json:"sku" binding:"required"`
	RegionID     uint    `json:"region_id" binding:"required"`
	SellingPrice float64 `json:"selling_price" binding:"required,gt=0"`
	FBAFee       float64 `json:"fba_fee" binding:"min=0"`
	Quantity     int     `json:"quantity" binding:"required,min=1"`
	ZeroRated    bool    `json:"zero_rated"`
}

// RegionService manages shipping regions and exposes the price calculator.
type RegionService interface {
	List(ctx context.Context, activeOnly bool) ([]model.Region, error)
	Get(ctx context.Context, id uint) (*model.Region, error)
	Create(ctx context.Context, userID string, req *CreateRegionRequest) (*model.Region, error)
	Update(ctx context.Context, userID string, id uint, req *UpdateRegionRequest) (*model.Region, error)
	Delete(ctx context.Context, userID string, id uint) error
	UpdateExchangeRates(ctx context.Context, rates map[string]float64) (int, error)
	CalculatePrice(ctx context.Context, req *PriceCalculationRequest) (*pricing.Result, error)
}

type regionService struct {
	regionRepo repository.RegionRepository
	orderRepo  repository.FBAOrderRepository
	auditRepo  repository.AuditRepository
	catalog    catalog.Catalog
	stock      stock.Adapter
	redis      *redis.Client
	logger     *zap.Logger
}

func NewRegionService(
	regionRepo repository.RegionRepository,
	orderRepo repository.FBAOrderRepository,
	auditRepo repository.AuditRepository,
	cat catalog.Catalog,
	stockAdapter stock.Adapter,
	redisClient *redis.Client,
	logger *zap.Logger,
) RegionService {
	return &regionService{
		regionRepo: regionRepo,
		orderRepo:  orderRepo,
		auditRepo:  auditRepo,
		catalog:    cat,
		stock:      stockAdapter,
		redis:      redisClient,
		logger:     logger,
	}
}

func (s *regionService) List(ctx context.Context, activeOnly bool) ([]model.Region, error) {
	regions, err := s.regionRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

func (s *regionService) Get(ctx context.Context, id uint) (*model.Region, error) {
	region, err := s.regionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: region %d", ErrNotFound, id)
	}
	return region, nil
}

func (s *regionService) Create(ctx context.Context, userID string, req *CreateRegionRequest) (*model.Region, error) {
	if _, err := s.regionRepo.FindCountry(ctx, req.CountryID); err != nil {
		return nil, fmt.Errorf("%w: country %d", ErrNotFound, req.CountryID)
	}

	region := &model.Region{
		Name:               req.Name,
		CountryID:          req.CountryID,
		PostagePrice:       req.PostagePrice,
		PostagePerKG:       req.PostagePerKG,
		PostageOverheadG:   req.PostageOverheadG,
		MinShippingCost:    req.MinShippingCost,
		MaxWeight:          req.MaxWeight,
		MaxSize:            req.MaxSize,
		FulfillmentUnit:    req.FulfillmentUnit,
		AutoClose:          req.AutoClose,
		WarehouseRequired:  req.WarehouseRequired,
		ExpiryDateRequired: req.ExpiryDateRequired,
		Active:             true,
		Position:           req.Position,
	}
	if region.FulfillmentUnit == "" {
		region.FulfillmentUnit = "METRIC"
	}
	if err := s.regionRepo.Create(ctx, region); err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}

	s.audit(ctx, userID, model.ActionUpdateRegion, region.ID, "region",
		map[string]interface{}{"created": region.Name})
	return s.regionRepo.FindByID(ctx, region.ID)
}

func (s *regionService) Update(ctx context.Context, userID string, id uint, req *UpdateRegionRequest) (*model.Region, error) {
	region, err := s.regionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: region %d", ErrNotFound, id)
	}

	if req.CountryID != nil {
		if _, err := s.regionRepo.FindCountry(ctx, *req.CountryID); err != nil {
			return nil, fmt.Errorf("%w: country %d", ErrNotFound, *req.CountryID)
		}
		region.CountryID = *req.CountryID
	}
	if req.Name != nil {
		region.Name = *req.Name
	}
	if req.PostagePrice != nil {
		region.PostagePrice = *req.PostagePrice
	}
	if req.PostagePerKG != nil {
		region.PostagePerKG = *req.PostagePerKG
	}
	if req.PostageOverheadG != nil {
		region.PostageOverheadG = *req.PostageOverheadG
	}
	if req.MinShippingCost != nil {
		region.MinShippingCost = *req.MinShippingCost
	}
	if req.MaxWeight != nil {
		region.MaxWeight = *req.MaxWeight
	}
	if req.MaxSize != nil {
		region.MaxSize = *req.MaxSize
	}
	if req.FulfillmentUnit != nil {
		region.FulfillmentUnit = *req.FulfillmentUnit
	}
	if req.AutoClose != nil {
		region.AutoClose = *req.AutoClose
	}
	if req.WarehouseRequired != nil {
		region.WarehouseRequired = *req.WarehouseRequired
	}
	if req.ExpiryDateRequired != nil {
		region.ExpiryDateRequired = *req.ExpiryDateRequired
	}
	if req.Active != nil {
		region.Active = *req.Active
	}
	if req.Position != nil {
		region.Position = *req.Position
	}

	if err := s.regionRepo.Update(ctx, region); err != nil {
		return nil, fmt.Errorf("failed to update region: %w", err)
	}

	s.audit(ctx, userID, model.ActionUpdateRegion, region.ID, "region",
		map[string]interface{}{"updated": region.Name})
	return s.regionRepo.FindByID(ctx, region.ID)
}

// Delete removes a region. Regions with open orders cannot be removed; they
// should be deactivated instead.
func (s *regionService) Delete(ctx context.Context, userID string, id uint) error {
	region, err := s.regionRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: region %d", ErrNotFound, id)
	}
	open, err := s.orderRepo.CountOpenByRegion(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count open orders: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("%w: region %q has %d open orders", ErrDomainRule, region.Name, open)
	}
	if err := s.regionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete region: %w", err)
	}
	s.audit(ctx, userID, model.ActionUpdateRegion, id, "region",
		map[string]interface{}{"deleted": region.Name})
	return nil
}

// UpdateExchangeRates applies freshly fetched GBP conversion rates to the
// currency table and caches them in redis for readers that do not need the
// database. Unknown codes are skipped with a warning. Returns the number of
// currencies updated.
func (s *regionService) UpdateExchangeRates(ctx context.Context, rates map[string]float64) (int, error) {
	updated := 0
	for code, rate := range rates {
		if rate <= 0 {
			s.logger.Warn("ignoring non-positive exchange rate",
				zap.String("code", code), zap.Float64("rate", rate))
			continue
		}
		cur, err := s.regionRepo.FindCurrencyByCode(ctx, code)
		if err != nil {
			s.logger.Warn("exchange rate for unknown currency", zap.String("code", code))
			continue
		}
		cur.ExchangeRate = rate
		if err := s.regionRepo.SaveCurrency(ctx, cur); err != nil {
			return updated, fmt.Errorf("failed to save rate for %s: %w", code, err)
		}
		key := fmt.Sprintf("fba:exchange_rate:%s", code)
		if err := s.redis.Set(ctx, key, rate, exchangeRateCacheTTL).Err(); err != nil {
			s.logger.Warn("failed to cache exchange rate", zap.String("code", code), zap.Error(err))
		}
		updated++
	}
	s.logger.Info("exchange rates refreshed", zap.Int("updated", updated))
	return updated, nil
}

// CalculatePrice runs the margin calculator for a product/region pair. Stock
// level comes from the inventory system; a failed lookup fails the
// calculation so the caller never sees a quantity based on made-up stock.
func (s *regionService) CalculatePrice(ctx context.Context, req *PriceCalculationRequest) (*pricing.Result, error) {
	product, err := s.catalog.Product(ctx, req.SKU)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, req.SKU)
	}
	region, err := s.regionRepo.FindByID(ctx, req.RegionID)
	if err != nil {
		return nil, fmt.Errorf("%w: region %d", ErrNotFound, req.RegionID)
	}
	if !region.Active {
		return nil, fmt.Errorf("%w: region %q is inactive", ErrDomainRule, region.Name)
	}

	stockLevel, err := s.stock.GetStockLevel(ctx, req.SKU)
	if err != nil {
		s.logger.Error("stock level unavailable for price calculation",
			zap.String("sku", req.SKU), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStockUnavailable, err)
	}

	result, err := pricing.Calculate(pricing.Input{
		SellingPrice:  req.SellingPrice,
		Region:        region,
		PurchasePrice: product.PurchasePrice,
		FBAFee:        req.FBAFee,
		ProductWeight: product.WeightGrams,
		StockLevel:    stockLevel,
		ZeroRated:     req.ZeroRated,
		Quantity:      req.Quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return &result, nil
}

func (s *regionService) audit(ctx context.Context, userID, action string, entityID uint, entityName string, details interface{}) {
	auditWrite(ctx, s.auditRepo, s.logger, userID, action, entityID, entityName, details)
}
