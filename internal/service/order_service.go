package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/internal/stock"
	ws "github.com/stcadmin/fba-backend/internal/websocket"
	"github.com/stcadmin/fba-backend/pkg/currency"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// repeatOrderMaxAge is how old an order may be and still be repeated.
const repeatOrderMaxAge = 30 * 24 * time.Hour

// DTOs
type CreateFBAOrderRequest struct {
	RegionID            uint   `json:"region_id" binding:"required"`
	ProductSKU          string `json:"product_sku" binding:"required"`
	SellingPrice        int    `json:"selling_price" binding:"required,gt=0"` // minor units, local
	FBAFee              int    `json:"fba_fee" binding:"min=0"`               // minor units, local
	ApproximateQuantity int    `json:"approximate_quantity" binding:"required,gt=0"`
	OnHold              bool   `json:"on_hold"`
	IsCombinable        bool   `json:"is_combinable"`
	IsFragile           bool   `json:"is_fragile"`
	SmallAndLight       bool   `json:"small_and_light"`
	UpdateStockLevel    *bool  `json:"update_stock_level_when_complete"`
	Notes               string `json:"notes"`
}

type UpdateFBAOrderRequest struct {
	RegionID            *uint   `json:"region_id"`
	SellingPrice        *int    `json:"selling_price" binding:"omitempty,gt=0"`
	FBAFee              *int    `json:"fba_fee" binding:"omitempty,min=0"`
	ApproximateQuantity *int    `json:"approximate_quantity" binding:"omitempty,gt=0"`
	OnHold              *bool   `json:"on_hold"`
	IsStopped           *bool   `json:"is_stopped"`
	StoppedUntil        *string `json:"stopped_until"` // YYYY-MM-DD
	StoppedReason       *string `json:"stopped_reason"`
	IsCombinable        *bool   `json:"is_combinable"`
	IsFragile           *bool   `json:"is_fragile"`
	SmallAndLight       *bool   `json:"small_and_light"`
	Printed             *bool   `json:"printed"`
	UpdateStockLevel    *bool   `json:"update_stock_level_when_complete"`
	Notes               *string `json:"notes"`
}

type FulfillFBAOrderRequest struct {
	BoxWeight        float64 `json:"box_weight" binding:"required,gt=0"` // kg
	QuantitySent     int     `json:"quantity_sent" binding:"required,gt=0"`
	CollectionBooked bool    `json:"collection_booked"`
	UpdateStockLevel *bool   `json:"update_stock_level_when_complete"`
	Notes            string  `json:"notes"`
}

type ListFBAOrdersRequest struct {
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	ClosedFrom  *time.Time
	ClosedTo    *time.Time
	RegionID    *uint
	Supplier    string
	FulfilledBy *uuid.UUID
	Closed      *bool
	Prioritised *bool
	Search      string
	Sort        string
	Page        int
	Limit       int
}

type FBAOrderResponse struct {
	ID                  uint     `json:"id"`
	Status              string   `json:"status"`
	RegionName          string   `json:"region_name"`
	CurrencySymbol      string   `json:"currency_symbol"`
	ProductSKU          string   `json:"product_sku"`
	ProductRangeName    string   `json:"product_range_name"`
	ProductASIN         string   `json:"product_asin"`
	ProductImageURL     string   `json:"product_image_url"`
	ProductWeight       int      `json:"product_weight"`
	SellingPrice        string   `json:"selling_price"`
	FBAFee              string   `json:"fba_fee"`
	ApproximateQuantity int      `json:"approximate_quantity"`
	QuantitySent        *int     `json:"quantity_sent"`
	BoxWeight           *float64 `json:"box_weight"`
	Priority            int      `json:"priority"`
	Prioritised         bool     `json:"prioritised"`
	OnHold              bool     `json:"on_hold"`
	IsStopped           bool     `json:"is_stopped"`
	StoppedReason       string   `json:"stopped_reason,omitempty"`
	Printed             bool     `json:"printed"`
	SmallAndLight       bool     `json:"small_and_light"`
	IsCombinable        bool     `json:"is_combinable"`
	IsFragile           bool     `json:"is_fragile"`
	Notes               string   `json:"notes"`
	TrackingNumbers     []string `json:"tracking_numbers"`
	FulfilledBy         string   `json:"fulfilled_by,omitempty"`
	CreatedAt           string   `json:"created_at"`
	ClosedAt            string   `json:"closed_at,omitempty"`
}

// FulfillResult is the typed message bag returned by the fulfillment
// pipeline: which stages ran and what the user should be told.
type FulfillResult struct {
	Order        *FBAOrderResponse `json:"order"`
	Closed       bool              `json:"closed"`
	StockUpdated bool              `json:"stock_updated"`
	Messages     []string          `json:"messages"`
}

// Websocket payload for dashboard updates
type OrderEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type OrderService interface {
	Create(ctx context.Context, userID string, req CreateFBAOrderRequest) (*FBAOrderResponse, error)
	Update(ctx context.Context, userID string, id uint, req UpdateFBAOrderRequest) (*FBAOrderResponse, error)
	Get(ctx context.Context, id uint) (*FBAOrderResponse, error)
	List(ctx context.Context, req ListFBAOrdersRequest) ([]FBAOrderResponse, int64, error)
	AwaitingFulfillment(ctx context.Context) ([]FBAOrderResponse, error)
	Prioritise(ctx context.Context, userID string, id uint) error
	Close(ctx context.Context, userID string, id uint) (*FBAOrderResponse, error)
	Fulfill(ctx context.Context, userID string, id uint, req FulfillFBAOrderRequest) (*FulfillResult, error)
	UpdateTrackingNumbers(ctx context.Context, userID string, id uint, numbers []string) (*FBAOrderResponse, error)
	Repeat(ctx context.Context, userID string, id uint) (*FBAOrderResponse, error)
	Delete(ctx context.Context, userID string, id uint) error
}

type orderService struct {
	orderRepo  repository.FBAOrderRepository
	regionRepo repository.RegionRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	catalog    catalog.Catalog
	stock      stock.Adapter
	hub        *ws.Hub
	logger     *zap.Logger
	debug      bool

	prioritiseMu sync.Mutex
}

func NewOrderService(
	orderRepo repository.FBAOrderRepository,
	regionRepo repository.RegionRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cat catalog.Catalog,
	stockAdapter stock.Adapter,
	hub *ws.Hub,
	logger *zap.Logger,
	debug bool,
) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		regionRepo: regionRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		catalog:    cat,
		stock:      stockAdapter,
		hub:        hub,
		logger:     logger,
		debug:      debug,
	}
}

func orderToResponse(o *model.FBAOrder) *FBAOrderResponse {
	symbol := o.Region.Country.Currency.Symbol
	resp := &FBAOrderResponse{
		ID:                  o.ID,
		Status:              o.Status(),
		RegionName:          o.Region.Name,
		CurrencySymbol:      symbol,
		ProductSKU:          o.ProductSKU,
		ProductRangeName:    o.ProductRangeName,
		ProductASIN:         o.ProductASIN,
		ProductImageURL:     o.ProductImageURL,
		ProductWeight:       o.ProductWeight,
		SellingPrice:        currency.FormatPrice(symbol, o.SellingPrice),
		FBAFee:              currency.FormatPrice(symbol, o.FBAFee),
		ApproximateQuantity: o.ApproximateQuantity,
		QuantitySent:        o.QuantitySent,
		BoxWeight:           o.BoxWeight,
		Priority:            o.Priority,
		Prioritised:         o.IsPrioritised(),
		OnHold:              o.OnHold,
		IsStopped:           o.IsStopped,
		StoppedReason:       o.StoppedReason,
		Printed:             o.Printed,
		SmallAndLight:       o.SmallAndLight,
		IsCombinable:        o.IsCombinable,
		IsFragile:           o.IsFragile,
		Notes:               o.Notes,
		CreatedAt:           o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, tn := range o.TrackingNumbers {
		resp.TrackingNumbers = append(resp.TrackingNumbers, tn.TrackingNumber)
	}
	if o.ClosedAt != nil {
		resp.ClosedAt = o.ClosedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if o.Fulfiller != nil {
		resp.FulfilledBy = o.Fulfiller.Username
	}
	return resp
}

func (s *orderService) audit(ctx context.Context, userID, action string, entityID uint, entityName string, details interface{}) {
	auditWrite(ctx, s.auditRepo, s.logger, userID, action, entityID, entityName, details)
}

func (s *orderService) broadcast(event string, orderID uint, status string) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(OrderEvent{
		Event: event,
		Data:  map[string]interface{}{"order_id": orderID, "status": status},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func (s *orderService) Create(ctx context.Context, userID string, req CreateFBAOrderRequest) (*FBAOrderResponse, error) {
	region, err := s.regionRepo.FindByID(ctx, req.RegionID)
	if err != nil {
		return nil, fmt.Errorf("%w: region %d", ErrNotFound, req.RegionID)
	}
	if !region.Active {
		return nil, fmt.Errorf("%w: region %s is inactive", ErrValidation, region.Name)
	}

	product, err := s.catalog.Product(ctx, req.ProductSKU)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, req.ProductSKU)
	}
	if product.WeightGrams <= 0 {
		return nil, fmt.Errorf("%w: product %s has no weight recorded", ErrValidation, product.SKU)
	}

	supplierName := ""
	if supplier, err := s.catalog.Supplier(ctx, product.SupplierID); err == nil {
		supplierName = supplier.Name
	}

	updateStock := true
	if req.UpdateStockLevel != nil {
		updateStock = *req.UpdateStockLevel
	}

	order := &model.FBAOrder{
		RegionID:                     region.ID,
		ProductSKU:                   product.SKU,
		ProductRangeName:             product.RangeName,
		ProductWeight:                product.WeightGrams,
		ProductHSCode:                product.HSCode,
		ProductASIN:                  product.ASIN,
		ProductImageURL:              product.ImageURL,
		ProductPurchasePrice:         product.PurchasePrice,
		ProductIsMultipack:           product.IsMultipack(),
		SupplierName:                 supplierName,
		SellingPrice:                 req.SellingPrice,
		FBAFee:                       req.FBAFee,
		ApproximateQuantity:          req.ApproximateQuantity,
		OnHold:                       req.OnHold,
		IsCombinable:                 req.IsCombinable,
		IsFragile:                    req.IsFragile,
		SmallAndLight:                req.SmallAndLight,
		Priority:                     model.MaxPriority,
		UpdateStockLevelWhenComplete: updateStock,
		Notes:                        req.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create FBA order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionCreateOrder, order.ID, order.ProductSKU, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("fba_order_created", order.ID, order.Status())
	return s.Get(ctx, order.ID)
}

func (s *orderService) Update(ctx context.Context, userID string, id uint, req UpdateFBAOrderRequest) (*FBAOrderResponse, error) {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		if order.IsClosed() {
			return fmt.Errorf("%w: order %d is already fulfilled", ErrDomainRule, id)
		}

		if req.RegionID != nil && *req.RegionID != order.RegionID {
			region, err := s.regionRepo.FindByID(txCtx, *req.RegionID)
			if err != nil {
				return fmt.Errorf("%w: region %d", ErrNotFound, *req.RegionID)
			}
			if !region.Active {
				return fmt.Errorf("%w: cannot move order to inactive region %s", ErrValidation, region.Name)
			}
			order.RegionID = region.ID
		}
		if req.SellingPrice != nil {
			order.SellingPrice = *req.SellingPrice
		}
		if req.FBAFee != nil {
			order.FBAFee = *req.FBAFee
		}
		if req.ApproximateQuantity != nil {
			order.ApproximateQuantity = *req.ApproximateQuantity
		}
		if req.OnHold != nil {
			order.OnHold = *req.OnHold
		}
		if req.IsStopped != nil {
			if *req.IsStopped && !order.IsStopped {
				now := time.Now()
				order.StoppedAt = &now
			}
			if !*req.IsStopped {
				order.StoppedAt = nil
				order.StoppedUntil = nil
				order.StoppedReason = ""
			}
			order.IsStopped = *req.IsStopped
		}
		if req.StoppedUntil != nil {
			until, err := time.Parse("2006-01-02", *req.StoppedUntil)
			if err != nil {
				return fmt.Errorf("%w: invalid stopped_until date %q", ErrValidation, *req.StoppedUntil)
			}
			order.StoppedUntil = &until
		}
		if req.StoppedReason != nil {
			order.StoppedReason = *req.StoppedReason
		}
		if req.IsCombinable != nil {
			order.IsCombinable = *req.IsCombinable
		}
		if req.IsFragile != nil {
			order.IsFragile = *req.IsFragile
		}
		if req.SmallAndLight != nil {
			order.SmallAndLight = *req.SmallAndLight
		}
		if req.Printed != nil {
			order.Printed = *req.Printed
		}
		if req.UpdateStockLevel != nil {
			order.UpdateStockLevelWhenComplete = *req.UpdateStockLevel
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update FBA order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionUpdateOrder, order.ID, order.ProductSKU, req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *orderService) Get(ctx context.Context, id uint) (*FBAOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return orderToResponse(order), nil
}

func (s *orderService) List(ctx context.Context, req ListFBAOrdersRequest) ([]FBAOrderResponse, int64, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}

	filters := repository.FBAOrderFilters{
		Status:      req.Status,
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		ClosedFrom:  req.ClosedFrom,
		ClosedTo:    req.ClosedTo,
		RegionID:    req.RegionID,
		Supplier:    req.Supplier,
		FulfilledBy: req.FulfilledBy,
		Closed:      req.Closed,
		Prioritised: req.Prioritised,
		Search:      req.Search,
		Sort:        req.Sort,
	}

	orders, total, err := s.orderRepo.List(ctx, filters, req.Page, req.Limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]FBAOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *orderToResponse(&orders[i]))
	}
	return res, total, nil
}

func (s *orderService) AwaitingFulfillment(ctx context.Context) ([]FBAOrderResponse, error) {
	orders, err := s.orderRepo.AwaitingFulfillment(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]FBAOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *orderToResponse(&orders[i]))
	}
	return res, nil
}

// Prioritise moves the order to the top of the fulfillment queue. Calls
// serialize so concurrent prioritising yields one consistent total order.
func (s *orderService) Prioritise(ctx context.Context, userID string, id uint) error {
	s.prioritiseMu.Lock()
	defer s.prioritiseMu.Unlock()

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		if order.IsClosed() {
			return fmt.Errorf("%w: cannot prioritise a fulfilled order", ErrDomainRule)
		}
		if err := s.orderRepo.Prioritise(txCtx, id); err != nil {
			return fmt.Errorf("failed to prioritise order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionPrioritiseOrder, id, order.ProductSKU, nil)
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast("fba_order_prioritised", id, "")
	return nil
}

func (s *orderService) Close(ctx context.Context, userID string, id uint) (*FBAOrderResponse, error) {
	var order *model.FBAOrder
	closedNow := false
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		if order.IsClosed() {
			return nil
		}
		closedNow = true
		return s.closeOrder(txCtx, userID, order)
	})
	if err != nil {
		return nil, err
	}
	if closedNow {
		s.completeStockStage(ctx, userID, order, &FulfillResult{})
	}
	return s.Get(ctx, id)
}

// closeOrder applies the close transition. Closing an already-closed order
// is a no-op.
func (s *orderService) closeOrder(ctx context.Context, userID string, order *model.FBAOrder) error {
	if order.IsClosed() {
		return nil
	}
	if !order.DetailsComplete() {
		return fmt.Errorf("%w: box weight and quantity sent are required to close", ErrDomainRule)
	}

	order.Close(time.Now())
	if uid, err := uuid.Parse(userID); err == nil {
		order.FulfilledBy = &uid
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to close order: %w", err)
	}
	s.audit(ctx, userID, model.ActionCloseOrder, order.ID, order.ProductSKU, nil)
	return nil
}

// Fulfill runs the fulfillment pipeline: validate, update the order fields,
// maybe auto-close, then update the platform stock level. The stock call
// happens outside the transaction; its failure is reported but never rolls
// back the fulfillment.
func (s *orderService) Fulfill(ctx context.Context, userID string, id uint, req FulfillFBAOrderRequest) (*FulfillResult, error) {
	result := &FulfillResult{}

	var order *model.FBAOrder
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		if order.IsClosed() {
			return fmt.Errorf("%w: order %d is already fulfilled", ErrDomainRule, id)
		}

		order.BoxWeight = &req.BoxWeight
		order.QuantitySent = &req.QuantitySent
		if req.UpdateStockLevel != nil {
			order.UpdateStockLevelWhenComplete = *req.UpdateStockLevel
		}
		if req.Notes != "" {
			order.Notes = req.Notes
		}

		region, err := s.regionRepo.FindByID(txCtx, order.RegionID)
		if err != nil {
			return fmt.Errorf("%w: region %d", ErrNotFound, order.RegionID)
		}

		if err := s.orderRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update FBA order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionFulfillOrder, order.ID, order.ProductSKU, req)

		if region.AutoClose || req.CollectionBooked {
			if err := s.closeOrder(txCtx, userID, order); err != nil {
				return err
			}
			result.Closed = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Closed {
		result.Messages = append(result.Messages, fmt.Sprintf("FBA order for %s fulfilled and closed", order.ProductSKU))
	} else {
		result.Messages = append(result.Messages, fmt.Sprintf("FBA order for %s updated", order.ProductSKU))
	}

	if result.Closed {
		s.completeStockStage(ctx, userID, order, result)
	}

	s.broadcast("fba_order_fulfilled", order.ID, order.Status())

	resp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Order = resp
	return result, nil
}

// completeStockStage runs the platform stock decrement that accompanies a
// completed order carrying the update flag, whether the order was closed by
// the fulfillment pipeline or by an explicit close.
func (s *orderService) completeStockStage(ctx context.Context, userID string, order *model.FBAOrder, result *FulfillResult) {
	if !order.UpdateStockLevelWhenComplete || order.QuantitySent == nil {
		return
	}
	if s.debug {
		s.logger.Warn("stock update skipped in debug mode", zap.Uint("order_id", order.ID))
		result.Messages = append(result.Messages, "Stock update skipped (debug mode)")
		return
	}
	result.StockUpdated = s.decrementStock(ctx, userID, order, *order.QuantitySent, result)
}

// decrementStock lowers the platform stock level by the sent quantity,
// clamping at zero. Failures are recorded and surfaced as messages only.
func (s *orderService) decrementStock(ctx context.Context, userID string, order *model.FBAOrder, quantitySent int, result *FulfillResult) bool {
	current, err := s.stock.GetStockLevel(ctx, order.ProductSKU)
	if err != nil {
		s.reportStockFailure(ctx, userID, order, err, result)
		return false
	}

	newLevel := current - quantitySent
	if newLevel < 0 {
		newLevel = 0
		result.Messages = append(result.Messages,
			fmt.Sprintf("Stock level for %s clamped to zero (was %d, sent %d)", order.ProductSKU, current, quantitySent))
	}

	changeSource := fmt.Sprintf("Fulfilled FBA order %d", order.ID)
	applied, err := s.stock.SetStockLevel(ctx, order.ProductSKU, userID, newLevel, changeSource)
	if err != nil {
		s.reportStockFailure(ctx, userID, order, err, result)
		return false
	}
	if applied {
		result.Messages = append(result.Messages,
			fmt.Sprintf("Stock level for %s updated to %d", order.ProductSKU, newLevel))
	}
	return applied
}

func (s *orderService) reportStockFailure(ctx context.Context, userID string, order *model.FBAOrder, err error, result *FulfillResult) {
	s.logger.Error("stock update failed after fulfillment",
		zap.Uint("order_id", order.ID),
		zap.String("sku", order.ProductSKU),
		zap.String("user_id", userID),
		zap.Error(err))
	s.audit(ctx, userID, model.ActionStockUpdateFailed, order.ID, order.ProductSKU, map[string]string{"error": err.Error()})
	result.Messages = append(result.Messages,
		fmt.Sprintf("Stock update for %s failed: %v. The order was still fulfilled.", order.ProductSKU, err))
}

// UpdateTrackingNumbers diffs the submitted set against the stored one. A
// non-empty result closes the order; an empty submit never does.
func (s *orderService) UpdateTrackingNumbers(ctx context.Context, userID string, id uint, numbers []string) (*FBAOrderResponse, error) {
	cleaned := make([]string, 0, len(numbers))
	seen := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		cleaned = append(cleaned, n)
	}

	var order *model.FBAOrder
	closedNow := false
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}

		added, removed, err := s.orderRepo.ReplaceTrackingNumbers(txCtx, id, cleaned)
		if err != nil {
			return fmt.Errorf("failed to update tracking numbers: %w", err)
		}

		if len(cleaned) > 0 && !order.IsClosed() {
			order.Close(time.Now())
			if uid, err := uuid.Parse(userID); err == nil {
				order.FulfilledBy = &uid
			}
			if err := s.orderRepo.Save(txCtx, order); err != nil {
				return fmt.Errorf("failed to close order: %w", err)
			}
			closedNow = true
		}

		if added > 0 || removed > 0 {
			s.audit(txCtx, userID, model.ActionUpdateTracking, id, order.ProductSKU,
				map[string]interface{}{"numbers": cleaned, "added": added, "removed": removed})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closedNow {
		s.completeStockStage(ctx, userID, order, &FulfillResult{})
	}
	return s.Get(ctx, id)
}

// Repeat duplicates a recent order into a fresh NOT_PROCESSED one. Orders
// older than 30 days cannot be repeated.
func (s *orderService) Repeat(ctx context.Context, userID string, id uint) (*FBAOrderResponse, error) {
	source, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
	}
	if time.Since(source.CreatedAt) > repeatOrderMaxAge {
		return nil, fmt.Errorf("%w: order %d is too old to repeat", ErrDomainRule, id)
	}

	approximateQuantity := source.ApproximateQuantity
	if level, err := s.stock.GetStockLevel(ctx, source.ProductSKU); err == nil {
		approximateQuantity = level
	} else {
		s.logger.Warn("stock level unavailable for repeat order, using previous quantity",
			zap.String("sku", source.ProductSKU),
			zap.Error(err))
	}

	duplicate := &model.FBAOrder{
		RegionID:                     source.RegionID,
		ProductSKU:                   source.ProductSKU,
		ProductRangeName:             source.ProductRangeName,
		ProductWeight:                source.ProductWeight,
		ProductHSCode:                source.ProductHSCode,
		ProductASIN:                  source.ProductASIN,
		ProductImageURL:              source.ProductImageURL,
		ProductPurchasePrice:         source.ProductPurchasePrice,
		ProductIsMultipack:           source.ProductIsMultipack,
		SupplierName:                 source.SupplierName,
		SellingPrice:                 source.SellingPrice,
		FBAFee:                       source.FBAFee,
		ApproximateQuantity:          approximateQuantity,
		IsCombinable:                 source.IsCombinable,
		IsFragile:                    source.IsFragile,
		SmallAndLight:                source.SmallAndLight,
		Priority:                     model.MaxPriority,
		UpdateStockLevelWhenComplete: source.UpdateStockLevelWhenComplete,
		Notes:                        source.Notes,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, duplicate); err != nil {
			return fmt.Errorf("failed to repeat FBA order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionRepeatOrder, duplicate.ID, duplicate.ProductSKU,
			map[string]uint{"source_order_id": id})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("fba_order_created", duplicate.ID, duplicate.Status())
	return s.Get(ctx, duplicate.ID)
}

func (s *orderService) Delete(ctx context.Context, userID string, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: FBA order %d", ErrNotFound, id)
		}
		if order.IsClosed() {
			return fmt.Errorf("%w: fulfilled orders cannot be deleted", ErrDomainRule)
		}
		if err := s.orderRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete FBA order: %w", err)
		}
		s.audit(txCtx, userID, model.ActionDeleteOrder, id, order.ProductSKU, nil)
		return nil
	})
}
