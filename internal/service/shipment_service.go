package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/pkg/currency"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportLimit caps how many recent exports the shipping client is shown.
const ExportLimit = 10

// exportDescriptionLimit is the per-item truncation used in export listings.
const exportDescriptionLimit = 20

// DTOs
type DestinationRequest struct {
	Name             string `json:"name" binding:"required"`
	RecipientName    string `json:"recipient_name" binding:"required"`
	ContactTelephone string `json:"contact_telephone"`
	AddressLine1     string `json:"address_line_1" binding:"required"`
	AddressLine2     string `json:"address_line_2"`
	AddressLine3     string `json:"address_line_3"`
	City             string `json:"city" binding:"required"`
	State            string `json:"state"`
	Country          string `json:"country" binding:"required"`
	CountryISO       string `json:"country_iso" binding:"required,len=2"`
	Postcode         string `json:"postcode" binding:"required"`
	IsEnabled        *bool  `json:"is_enabled"`
}

type MethodRequest struct {
	Name       string `json:"name" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
	Priority   int    `json:"priority"`
	IsEnabled  *bool  `json:"is_enabled"`
}

type CreateShipmentRequest struct {
	DestinationID    uint `json:"destination_id" binding:"required"`
	ShipmentMethodID uint `json:"shipment_method_id" binding:"required"`
}

type ShipmentItemRequest struct {
	SKU             string  `json:"sku" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	Quantity        int     `json:"quantity" binding:"required,gt=0"`
	WeightKG        float64 `json:"weight_kg" binding:"required,gt=0"`
	Value           int     `json:"value" binding:"required,gt=0"` // minor units
	CountryOfOrigin string  `json:"country_of_origin"`
	HRCode          string  `json:"hr_code"`
}

type AddPackageRequest struct {
	LengthCM   int                   `json:"length_cm" binding:"required,gt=0"`
	WidthCM    int                   `json:"width_cm" binding:"required,gt=0"`
	HeightCM   int                   `json:"height_cm" binding:"required,gt=0"`
	FBAOrderID *uint                 `json:"fba_order_id"`
	Items      []ShipmentItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ShipmentOrderResponse struct {
	ID           uint    `json:"id"`
	OrderNumber  string  `json:"order_number"`
	Description  string  `json:"description"`
	Destination  string  `json:"destination"`
	Method       string  `json:"shipment_method"`
	User         string  `json:"user"`
	PackageCount int     `json:"package_count"`
	ItemCount    int     `json:"item_count"`
	Weight       float64 `json:"weight"`
	Value        string  `json:"value"`
	IsOnHold     bool    `json:"is_on_hold"`
	IsShippable  bool    `json:"is_shippable"`
	ExportID     *uint   `json:"export_id"`
	CreatedAt    string  `json:"created_at"`
}

type ExportResponse struct {
	ID            uint   `json:"id"`
	OrderNumbers  string `json:"order_numbers"`
	Description   string `json:"description"`
	Destinations  string `json:"destinations"`
	ShipmentCount int    `json:"shipment_count"`
	PackageCount  int    `json:"package_count"`
	CreatedAt     string `json:"created_at"`
}

type ShipmentService interface {
	CreateDestination(ctx context.Context, req DestinationRequest) (*model.FBAShipmentDestination, error)
	UpdateDestination(ctx context.Context, id uint, req DestinationRequest) (*model.FBAShipmentDestination, error)
	ListDestinations(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentDestination, error)

	CreateMethod(ctx context.Context, req MethodRequest) (*model.FBAShipmentMethod, error)
	UpdateMethod(ctx context.Context, id uint, req MethodRequest) (*model.FBAShipmentMethod, error)
	ListMethods(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentMethod, error)

	CreateShipment(ctx context.Context, userID string, req CreateShipmentRequest) (*ShipmentOrderResponse, error)
	GetShipment(ctx context.Context, id uint) (*ShipmentOrderResponse, error)
	DeleteShipment(ctx context.Context, userID string, id uint) error
	ListOpenShipments(ctx context.Context) ([]ShipmentOrderResponse, error)
	CurrentShipments(ctx context.Context) ([]ShipmentOrderResponse, error)
	AddPackage(ctx context.Context, userID string, shipmentID uint, req AddPackageRequest) (*model.FBAShipmentPackage, error)
	DeletePackage(ctx context.Context, shipmentID, packageID uint) error
	ToggleHold(ctx context.Context, userID string, id uint) (bool, error)
	CloseShipmentOrder(ctx context.Context, userID string, id uint) (uint, error)

	ListExports(ctx context.Context, limit int) ([]ExportResponse, error)
	GetExport(ctx context.Context, id uint) (*model.FBAShipmentExport, error)
}

type shipmentService struct {
	repo      repository.ShipmentRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	logger    *zap.Logger
}

func NewShipmentService(
	repo repository.ShipmentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) ShipmentService {
	return &shipmentService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		logger:    logger,
	}
}

func shipmentToResponse(o *model.FBAShipmentOrder) *ShipmentOrderResponse {
	username := ""
	if o.User != nil {
		username = o.User.Username
	}
	weight := o.WeightKG()
	return &ShipmentOrderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber(),
		Description:  o.Description(),
		Destination:  o.Destination.Name,
		Method:       o.ShipmentMethod.Name,
		User:         username,
		PackageCount: len(o.Packages),
		ItemCount:    o.ItemCount(),
		Weight:       math.Round(weight*100) / 100,
		Value:        strings.TrimSpace(currency.FormatGBP(o.Value())),
		IsOnHold:     o.IsOnHold,
		IsShippable:  o.IsShippable(),
		ExportID:     o.ExportID,
		CreatedAt:    o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *shipmentService) auditShipment(ctx context.Context, userID, action string, entityID uint, entityName string, details interface{}) {
	auditWrite(ctx, s.auditRepo, s.logger, userID, action, entityID, entityName, details)
}

func (s *shipmentService) CreateDestination(ctx context.Context, req DestinationRequest) (*model.FBAShipmentDestination, error) {
	dest := &model.FBAShipmentDestination{
		Name:             req.Name,
		RecipientName:    req.RecipientName,
		ContactTelephone: req.ContactTelephone,
		AddressLine1:     req.AddressLine1,
		AddressLine2:     req.AddressLine2,
		AddressLine3:     req.AddressLine3,
		City:             req.City,
		State:            req.State,
		Country:          req.Country,
		CountryISO:       strings.ToUpper(req.CountryISO),
		Postcode:         req.Postcode,
		IsEnabled:        true,
	}
	if req.IsEnabled != nil {
		dest.IsEnabled = *req.IsEnabled
	}
	if err := s.repo.CreateDestination(ctx, dest); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}
	return dest, nil
}

func (s *shipmentService) UpdateDestination(ctx context.Context, id uint, req DestinationRequest) (*model.FBAShipmentDestination, error) {
	dest, err := s.repo.FindDestination(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: destination %d", ErrNotFound, id)
	}
	dest.Name = req.Name
	dest.RecipientName = req.RecipientName
	dest.ContactTelephone = req.ContactTelephone
	dest.AddressLine1 = req.AddressLine1
	dest.AddressLine2 = req.AddressLine2
	dest.AddressLine3 = req.AddressLine3
	dest.City = req.City
	dest.State = req.State
	dest.Country = req.Country
	dest.CountryISO = strings.ToUpper(req.CountryISO)
	dest.Postcode = req.Postcode
	if req.IsEnabled != nil {
		dest.IsEnabled = *req.IsEnabled
	}
	if err := s.repo.UpdateDestination(ctx, dest); err != nil {
		return nil, fmt.Errorf("failed to update destination: %w", err)
	}
	return dest, nil
}

func (s *shipmentService) ListDestinations(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentDestination, error) {
	return s.repo.ListDestinations(ctx, enabledOnly)
}

func (s *shipmentService) CreateMethod(ctx context.Context, req MethodRequest) (*model.FBAShipmentMethod, error) {
	method := &model.FBAShipmentMethod{
		Name:       req.Name,
		Identifier: req.Identifier,
		Priority:   req.Priority,
		IsEnabled:  true,
	}
	if req.IsEnabled != nil {
		method.IsEnabled = *req.IsEnabled
	}
	if err := s.repo.CreateMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create shipment method: %w", err)
	}
	return method, nil
}

func (s *shipmentService) UpdateMethod(ctx context.Context, id uint, req MethodRequest) (*model.FBAShipmentMethod, error) {
	method, err := s.repo.FindMethod(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: shipment method %d", ErrNotFound, id)
	}
	method.Name = req.Name
	method.Identifier = req.Identifier
	method.Priority = req.Priority
	if req.IsEnabled != nil {
		method.IsEnabled = *req.IsEnabled
	}
	if err := s.repo.UpdateMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to update shipment method: %w", err)
	}
	return method, nil
}

func (s *shipmentService) ListMethods(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentMethod, error) {
	return s.repo.ListMethods(ctx, enabledOnly)
}

func (s *shipmentService) CreateShipment(ctx context.Context, userID string, req CreateShipmentRequest) (*ShipmentOrderResponse, error) {
	dest, err := s.repo.FindDestination(ctx, req.DestinationID)
	if err != nil {
		return nil, fmt.Errorf("%w: destination %d", ErrNotFound, req.DestinationID)
	}
	if !dest.IsEnabled {
		return nil, fmt.Errorf("%w: destination %s is disabled", ErrValidation, dest.Name)
	}
	method, err := s.repo.FindMethod(ctx, req.ShipmentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%w: shipment method %d", ErrNotFound, req.ShipmentMethodID)
	}
	if !method.IsEnabled {
		return nil, fmt.Errorf("%w: shipment method %s is disabled", ErrValidation, method.Name)
	}

	order := &model.FBAShipmentOrder{
		DestinationID:    dest.ID,
		ShipmentMethodID: method.ID,
	}
	if uid, err := uuid.Parse(userID); err == nil {
		order.UserID = &uid
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateShipmentOrder(txCtx, order); err != nil {
			return fmt.Errorf("failed to create shipment order: %w", err)
		}
		s.auditShipment(txCtx, userID, model.ActionCreateShipment, order.ID, order.OrderNumber(), req)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetShipment(ctx, order.ID)
}

func (s *shipmentService) GetShipment(ctx context.Context, id uint) (*ShipmentOrderResponse, error) {
	order, err := s.repo.FindShipmentOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: shipment order %d", ErrNotFound, id)
		}
		return nil, err
	}
	return shipmentToResponse(order), nil
}

func (s *shipmentService) DeleteShipment(ctx context.Context, userID string, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindShipmentOrderForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: shipment order %d", ErrNotFound, id)
		}
		if order.ExportID != nil {
			return fmt.Errorf("%w: exported shipments cannot be deleted", ErrDomainRule)
		}
		return s.repo.DeleteShipmentOrder(txCtx, id)
	})
}

func (s *shipmentService) ListOpenShipments(ctx context.Context) ([]ShipmentOrderResponse, error) {
	orders, err := s.repo.ListOpenShipmentOrders(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]ShipmentOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *shipmentToResponse(&orders[i]))
	}
	return res, nil
}

// CurrentShipments lists shipments the shipping client may close: not
// exported, not held, carrying at least one package.
func (s *shipmentService) CurrentShipments(ctx context.Context) ([]ShipmentOrderResponse, error) {
	orders, err := s.repo.ListShippableOrders(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]ShipmentOrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *shipmentToResponse(&orders[i]))
	}
	return res, nil
}

// AddPackage creates a package and all its items in one transaction: either
// the whole package commits or nothing does.
func (s *shipmentService) AddPackage(ctx context.Context, userID string, shipmentID uint, req AddPackageRequest) (*model.FBAShipmentPackage, error) {
	pkg := &model.FBAShipmentPackage{
		ShipmentOrderID: shipmentID,
		FBAOrderID:      req.FBAOrderID,
		LengthCM:        req.LengthCM,
		WidthCM:         req.WidthCM,
		HeightCM:        req.HeightCM,
	}
	for _, item := range req.Items {
		countryOfOrigin := item.CountryOfOrigin
		if countryOfOrigin == "" {
			countryOfOrigin = "United Kingdom"
		}
		pkg.Items = append(pkg.Items, model.FBAShipmentItem{
			SKU:             item.SKU,
			Description:     item.Description,
			Quantity:        item.Quantity,
			WeightKG:        item.WeightKG,
			Value:           item.Value,
			CountryOfOrigin: countryOfOrigin,
			HRCode:          item.HRCode,
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindShipmentOrderForUpdate(txCtx, shipmentID)
		if err != nil {
			return fmt.Errorf("%w: shipment order %d", ErrNotFound, shipmentID)
		}
		if order.ExportID != nil {
			return fmt.Errorf("%w: shipment %s is already exported", ErrDomainRule, order.OrderNumber())
		}
		if err := s.repo.CreatePackage(txCtx, pkg); err != nil {
			return fmt.Errorf("failed to create package: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (s *shipmentService) DeletePackage(ctx context.Context, shipmentID, packageID uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindShipmentOrderForUpdate(txCtx, shipmentID)
		if err != nil {
			return fmt.Errorf("%w: shipment order %d", ErrNotFound, shipmentID)
		}
		if order.ExportID != nil {
			return fmt.Errorf("%w: shipment %s is already exported", ErrDomainRule, order.OrderNumber())
		}
		pkg, err := s.repo.FindPackage(txCtx, packageID)
		if err != nil || pkg.ShipmentOrderID != shipmentID {
			return fmt.Errorf("%w: package %d", ErrNotFound, packageID)
		}
		return s.repo.DeletePackage(txCtx, packageID)
	})
}

// ToggleHold flips the hold flag and returns the new state.
func (s *shipmentService) ToggleHold(ctx context.Context, userID string, id uint) (bool, error) {
	var held bool
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindShipmentOrderForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: shipment order %d", ErrNotFound, id)
		}
		if order.ExportID != nil {
			return fmt.Errorf("%w: exported shipments cannot be held", ErrDomainRule)
		}
		order.IsOnHold = !order.IsOnHold
		held = order.IsOnHold
		return s.repo.SaveShipmentOrder(txCtx, order)
	})
	return held, err
}

// exportBatchWindow is how long an export stays open for further shipment
// orders. Closes within the window join the same export; after it a fresh
// export starts a new batch.
const exportBatchWindow = time.Hour

// CloseShipmentOrder assigns the shipment to the in-progress export, starting
// a new one when the current batch has aged out. Closing an already-exported
// shipment returns its existing export id.
func (s *shipmentService) CloseShipmentOrder(ctx context.Context, userID string, id uint) (uint, error) {
	var exportID uint
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.FindShipmentOrderForUpdate(txCtx, id)
		if err != nil {
			return fmt.Errorf("%w: shipment order %d", ErrNotFound, id)
		}
		if order.ExportID != nil {
			exportID = *order.ExportID
			return nil
		}

		full, err := s.repo.FindShipmentOrder(txCtx, id)
		if err != nil {
			return err
		}
		if !full.IsShippable() {
			return fmt.Errorf("%w: shipment %s is not shippable", ErrDomainRule, full.OrderNumber())
		}

		export, err := s.repo.FindLatestExport(txCtx)
		if err != nil || time.Since(export.CreatedAt) > exportBatchWindow {
			export = &model.FBAShipmentExport{}
			if err := s.repo.CreateExport(txCtx, export); err != nil {
				return fmt.Errorf("failed to create export: %w", err)
			}
		}
		order.ExportID = &export.ID
		if err := s.repo.SaveShipmentOrder(txCtx, order); err != nil {
			return fmt.Errorf("failed to assign shipment to export: %w", err)
		}
		exportID = export.ID
		s.auditShipment(txCtx, userID, model.ActionCloseShipment, id, order.OrderNumber(),
			map[string]uint{"export_id": export.ID})
		return nil
	})
	return exportID, err
}

func (s *shipmentService) ListExports(ctx context.Context, limit int) ([]ExportResponse, error) {
	if limit <= 0 || limit > ExportLimit {
		limit = ExportLimit
	}
	exports, err := s.repo.ListExports(ctx, limit)
	if err != nil {
		return nil, err
	}

	res := make([]ExportResponse, 0, len(exports))
	for i := range exports {
		res = append(res, *exportToResponse(&exports[i]))
	}
	return res, nil
}

func exportToResponse(export *model.FBAShipmentExport) *ExportResponse {
	var orderNumbers, destinations []string
	var descriptions []string
	seenDescription := make(map[string]bool)
	seenDestination := make(map[string]bool)
	packageCount := 0
	for i := range export.ShipmentOrders {
		order := &export.ShipmentOrders[i]
		orderNumbers = append(orderNumbers, order.OrderNumber())
		if !seenDestination[order.Destination.Name] {
			seenDestination[order.Destination.Name] = true
			destinations = append(destinations, order.Destination.Name)
		}
		packageCount += len(order.Packages)
		for j := range order.Packages {
			for k := range order.Packages[j].Items {
				short := model.ShortenDescription(order.Packages[j].Items[k].Description, exportDescriptionLimit)
				if !seenDescription[short] {
					seenDescription[short] = true
					descriptions = append(descriptions, short)
				}
			}
		}
	}
	return &ExportResponse{
		ID:            export.ID,
		OrderNumbers:  strings.Join(orderNumbers, "\n"),
		Description:   strings.Join(descriptions, "\n"),
		Destinations:  strings.Join(destinations, "\n"),
		ShipmentCount: len(export.ShipmentOrders),
		PackageCount:  packageCount,
		CreatedAt:     export.CreatedAt.Format("02 Jan 2006 15:04"),
	}
}

func (s *shipmentService) GetExport(ctx context.Context, id uint) (*model.FBAShipmentExport, error) {
	export, err := s.repo.FindExport(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: export %d", ErrNotFound, id)
		}
		return nil, err
	}
	return export, nil
}
