package repository

import (
	"context"

	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShipmentRepository interface {
	// Destinations
	CreateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error
	UpdateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error
	FindDestination(ctx context.Context, id uint) (*model.FBAShipmentDestination, error)
	ListDestinations(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentDestination, error)

	// Methods
	CreateMethod(ctx context.Context, method *model.FBAShipmentMethod) error
	UpdateMethod(ctx context.Context, method *model.FBAShipmentMethod) error
	ListMethods(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentMethod, error)
	FindMethod(ctx context.Context, id uint) (*model.FBAShipmentMethod, error)

	// Shipment orders
	CreateShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error
	SaveShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error
	DeleteShipmentOrder(ctx context.Context, id uint) error
	FindShipmentOrder(ctx context.Context, id uint) (*model.FBAShipmentOrder, error)
	FindShipmentOrderForUpdate(ctx context.Context, id uint) (*model.FBAShipmentOrder, error)
	ListOpenShipmentOrders(ctx context.Context) ([]model.FBAShipmentOrder, error)
	ListShippableOrders(ctx context.Context) ([]model.FBAShipmentOrder, error)

	// Packages and items
	CreatePackage(ctx context.Context, pkg *model.FBAShipmentPackage) error
	DeletePackage(ctx context.Context, id uint) error
	FindPackage(ctx context.Context, id uint) (*model.FBAShipmentPackage, error)

	// Exports
	CreateExport(ctx context.Context, export *model.FBAShipmentExport) error
	FindExport(ctx context.Context, id uint) (*model.FBAShipmentExport, error)
	FindLatestExport(ctx context.Context) (*model.FBAShipmentExport, error)
	ListExports(ctx context.Context, limit int) ([]model.FBAShipmentExport, error)
}

type shipmentRepository struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) ShipmentRepository {
	return &shipmentRepository{db: db}
}

func (r *shipmentRepository) CreateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error {
	return GetDB(ctx, r.db).Create(dest).Error
}

func (r *shipmentRepository) UpdateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error {
	return GetDB(ctx, r.db).Save(dest).Error
}

func (r *shipmentRepository) FindDestination(ctx context.Context, id uint) (*model.FBAShipmentDestination, error) {
	var dest model.FBAShipmentDestination
	if err := GetDB(ctx, r.db).First(&dest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dest, nil
}

func (r *shipmentRepository) ListDestinations(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentDestination, error) {
	var dests []model.FBAShipmentDestination
	db := GetDB(ctx, r.db).Order("name ASC")
	if enabledOnly {
		db = db.Where("is_enabled = ?", true)
	}
	err := db.Find(&dests).Error
	return dests, err
}

func (r *shipmentRepository) CreateMethod(ctx context.Context, method *model.FBAShipmentMethod) error {
	return GetDB(ctx, r.db).Create(method).Error
}

func (r *shipmentRepository) UpdateMethod(ctx context.Context, method *model.FBAShipmentMethod) error {
	return GetDB(ctx, r.db).Save(method).Error
}

func (r *shipmentRepository) ListMethods(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentMethod, error) {
	var methods []model.FBAShipmentMethod
	db := GetDB(ctx, r.db).Order("priority ASC, name ASC")
	if enabledOnly {
		db = db.Where("is_enabled = ?", true)
	}
	err := db.Find(&methods).Error
	return methods, err
}

func (r *shipmentRepository) FindMethod(ctx context.Context, id uint) (*model.FBAShipmentMethod, error) {
	var method model.FBAShipmentMethod
	if err := GetDB(ctx, r.db).First(&method, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *shipmentRepository) CreateShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *shipmentRepository) SaveShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error {
	return GetDB(ctx, r.db).Save(order).Error
}

func (r *shipmentRepository) DeleteShipmentOrder(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.FBAShipmentOrder{}, "id = ?", id).Error
}

func shipmentOrderPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Destination").
		Preload("ShipmentMethod").
		Preload("User").
		Preload("Packages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Packages.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *shipmentRepository) FindShipmentOrder(ctx context.Context, id uint) (*model.FBAShipmentOrder, error) {
	var order model.FBAShipmentOrder
	if err := shipmentOrderPreloads(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *shipmentRepository) FindShipmentOrderForUpdate(ctx context.Context, id uint) (*model.FBAShipmentOrder, error) {
	var order model.FBAShipmentOrder
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *shipmentRepository) ListOpenShipmentOrders(ctx context.Context) ([]model.FBAShipmentOrder, error) {
	var orders []model.FBAShipmentOrder
	err := shipmentOrderPreloads(GetDB(ctx, r.db)).
		Where("export_id IS NULL").
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

// ListShippableOrders applies the package-count half of shippability in SQL;
// export and hold are plain column filters.
func (r *shipmentRepository) ListShippableOrders(ctx context.Context) ([]model.FBAShipmentOrder, error) {
	var orders []model.FBAShipmentOrder
	err := shipmentOrderPreloads(GetDB(ctx, r.db)).
		Where("export_id IS NULL AND is_on_hold = ?", false).
		Where("id IN (SELECT shipment_order_id FROM fba_shipment_packages)").
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *shipmentRepository) CreatePackage(ctx context.Context, pkg *model.FBAShipmentPackage) error {
	return GetDB(ctx, r.db).Create(pkg).Error
}

func (r *shipmentRepository) DeletePackage(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.FBAShipmentPackage{}, "id = ?", id).Error
}

func (r *shipmentRepository) FindPackage(ctx context.Context, id uint) (*model.FBAShipmentPackage, error) {
	var pkg model.FBAShipmentPackage
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&pkg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *shipmentRepository) CreateExport(ctx context.Context, export *model.FBAShipmentExport) error {
	return GetDB(ctx, r.db).Create(export).Error
}

func (r *shipmentRepository) FindExport(ctx context.Context, id uint) (*model.FBAShipmentExport, error) {
	var export model.FBAShipmentExport
	if err := GetDB(ctx, r.db).
		Preload("ShipmentOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ShipmentOrders.Destination").
		Preload("ShipmentOrders.ShipmentMethod").
		Preload("ShipmentOrders.User").
		Preload("ShipmentOrders.Packages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ShipmentOrders.Packages.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&export, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *shipmentRepository) FindLatestExport(ctx context.Context) (*model.FBAShipmentExport, error) {
	var export model.FBAShipmentExport
	if err := GetDB(ctx, r.db).Order("created_at DESC").First(&export).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *shipmentRepository) ListExports(ctx context.Context, limit int) ([]model.FBAShipmentExport, error) {
	var exports []model.FBAShipmentExport
	err := GetDB(ctx, r.db).
		Preload("ShipmentOrders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ShipmentOrders.Destination").
		Preload("ShipmentOrders.Packages", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ShipmentOrders.Packages.Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&exports).Error
	return exports, err
}
