package repository

import (
	"context"
	"time"

	"github.com/stcadmin/fba-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort keys accepted by FBAOrderRepository.List
const (
	SortCreated     = "created"
	SortSKU         = "sku"
	SortRangeName   = "range"
	SortClosed      = "closed"
	SortFulfilledBy = "fulfilled_by"
	SortStatus      = "status"
)

// statusRankSQL orders derived statuses: printed, ready, not processed,
// fulfilled, on hold, stopped.
const statusRankSQL = `CASE
	WHEN closed_at IS NOT NULL THEN 4
	WHEN is_stopped THEN 6
	WHEN on_hold THEN 5
	WHEN printed AND box_weight IS NOT NULL AND quantity_sent IS NOT NULL THEN 2
	WHEN printed THEN 1
	ELSE 3
END`

// FBAOrderFilters narrows the order list. Pointer fields are tri-state:
// nil means "don't care".
type FBAOrderFilters struct {
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
}

type FBAOrderRepository interface {
	Create(ctx context.Context, order *model.FBAOrder) error
	Save(ctx context.Context, order *model.FBAOrder) error
	FindByID(ctx context.Context, id uint) (*model.FBAOrder, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.FBAOrder, error)
	List(ctx context.Context, filters FBAOrderFilters, page, limit int) ([]model.FBAOrder, int64, error)
	AwaitingFulfillment(ctx context.Context) ([]model.FBAOrder, error)
	Prioritise(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	CountOpenByRegion(ctx context.Context, regionID uint) (int64, error)
	ReplaceTrackingNumbers(ctx context.Context, orderID uint, numbers []string) (added, removed int, err error)
	TrackingNumbers(ctx context.Context, orderID uint) ([]model.FBATrackingNumber, error)
	SumQuantitySent(ctx context.Context, sku string, from, to time.Time) (int, error)
	LastClosedAt(ctx context.Context, sku string) (*time.Time, error)
	LastClosedOrderID(ctx context.Context, sku string, regionID uint) (*uint, error)
}

type fbaOrderRepository struct {
	db *gorm.DB
}

func NewFBAOrderRepository(db *gorm.DB) FBAOrderRepository {
	return &fbaOrderRepository{db: db}
}

func (r *fbaOrderRepository) Create(ctx context.Context, order *model.FBAOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *fbaOrderRepository) Save(ctx context.Context, order *model.FBAOrder) error {
	return GetDB(ctx, r.db).Save(order).Error
}

func (r *fbaOrderRepository) FindByID(ctx context.Context, id uint) (*model.FBAOrder, error) {
	var order model.FBAOrder
	if err := GetDB(ctx, r.db).
		Preload("Region").
		Preload("Region.Country").
		Preload("Region.Country.Currency").
		Preload("Fulfiller").
		Preload("TrackingNumbers").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *fbaOrderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.FBAOrder, error) {
	var order model.FBAOrder
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func applyStatusFilter(db *gorm.DB, status string) *gorm.DB {
	switch status {
	case model.StatusFulfilled:
		return db.Where("closed_at IS NOT NULL")
	case model.StatusStopped:
		return db.Where("closed_at IS NULL AND is_stopped = ?", true)
	case model.StatusOnHold:
		return db.Where("closed_at IS NULL AND is_stopped = ? AND on_hold = ?", false, true)
	case model.StatusReady:
		return db.Where("closed_at IS NULL AND is_stopped = ? AND on_hold = ? AND printed = ? AND box_weight IS NOT NULL AND quantity_sent IS NOT NULL",
			false, false, true)
	case model.StatusPrinted:
		return db.Where("closed_at IS NULL AND is_stopped = ? AND on_hold = ? AND printed = ? AND box_weight IS NULL",
			false, false, true)
	case model.StatusNotProcessed:
		return db.Where("closed_at IS NULL AND is_stopped = ? AND on_hold = ? AND printed = ?", false, false, false)
	default:
		return db
	}
}

func applyOrderFilters(db *gorm.DB, filters FBAOrderFilters) *gorm.DB {
	if filters.Status != "" {
		db = applyStatusFilter(db, filters.Status)
	}
	if filters.CreatedFrom != nil {
		db = db.Where("created_at >= ?", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		db = db.Where("created_at < ?", *filters.CreatedTo)
	}
	if filters.ClosedFrom != nil {
		db = db.Where("closed_at >= ?", *filters.ClosedFrom)
	}
	if filters.ClosedTo != nil {
		db = db.Where("closed_at < ?", *filters.ClosedTo)
	}
	if filters.RegionID != nil {
		db = db.Where("region_id = ?", *filters.RegionID)
	}
	if filters.Supplier != "" {
		db = db.Where("supplier_name = ?", filters.Supplier)
	}
	if filters.FulfilledBy != nil {
		db = db.Where("fulfilled_by = ?", *filters.FulfilledBy)
	}
	if filters.Closed != nil {
		if *filters.Closed {
			db = db.Where("closed_at IS NOT NULL")
		} else {
			db = db.Where("closed_at IS NULL")
		}
	}
	if filters.Prioritised != nil {
		if *filters.Prioritised {
			db = db.Where("priority < ?", model.MaxPriority)
		} else {
			db = db.Where("priority >= ?", model.MaxPriority)
		}
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		db = db.Where(
			"product_sku ILIKE ? OR product_range_name ILIKE ? OR product_asin ILIKE ? OR id IN (SELECT fba_order_id FROM fba_tracking_numbers WHERE tracking_number ILIKE ?)",
			like, like, like, like,
		)
	}
	return db
}

func orderSortSQL(sort string) string {
	switch sort {
	case SortSKU:
		return "product_sku ASC"
	case SortRangeName:
		return "product_range_name ASC"
	case SortClosed:
		return "closed_at DESC NULLS LAST"
	case SortFulfilledBy:
		return "fulfilled_by ASC NULLS LAST"
	case SortStatus:
		return statusRankSQL + " ASC"
	default:
		return "created_at DESC"
	}
}

func (r *fbaOrderRepository) List(ctx context.Context, filters FBAOrderFilters, page, limit int) ([]model.FBAOrder, int64, error) {
	var orders []model.FBAOrder
	var total int64

	db := applyOrderFilters(GetDB(ctx, r.db).Model(&model.FBAOrder{}), filters)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Region").
		Preload("Region.Country").
		Preload("Region.Country.Currency").
		Preload("Fulfiller").
		Preload("TrackingNumbers").
		Order(orderSortSQL(filters.Sort)).
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// AwaitingFulfillment returns open orders that are neither held nor stopped,
// prioritised first, ties broken by age.
func (r *fbaOrderRepository) AwaitingFulfillment(ctx context.Context) ([]model.FBAOrder, error) {
	var orders []model.FBAOrder
	err := GetDB(ctx, r.db).
		Where("closed_at IS NULL AND on_hold = ? AND is_stopped = ?", false, false).
		Preload("Region").
		Preload("Region.Country").
		Preload("Region.Country.Currency").
		Order("priority ASC, created_at ASC").
		Find(&orders).Error
	return orders, err
}

// Prioritise moves the order to the top of the queue: every order ahead of
// it shifts down one place and the order takes priority 1. Unprioritised
// orders (MaxPriority) never shift. Must run inside a transaction.
func (r *fbaOrderRepository) Prioritise(ctx context.Context, id uint) error {
	db := GetDB(ctx, r.db)

	var order model.FBAOrder
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
		return err
	}

	if err := db.Model(&model.FBAOrder{}).
		Where("priority < ? AND closed_at IS NULL", order.Priority).
		Update("priority", gorm.Expr("priority + 1")).Error; err != nil {
		return err
	}

	return db.Model(&model.FBAOrder{}).Where("id = ?", id).Update("priority", 1).Error
}

func (r *fbaOrderRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.FBAOrder{}, "id = ?", id).Error
}

func (r *fbaOrderRepository) CountOpenByRegion(ctx context.Context, regionID uint) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.FBAOrder{}).
		Where("region_id = ? AND closed_at IS NULL", regionID).
		Count(&count).Error
	return count, err
}

// ReplaceTrackingNumbers diffs the stored set against the submitted one:
// rows not in the new set are deleted, new values inserted, shared values
// left untouched so their pks survive.
func (r *fbaOrderRepository) ReplaceTrackingNumbers(ctx context.Context, orderID uint, numbers []string) (int, int, error) {
	db := GetDB(ctx, r.db)

	var existing []model.FBATrackingNumber
	if err := db.Where("fba_order_id = ?", orderID).Find(&existing).Error; err != nil {
		return 0, 0, err
	}

	wanted := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = true
	}
	current := make(map[string]bool, len(existing))

	var removed int
	for _, tn := range existing {
		current[tn.TrackingNumber] = true
		if !wanted[tn.TrackingNumber] {
			if err := db.Delete(&model.FBATrackingNumber{}, "id = ?", tn.ID).Error; err != nil {
				return 0, 0, err
			}
			removed++
		}
	}

	var added int
	for _, n := range numbers {
		if current[n] {
			continue
		}
		record := model.FBATrackingNumber{FBAOrderID: orderID, TrackingNumber: n}
		if err := db.Create(&record).Error; err != nil {
			return 0, 0, err
		}
		added++
	}

	return added, removed, nil
}

func (r *fbaOrderRepository) TrackingNumbers(ctx context.Context, orderID uint) ([]model.FBATrackingNumber, error) {
	var numbers []model.FBATrackingNumber
	err := GetDB(ctx, r.db).Where("fba_order_id = ?", orderID).Order("id ASC").Find(&numbers).Error
	return numbers, err
}

func (r *fbaOrderRepository) SumQuantitySent(ctx context.Context, sku string, from, to time.Time) (int, error) {
	var total *int
	err := GetDB(ctx, r.db).Model(&model.FBAOrder{}).
		Select("SUM(quantity_sent)").
		Where("product_sku = ? AND closed_at >= ? AND closed_at < ?", sku, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *fbaOrderRepository) LastClosedAt(ctx context.Context, sku string) (*time.Time, error) {
	var order model.FBAOrder
	err := GetDB(ctx, r.db).
		Where("product_sku = ? AND closed_at IS NOT NULL", sku).
		Order("closed_at DESC").
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return order.ClosedAt, nil
}

func (r *fbaOrderRepository) LastClosedOrderID(ctx context.Context, sku string, regionID uint) (*uint, error) {
	var order model.FBAOrder
	err := GetDB(ctx, r.db).
		Where("product_sku = ? AND region_id = ? AND closed_at IS NOT NULL", sku, regionID).
		Order("closed_at DESC").
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order.ID, nil
}
