package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrProductNotFound marks a SKU with no catalog entry. Batch callers skip
// on it rather than failing the batch.
var ErrProductNotFound = errors.New("catalog: product not found")

// GormCatalog reads the catalog tables shared with the inventory domain.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) Product(ctx context.Context, sku string) (*Product, error) {
	var product Product
	err := c.db.WithContext(ctx).First(&product, "sku = ?", sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *GormCatalog) ProductsBySupplier(ctx context.Context, supplierID uint) ([]Product, error) {
	var products []Product
	err := c.db.WithContext(ctx).
		Where("supplier_id = ? AND is_active = ?", supplierID, true).
		Order("sku ASC").
		Find(&products).Error
	return products, err
}

func (c *GormCatalog) Supplier(ctx context.Context, id uint) (*Supplier, error) {
	var supplier Supplier
	err := c.db.WithContext(ctx).First(&supplier, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("catalog: supplier %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (c *GormCatalog) Suppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	err := c.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}

func (c *GormCatalog) SoldQuantity(ctx context.Context, sku string, from, to time.Time) (int, error) {
	var total *int
	err := c.db.WithContext(ctx).
		Model(&ProductSale{}).
		Select("SUM(quantity)").
		Where("sku = ? AND dispatched_at >= ? AND dispatched_at < ?", sku, from, to).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

var _ Catalog = (*GormCatalog)(nil)
