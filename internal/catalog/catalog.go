// Package catalog exposes the inventory domain as a read-only product
// catalog. The FBA core never writes these tables; it snapshots product
// fields onto orders at creation time.
package catalog

import (
	"context"
	"time"
)

// Product kind constants. Multipacks and combinations are flattened variants
// of a base product; the core only needs the multipack flag.
const (
	KindSingle      = "SINGLE"
	KindMultipack   = "MULTIPACK"
	KindCombination = "COMBINATION"
)

// Product is the catalog view the FBA core consumes.
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SKU           string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	RangeName     string    `gorm:"type:varchar(255);index" json:"range_name"`
	SupplierID    uint      `gorm:"index" json:"supplier_id"`
	SupplierSKU   string    `gorm:"type:varchar(100)" json:"supplier_sku"`
	WeightGrams   int       `gorm:"not null" json:"weight_grams"`
	HSCode        string    `gorm:"type:varchar(50)" json:"hs_code"`
	ASIN          string    `gorm:"type:varchar(24)" json:"asin"`
	ImageURL      string    `gorm:"type:text" json:"image_url"`
	PurchasePrice int       `gorm:"not null" json:"purchase_price"` // pence GBP
	Kind          string    `gorm:"type:varchar(20);not null;default:'SINGLE'" json:"kind"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "catalog_products" }

// IsMultipack reports whether the product variant is a multipack.
func (p *Product) IsMultipack() bool { return p.Kind == KindMultipack }

// Supplier is the catalog view of a purchasing supplier.
type Supplier struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

func (Supplier) TableName() string { return "catalog_suppliers" }

// ProductSale is a dispatched sale line, used for time-ranged sold-quantity
// aggregation in reorder reports.
type ProductSale struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SKU          string    `gorm:"type:varchar(100);not null;index" json:"sku"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	DispatchedAt time.Time `gorm:"not null;index" json:"dispatched_at"`
}

func (ProductSale) TableName() string { return "catalog_product_sales" }

// Catalog is the read-only contract the FBA core depends on.
type Catalog interface {
	Product(ctx context.Context, sku string) (*Product, error)
	ProductsBySupplier(ctx context.Context, supplierID uint) ([]Product, error)
	Supplier(ctx context.Context, id uint) (*Supplier, error)
	Suppliers(ctx context.Context) ([]Supplier, error)
	SoldQuantity(ctx context.Context, sku string, from, to time.Time) (int, error)
}
