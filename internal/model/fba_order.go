package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxPriority is the sentinel priority for unprioritised orders. Smaller
// values sort first; a freshly created or closed order always carries it.
const MaxPriority = 999

// FBAOrder status constants
const (
	StatusNotProcessed = "NOT_PROCESSED"
	StatusPrinted      = "PRINTED"
	StatusReady        = "READY"
	StatusFulfilled    = "FULFILLED"
	StatusOnHold       = "ON_HOLD"
	StatusStopped      = "STOPPED"
)

// FBAOrder requests that a product quantity be prepared and shipped to a
// fulfillment warehouse in a region. Product fields are snapshotted from the
// catalog at creation time so later catalog edits do not rewrite history.
type FBAOrder struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RegionID    uint       `gorm:"not null;index" json:"region_id"`
	Region      Region     `gorm:"foreignKey:RegionID" json:"region"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"modified_at"`
	ClosedAt    *time.Time `gorm:"index" json:"closed_at"`
	FulfilledBy *uuid.UUID `gorm:"type:uuid;index" json:"fulfilled_by"`
	Fulfiller   *User      `gorm:"foreignKey:FulfilledBy" json:"fulfiller,omitempty"`

	ProductSKU           string `gorm:"type:varchar(100);not null;index" json:"product_sku"`
	ProductRangeName     string `gorm:"type:varchar(255)" json:"product_range_name"`
	ProductWeight        int    `gorm:"not null" json:"product_weight"` // grams
	ProductHSCode        string `gorm:"type:varchar(50)" json:"product_hs_code"`
	ProductASIN          string `gorm:"type:varchar(24);index" json:"product_asin"`
	ProductImageURL      string `gorm:"type:text" json:"product_image_url"`
	ProductPurchasePrice int    `gorm:"not null" json:"product_purchase_price"` // pence GBP
	ProductIsMultipack   bool   `gorm:"default:false" json:"product_is_multipack"`
	SupplierName         string `gorm:"type:varchar(255);index" json:"supplier_name"`

	FBAFee       int `gorm:"default:0" json:"fba_fee"`        // minor units, local currency
	SellingPrice int `gorm:"not null" json:"selling_price"` // minor units, local currency

	OnHold        bool       `gorm:"default:false;index" json:"on_hold"`
	IsStopped     bool       `gorm:"default:false;index" json:"is_stopped"`
	StoppedAt     *time.Time `json:"stopped_at"`
	StoppedUntil  *time.Time `json:"stopped_until"`
	StoppedReason string     `gorm:"type:text" json:"stopped_reason"`

	IsCombinable        bool     `gorm:"default:false" json:"is_combinable"`
	IsFragile           bool     `gorm:"default:false" json:"is_fragile"`
	SmallAndLight       bool     `gorm:"default:false" json:"small_and_light"`
	ApproximateQuantity int      `gorm:"not null" json:"approximate_quantity"`
	QuantitySent        *int     `json:"quantity_sent"`
	BoxWeight           *float64 `gorm:"type:decimal(10,3)" json:"box_weight"` // kg

	Priority                     int    `gorm:"not null;default:999;index" json:"priority"`
	Printed                      bool   `gorm:"default:false" json:"printed"`
	UpdateStockLevelWhenComplete bool   `gorm:"default:true" json:"update_stock_level_when_complete"`
	Notes                        string `gorm:"type:text" json:"notes"`

	TrackingNumbers []FBATrackingNumber `gorm:"foreignKey:FBAOrderID;constraint:OnDelete:CASCADE" json:"tracking_numbers"`
}

// Status derives the lifecycle state. Fulfilled wins over everything, then
// stopped, then on hold; the remaining states follow the printed/weights
// progression.
func (o *FBAOrder) Status() string {
	switch {
	case o.ClosedAt != nil:
		return StatusFulfilled
	case o.IsStopped:
		return StatusStopped
	case o.OnHold:
		return StatusOnHold
	case o.Printed && o.DetailsComplete():
		return StatusReady
	case o.Printed && o.BoxWeight == nil:
		return StatusPrinted
	default:
		return StatusNotProcessed
	}
}

// DetailsComplete reports whether box weight and sent quantity are both
// recorded, the precondition for closing the order.
func (o *FBAOrder) DetailsComplete() bool {
	return o.BoxWeight != nil && o.QuantitySent != nil
}

// IsClosed reports whether the order has been fulfilled.
func (o *FBAOrder) IsClosed() bool {
	return o.ClosedAt != nil
}

// IsPrioritised reports whether the order carries a real priority rather
// than the unprioritised sentinel.
func (o *FBAOrder) IsPrioritised() bool {
	return o.Priority < MaxPriority
}

// Close marks the order fulfilled at the given time and resets the
// scheduling flags.
func (o *FBAOrder) Close(at time.Time) {
	o.ClosedAt = &at
	o.Priority = MaxPriority
	o.OnHold = false
	o.IsStopped = false
}

// FBATrackingNumber is a carrier reference attached to a closed FBA order.
type FBATrackingNumber struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FBAOrderID     uint      `gorm:"not null;index" json:"fba_order_id"`
	TrackingNumber string    `gorm:"type:varchar(255);not null" json:"tracking_number"`
	CreatedAt      time.Time `json:"created_at"`
}
