package model

import (
	"math"
	"time"
)

// VATRequired enum constants
const (
	VATNever    = "NEVER"
	VATAlways   = "ALWAYS"
	VATVariable = "VARIABLE"
)

// Currency holds a currency code and its GBP exchange rate.
// Rates are refreshed by a scheduled task; readers treat them as read-only.
type Currency struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"type:varchar(3);uniqueIndex;not null" json:"code"`
	Symbol       string    `gorm:"type:varchar(5);not null" json:"symbol"`
	ExchangeRate float64   `gorm:"type:decimal(10,6);not null;default:1" json:"exchange_rate"` // GBP -> local
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Country maps ISO and CC-domain codes to a VAT policy and a currency
type Country struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	ISOCode     string    `gorm:"type:varchar(2);index;not null" json:"iso_code"`
	CCDomain    string    `gorm:"type:varchar(10)" json:"cc_domain"`
	VATRequired string    `gorm:"type:varchar(10);not null;default:'VARIABLE'" json:"vat_required"` // NEVER, ALWAYS, VARIABLE
	CurrencyID  uint      `gorm:"not null;index" json:"currency_id"`
	Currency    Currency  `gorm:"foreignKey:CurrencyID" json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Region is a shipping destination zone with its own rate card, weight and
// size limits, currency and VAT policy.
type Region struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	CountryID          uint      `gorm:"not null;index" json:"country_id"`
	Country            Country   `gorm:"foreignKey:CountryID" json:"country"`
	PostagePrice       int       `gorm:"not null" json:"postage_price"`    // pence, base
	PostagePerKG       int       `gorm:"default:0" json:"postage_per_kg"`  // pence per kg
	PostageOverheadG   int       `gorm:"default:0" json:"postage_overhead_g"`
	MinShippingCost    int       `gorm:"default:0" json:"min_shipping_cost"` // pence
	MaxWeight          int       `gorm:"not null" json:"max_weight"` // kg
	MaxSize            float64   `gorm:"type:decimal(10,2);default:0" json:"max_size"`
	FulfillmentUnit    string    `gorm:"type:varchar(20);not null;default:'METRIC'" json:"fulfillment_unit"` // METRIC, IMPERIAL
	AutoClose          bool      `gorm:"default:false" json:"auto_close"`
	WarehouseRequired  bool      `gorm:"default:false" json:"warehouse_required"`
	ExpiryDateRequired bool      `gorm:"default:false" json:"expiry_date_required"`
	Active             bool      `gorm:"default:true" json:"active"`
	Position           int       `gorm:"default:9999" json:"position"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CalculateShipping returns the postage cost in pence for a consignment of the
// given weight in grams. The per-kg rate is applied to the weight plus the
// region's packaging overhead, and the result never drops below the region's
// minimum shipping cost.
func (r *Region) CalculateShipping(weightGrams int) int {
	weightKG := float64(weightGrams+r.PostageOverheadG) / 1000.0
	cost := r.PostagePrice + int(math.Round(weightKG*float64(r.PostagePerKG)))
	if cost < r.MinShippingCost {
		cost = r.MinShippingCost
	}
	return cost
}

// MaxQuantity returns how many units of the given unit weight (grams) fit
// within the region's weight limit.
func (r *Region) MaxQuantity(productWeightGrams int) int {
	if productWeightGrams <= 0 {
		return 0
	}
	return (r.MaxWeight * 1000) / productWeightGrams
}

// VATApplies reports whether VAT must be charged for sales into this region.
func (r *Region) VATApplies(zeroRated bool) bool {
	if zeroRated {
		return false
	}
	return r.Country.VATRequired != VATNever
}
