package model

import "time"

// FBAProfitFile records one import of external fee-estimate exports. The most
// recent file is the "current" profit dataset.
type FBAProfitFile struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	ImportDate time.Time   `gorm:"index;not null" json:"import_date"`
	Records    []FBAProfit `gorm:"foreignKey:ImportRecordID;constraint:OnDelete:CASCADE" json:"-"`
}

// FBAProfit is one per-product profit calculation within an import. All
// prices are integer minor units in GBP.
type FBAProfit struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ImportRecordID uint          `gorm:"not null;index" json:"import_record_id"`
	ImportRecord   FBAProfitFile `gorm:"foreignKey:ImportRecordID" json:"-"`
	ProductSKU     string        `gorm:"type:varchar(100);not null;index" json:"product_sku"`
	RegionID       uint          `gorm:"not null;index" json:"region_id"`
	Region         Region        `gorm:"foreignKey:RegionID" json:"region"`
	LastOrderID    *uint         `gorm:"index" json:"last_order_id"`
	LastOrder      *FBAOrder     `gorm:"foreignKey:LastOrderID" json:"-"`
	ExchangeRate   float64       `gorm:"type:decimal(10,6);not null" json:"exchange_rate"`
	ChannelSKU     string        `gorm:"type:varchar(100);not null" json:"channel_sku"`
	ASIN           string        `gorm:"type:varchar(24)" json:"asin"`
	ListingName    string        `gorm:"type:varchar(255)" json:"listing_name"`
	SalePrice      int           `gorm:"not null" json:"sale_price"`
	ReferralFee    int           `gorm:"default:0" json:"referral_fee"`
	ClosingFee     int           `gorm:"default:0" json:"closing_fee"`
	HandlingFee    int           `gorm:"default:0" json:"handling_fee"`
	PlacementFee   int           `gorm:"default:0" json:"placement_fee"`
	PurchasePrice  int           `gorm:"default:0" json:"purchase_price"`
	ShippingPrice  int           `gorm:"default:0" json:"shipping_price"`
	Profit         int           `gorm:"not null" json:"profit"`
	CreatedAt      time.Time     `json:"created_at"`
}
