package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FBAShipmentDestination is an addressing record for a remote fulfillment
// warehouse. Destinations are disabled rather than deleted once referenced.
type FBAShipmentDestination struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	RecipientName    string    `gorm:"type:varchar(255)" json:"recipient_name"`
	ContactTelephone string    `gorm:"type:varchar(50)" json:"contact_telephone"`
	AddressLine1     string    `gorm:"type:varchar(255);not null" json:"address_line_1"`
	AddressLine2     string    `gorm:"type:varchar(255)" json:"address_line_2"`
	AddressLine3     string    `gorm:"type:varchar(255)" json:"address_line_3"`
	City             string    `gorm:"type:varchar(255);not null" json:"city"`
	State            string    `gorm:"type:varchar(255)" json:"state"`
	Country          string    `gorm:"type:varchar(255);not null" json:"country"`
	CountryISO       string    `gorm:"type:varchar(2);not null" json:"country_iso"`
	Postcode         string    `gorm:"type:varchar(20);not null" json:"postcode"`
	IsEnabled        bool      `gorm:"default:true;index" json:"is_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FBAShipmentMethod is a carrier service identified by the code the carrier's
// manifest format expects.
type FBAShipmentMethod struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Identifier string    `gorm:"type:varchar(50);not null" json:"identifier"`
	Priority   int       `gorm:"default:0" json:"priority"`
	IsEnabled  bool      `gorm:"default:true;index" json:"is_enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FBAShipmentExport is a closed, immutable batch of shipment orders for which
// carrier files are generated.
type FBAShipmentExport struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time          `gorm:"index" json:"created_at"`
	ShipmentOrders []FBAShipmentOrder `gorm:"foreignKey:ExportID;constraint:OnDelete:CASCADE" json:"shipment_orders"`
}

// FBAShipmentOrder groups packages destined for one address via one carrier.
// A nil ExportID means the shipment is still open.
type FBAShipmentOrder struct {
	ID               uint                   `gorm:"primaryKey" json:"id"`
	ExportID         *uint                  `gorm:"index" json:"export_id"`
	Export           *FBAShipmentExport     `gorm:"foreignKey:ExportID" json:"-"`
	DestinationID    uint                   `gorm:"not null;index" json:"destination_id"`
	Destination      FBAShipmentDestination `gorm:"foreignKey:DestinationID" json:"destination"`
	ShipmentMethodID uint                   `gorm:"not null;index" json:"shipment_method_id"`
	ShipmentMethod   FBAShipmentMethod      `gorm:"foreignKey:ShipmentMethodID" json:"shipment_method"`
	IsOnHold         bool                   `gorm:"default:false" json:"is_on_hold"`
	UserID           *uuid.UUID             `gorm:"type:uuid" json:"user_id"`
	User             *User                  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Packages         []FBAShipmentPackage   `gorm:"foreignKey:ShipmentOrderID;constraint:OnDelete:CASCADE" json:"packages"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// OrderNumber derives the customer-facing shipment reference from the pk.
func (o *FBAShipmentOrder) OrderNumber() string {
	return fmt.Sprintf("STC_FBA_%05d", o.ID)
}

// IsShippable reports whether the shipment can still be closed into an
// export: not yet exported, not held, and carrying at least one package.
func (o *FBAShipmentOrder) IsShippable() bool {
	return o.ExportID == nil && !o.IsOnHold && len(o.Packages) > 0
}

// WeightKG sums item weight across all packages.
func (o *FBAShipmentOrder) WeightKG() float64 {
	var total float64
	for i := range o.Packages {
		total += o.Packages[i].WeightKG()
	}
	return total
}

// Value sums item value (minor units) across all packages.
func (o *FBAShipmentOrder) Value() int {
	var total int
	for i := range o.Packages {
		total += o.Packages[i].Value()
	}
	return total
}

// ItemCount sums item quantities across all packages.
func (o *FBAShipmentOrder) ItemCount() int {
	var total int
	for i := range o.Packages {
		total += o.Packages[i].ItemCount()
	}
	return total
}

const descriptionItemLimit = 30

// Description summarises the shipment contents as the first item description
// plus a count of the remaining distinct descriptions.
func (o *FBAShipmentOrder) Description() string {
	var descriptions []string
	for i := range o.Packages {
		for j := range o.Packages[i].Items {
			descriptions = append(descriptions, ShortenDescription(o.Packages[i].Items[j].Description, descriptionItemLimit))
		}
	}
	if len(descriptions) == 0 {
		return ""
	}
	if len(descriptions) == 1 {
		return descriptions[0]
	}
	return fmt.Sprintf("%s + %d other items", descriptions[0], len(descriptions)-1)
}

// ShortenDescription truncates a description to limit characters, marking the
// cut with an ellipsis.
func ShortenDescription(description string, limit int) string {
	description = strings.TrimSpace(description)
	runes := []rune(description)
	if len(runes) <= limit {
		return description
	}
	return string(runes[:limit-3]) + "..."
}

// FBAShipmentPackage is a physical box within a shipment order. It may link
// back to the FBA order whose stock it carries.
type FBAShipmentPackage struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	ShipmentOrderID uint              `gorm:"not null;index" json:"shipment_order_id"`
	FBAOrderID      *uint             `gorm:"index" json:"fba_order_id"`
	LengthCM        int               `gorm:"not null" json:"length_cm"`
	WidthCM         int               `gorm:"not null" json:"width_cm"`
	HeightCM        int               `gorm:"not null" json:"height_cm"`
	Items           []FBAShipmentItem `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Number derives the package reference from its shipment's order number.
func (p *FBAShipmentPackage) Number(orderNumber string) string {
	return fmt.Sprintf("%s_%d", orderNumber, p.ID)
}

// WeightKG sums item weight times quantity.
func (p *FBAShipmentPackage) WeightKG() float64 {
	var total float64
	for i := range p.Items {
		total += p.Items[i].WeightKG * float64(p.Items[i].Quantity)
	}
	return total
}

// Value sums item value (minor units) times quantity.
func (p *FBAShipmentPackage) Value() int {
	var total int
	for i := range p.Items {
		total += p.Items[i].Value * p.Items[i].Quantity
	}
	return total
}

// ItemCount sums item quantities.
func (p *FBAShipmentPackage) ItemCount() int {
	var total int
	for i := range p.Items {
		total += p.Items[i].Quantity
	}
	return total
}

// FBAShipmentItem is a line of stock inside a package.
type FBAShipmentItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PackageID       uint      `gorm:"not null;index" json:"package_id"`
	SKU             string    `gorm:"type:varchar(100);not null" json:"sku"`
	Description     string    `gorm:"type:varchar(255);not null" json:"description"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	WeightKG        float64   `gorm:"type:decimal(10,3);not null" json:"weight_kg"`
	Value           int       `gorm:"not null" json:"value"` // minor units
	CountryOfOrigin string    `gorm:"type:varchar(255);not null;default:'United Kingdom'" json:"country_of_origin"`
	HRCode          string    `gorm:"type:varchar(50)" json:"hr_code"`
	CreatedAt       time.Time `json:"created_at"`
}
