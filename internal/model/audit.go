package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateOrder        = "CREATE_FBA_ORDER"
	ActionUpdateOrder        = "UPDATE_FBA_ORDER"
	ActionDeleteOrder        = "DELETE_FBA_ORDER"
	ActionPrioritiseOrder    = "PRIORITISE_FBA_ORDER"
	ActionFulfillOrder       = "FULFILL_FBA_ORDER"
	ActionCloseOrder         = "CLOSE_FBA_ORDER"
	ActionRepeatOrder        = "REPEAT_FBA_ORDER"
	ActionUpdateTracking     = "UPDATE_TRACKING_NUMBERS"
	ActionStockUpdateFailed  = "STOCK_UPDATE_FAILED"
	ActionCreateShipment     = "CREATE_SHIPMENT_ORDER"
	ActionCloseShipment      = "CLOSE_SHIPMENT_ORDER"
	ActionProfitImport       = "PROFIT_IMPORT"
	ActionRequestReport      = "REQUEST_REORDER_REPORT"
	ActionUpdateRegion       = "UPDATE_REGION"
	ActionUpdateShipmentAuth = "UPDATE_SHIPMENT_TOKEN"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated worker
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (pk/order number)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
