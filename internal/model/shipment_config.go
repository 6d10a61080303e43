package model

import "time"

// ShipmentConfig is the singleton row holding the shared token the external
// shipping client authenticates with. Exactly one row (pk 1) exists.
type ShipmentConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"type:varchar(255);not null" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}
