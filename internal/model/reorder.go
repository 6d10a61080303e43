package model

import (
	"time"

	"github.com/google/uuid"
)

// ReorderReportDownload status constants
const (
	ReportStatusPending    = "PENDING"
	ReportStatusInProgress = "IN_PROGRESS"
	ReportStatusComplete   = "COMPLETE"
	ReportStatusFailed     = "FAILED"
)

// ReorderReportDownload tracks one requested reorder report through the
// pending/in-progress/complete/failed worker pipeline. DownloadFile is the
// object-storage path once the report is complete.
type ReorderReportDownload struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	SupplierID   uint       `gorm:"not null;index" json:"supplier_id"`
	SupplierName string     `gorm:"type:varchar(255)" json:"supplier_name"`
	DateFrom     time.Time  `gorm:"not null" json:"date_from"`
	DateTo       time.Time  `gorm:"not null" json:"date_to"`
	UserID       *uuid.UUID `gorm:"type:uuid" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DownloadFile string     `gorm:"type:varchar(512)" json:"download_file"`
	RowCount     int        `gorm:"default:0" json:"row_count"`
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ErrorMessage string     `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}
