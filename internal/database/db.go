package database

import (
	"log"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.Currency{},
		&model.Country{},
		&model.Region{},
		&model.FBAOrder{},
		&model.FBATrackingNumber{},
		&model.FBAShipmentDestination{},
		&model.FBAShipmentMethod{},
		&model.FBAShipmentExport{},
		&model.FBAShipmentOrder{},
		&model.FBAShipmentPackage{},
		&model.FBAShipmentItem{},
		&model.FBAProfitFile{},
		&model.FBAProfit{},
		&model.ReorderReportDownload{},
		&model.ShipmentConfig{},
		&catalog.Supplier{},
		&catalog.Product{},
		&catalog.ProductSale{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
