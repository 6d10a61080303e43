package repository

import (
	"context"

	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/gorm"
)

// shipmentConfigID is the pk of the singleton row.
const shipmentConfigID = 1

type ShipmentConfigRepository interface {
	Get(ctx context.Context) (*model.ShipmentConfig, error)
	SetToken(ctx context.Context, token string) error
}

type shipmentConfigRepository struct {
	db *gorm.DB
}

func NewShipmentConfigRepository(db *gorm.DB) ShipmentConfigRepository {
	return &shipmentConfigRepository{db: db}
}

func (r *shipmentConfigRepository) Get(ctx context.Context) (*model.ShipmentConfig, error) {
	var config model.ShipmentConfig
	err := GetDB(ctx, r.db).First(&config, "id = ?", shipmentConfigID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *shipmentConfigRepository) SetToken(ctx context.Context, token string) error {
	config := model.ShipmentConfig{ID: shipmentConfigID, Token: token}
	return GetDB(ctx, r.db).Save(&config).Error
}
