package repository

import (
	"context"

	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/gorm"
)

type ProfitRepository interface {
	CreateImportRecord(ctx context.Context, record *model.FBAProfitFile) error
	BulkInsert(ctx context.Context, records []model.FBAProfit) error
	LatestImportRecord(ctx context.Context) (*model.FBAProfitFile, error)
	CurrentRecords(ctx context.Context, page, limit int) ([]model.FBAProfit, int64, error)
}

type profitRepository struct {
	db *gorm.DB
}

func NewProfitRepository(db *gorm.DB) ProfitRepository {
	return &profitRepository{db: db}
}

func (r *profitRepository) CreateImportRecord(ctx context.Context, record *model.FBAProfitFile) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *profitRepository) BulkInsert(ctx context.Context, records []model.FBAProfit) error {
	if len(records) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(records, 500).Error
}

func (r *profitRepository) LatestImportRecord(ctx context.Context) (*model.FBAProfitFile, error) {
	var record model.FBAProfitFile
	err := GetDB(ctx, r.db).Order("import_date DESC").First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CurrentRecords pages through the profit calculations belonging to the most
// recent import.
func (r *profitRepository) CurrentRecords(ctx context.Context, page, limit int) ([]model.FBAProfit, int64, error) {
	latest, err := r.LatestImportRecord(ctx)
	if err != nil {
		return nil, 0, err
	}
	if latest == nil {
		return nil, 0, nil
	}

	db := GetDB(ctx, r.db).Model(&model.FBAProfit{}).Where("import_record_id = ?", latest.ID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.FBAProfit
	offset := (page - 1) * limit
	if err := db.
		Preload("Region").
		Preload("Region.Country").
		Preload("Region.Country.Currency").
		Order("product_sku ASC").
		Offset(offset).Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
