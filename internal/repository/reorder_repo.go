package repository

import (
	"context"

	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReorderReportRepository interface {
	Create(ctx context.Context, report *model.ReorderReportDownload) error
	Save(ctx context.Context, report *model.ReorderReportDownload) error
	FindByID(ctx context.Context, id uint) (*model.ReorderReportDownload, error)
	List(ctx context.Context, page, limit int) ([]model.ReorderReportDownload, int64, error)
	ClaimNextPending(ctx context.Context) (*model.ReorderReportDownload, error)
}

type reorderReportRepository struct {
	db *gorm.DB
}

func NewReorderReportRepository(db *gorm.DB) ReorderReportRepository {
	return &reorderReportRepository{db: db}
}

func (r *reorderReportRepository) Create(ctx context.Context, report *model.ReorderReportDownload) error {
	return GetDB(ctx, r.db).Create(report).Error
}

func (r *reorderReportRepository) Save(ctx context.Context, report *model.ReorderReportDownload) error {
	return GetDB(ctx, r.db).Save(report).Error
}

func (r *reorderReportRepository) FindByID(ctx context.Context, id uint) (*model.ReorderReportDownload, error) {
	var report model.ReorderReportDownload
	if err := GetDB(ctx, r.db).Preload("User").First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reorderReportRepository) List(ctx context.Context, page, limit int) ([]model.ReorderReportDownload, int64, error) {
	var reports []model.ReorderReportDownload
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ReorderReportDownload{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

// ClaimNextPending atomically claims the oldest pending report for a worker.
// SKIP LOCKED lets multiple workers poll without contending. Returns nil when
// the queue is empty. Must run inside a transaction.
func (r *reorderReportRepository) ClaimNextPending(ctx context.Context) (*model.ReorderReportDownload, error) {
	db := GetDB(ctx, r.db)

	var report model.ReorderReportDownload
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", model.ReportStatusPending).
		Order("created_at ASC").
		First(&report).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	report.Status = model.ReportStatusInProgress
	if err := db.Model(&model.ReorderReportDownload{}).
		Where("id = ?", report.ID).
		Update("status", model.ReportStatusInProgress).Error; err != nil {
		return nil, err
	}

	return &report, nil
}
