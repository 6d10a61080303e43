package repository

import (
	"context"

	"github.com/stcadmin/fba-backend/internal/model"

	"gorm.io/gorm"
)

type RegionRepository interface {
	Create(ctx context.Context, region *model.Region) error
	Update(ctx context.Context, region *model.Region) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Region, error)
	List(ctx context.Context, activeOnly bool) ([]model.Region, error)
	FindCountry(ctx context.Context, id uint) (*model.Country, error)
	SaveCurrency(ctx context.Context, currency *model.Currency) error
	FindCurrencyByCode(ctx context.Context, code string) (*model.Currency, error)
}

type regionRepository struct {
	db *gorm.DB
}

func NewRegionRepository(db *gorm.DB) RegionRepository {
	return &regionRepository{db: db}
}

func (r *regionRepository) Create(ctx context.Context, region *model.Region) error {
	return GetDB(ctx, r.db).Create(region).Error
}

func (r *regionRepository) Update(ctx context.Context, region *model.Region) error {
	return GetDB(ctx, r.db).Save(region).Error
}

func (r *regionRepository) Delete(ctx context.Context, id uint) error {
	return GetDB(ctx, r.db).Delete(&model.Region{}, "id = ?", id).Error
}

func (r *regionRepository) FindByID(ctx context.Context, id uint) (*model.Region, error) {
	var region model.Region
	if err := GetDB(ctx, r.db).
		Preload("Country").
		Preload("Country.Currency").
		First(&region, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *regionRepository) List(ctx context.Context, activeOnly bool) ([]model.Region, error) {
	var regions []model.Region
	db := GetDB(ctx, r.db).
		Preload("Country").
		Preload("Country.Currency").
		Order("position ASC, name ASC")
	if activeOnly {
		db = db.Where("active = ?", true)
	}
	err := db.Find(&regions).Error
	return regions, err
}

func (r *regionRepository) FindCountry(ctx context.Context, id uint) (*model.Country, error) {
	var country model.Country
	if err := GetDB(ctx, r.db).Preload("Currency").First(&country, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *regionRepository) SaveCurrency(ctx context.Context, currency *model.Currency) error {
	return GetDB(ctx, r.db).Save(currency).Error
}

func (r *regionRepository) FindCurrencyByCode(ctx context.Context, code string) (*model.Currency, error) {
	var currency model.Currency
	if err := GetDB(ctx, r.db).First(&currency, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &currency, nil
}
