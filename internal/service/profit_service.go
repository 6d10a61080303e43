package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/pkg/currency"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	profitImportLockKey = "fba:profit_import:lock"
	profitImportLockTTL = 10 * time.Minute
)

// ErrImportInProgress is returned when a profit import is already running.
var ErrImportInProgress = errors.New("a profit import is already in progress")

// ImportLocker serializes profit imports across processes.
type ImportLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisLocker implements ImportLocker on a shared redis instance.
type RedisLocker struct {
	Client *redis.Client
}

func (l RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.Client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

func (l RedisLocker) Release(ctx context.Context, key string) error {
	return l.Client.Del(ctx, key).Err()
}

// FeeRecord is one row of an Amazon fee estimate file, prices in minor units
// of the marketplace currency.
type FeeRecord struct {
	ChannelSKU    string
	ASIN          string
	ListingName   string
	SalePrice     int
	ReferralFee   int
	ClosingFee    int
	HandlingFee   int
	PlacementFee  int
	ShippingPrice int
}

// ImportSummary reports the outcome of a profit import run.
type ImportSummary struct {
	ImportRecordID uint `json:"import_record_id"`
	Imported       int  `json:"imported"`
	Skipped        int  `json:"skipped"`
}

// ProfitResponse is a formatted profit row for the listing page.
type ProfitResponse struct {
	ID           uint   `json:"id"`
	ProductSKU   string `json:"product_sku"`
	ChannelSKU   string `json:"channel_sku"`
	ASIN         string `json:"asin"`
	ListingName  string `json:"listing_name"`
	Region       string `json:"region"`
	LastOrderID  *uint  `json:"last_order_id,omitempty"`
	SalePrice    string `json:"sale_price"`
	ReferralFee  string `json:"referral_fee"`
	ClosingFee   string `json:"closing_fee"`
	HandlingFee  string `json:"handling_fee"`
	PlacementFee string `json:"placement_fee"`
	PurchasePrice string `json:"purchase_price"`
	ShippingPrice string `json:"shipping_price"`
	Profit        string `json:"profit"`
	ProfitLocal   string `json:"profit_local"`
}

// ProfitService imports Amazon fee estimate files and serves the latest
// per-listing profit figures.
type ProfitService interface {
	UpdateFromExports(ctx context.Context, regionFees map[uint][]FeeRecord) (*ImportSummary, error)
	ParseFeeFile(r io.Reader) ([]FeeRecord, error)
	Current(ctx context.Context, page, limit int) ([]ProfitResponse, int64, error)
	LastImportDate(ctx context.Context) (*time.Time, error)
}

type profitService struct {
	profitRepo repository.ProfitRepository
	orderRepo  repository.FBAOrderRepository
	regionRepo repository.RegionRepository
	catalog    catalog.Catalog
	txManager  repository.TransactionManager
	locker     ImportLocker
	logger     *zap.Logger
}

func NewProfitService(
	profitRepo repository.ProfitRepository,
	orderRepo repository.FBAOrderRepository,
	regionRepo repository.RegionRepository,
	cat catalog.Catalog,
	txManager repository.TransactionManager,
	locker ImportLocker,
	logger *zap.Logger,
) ProfitService {
	return &profitService{
		profitRepo: profitRepo,
		orderRepo:  orderRepo,
		regionRepo: regionRepo,
		catalog:    cat,
		txManager:  txManager,
		locker:     locker,
		logger:     logger,
	}
}

// feeFileColumns maps the Amazon fee preview header to FeeRecord fields.
var feeFileColumns = []string{
	"sku", "asin", "product-name", "your-price",
	"estimated-referral-fee-per-unit", "estimated-variable-closing-fee",
	"estimated-order-handling-fee-per-order", "estimated-pick-pack-fee-per-unit",
	"estimated-order-weight-handling-fee-per-unit",
}

// ParseFeeFile reads a tab separated Amazon fee preview export. Rows with
// unparseable prices are skipped rather than failing the whole file.
func (s *profitService) ParseFeeFile(r io.Reader) ([]FeeRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read fee file header", ErrValidation)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range feeFileColumns[:3] {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: fee file is missing column %q", ErrValidation, col)
		}
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	price := func(row []string, name string) (int, bool) {
		raw := field(row, name)
		if raw == "" || raw == "--" {
			return 0, true
		}
		minor, err := currency.ToMinor(raw)
		if err != nil {
			return 0, false
		}
		return minor, true
	}

	var records []FeeRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed fee file row", ErrValidation)
		}
		rec := FeeRecord{
			ChannelSKU:  field(row, "sku"),
			ASIN:        field(row, "asin"),
			ListingName: field(row, "product-name"),
		}
		if rec.ChannelSKU == "" {
			continue
		}
		ok := true
		for name, dst := range map[string]*int{
			"your-price":                                   &rec.SalePrice,
			"estimated-referral-fee-per-unit":              &rec.ReferralFee,
			"estimated-variable-closing-fee":               &rec.ClosingFee,
			"estimated-order-handling-fee-per-order":       &rec.HandlingFee,
			"estimated-pick-pack-fee-per-unit":             &rec.PlacementFee,
			"estimated-order-weight-handling-fee-per-unit": &rec.ShippingPrice,
		} {
			minor, parsed := price(row, name)
			if !parsed {
				s.logger.Warn("skipping fee row with unparseable price",
					zap.String("channel_sku", rec.ChannelSKU),
					zap.String("column", name))
				ok = false
				break
			}
			*dst = minor
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// UpdateFromExports replaces the current profit figures with a fresh import.
// Only one import may run at a time; concurrent callers get
// ErrImportInProgress.
func (s *profitService) UpdateFromExports(ctx context.Context, regionFees map[uint][]FeeRecord) (*ImportSummary, error) {
	locked, err := s.locker.Acquire(ctx, profitImportLockKey, profitImportLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w", ErrImportInProgress)
	}
	defer func() {
		if err := s.locker.Release(context.Background(), profitImportLockKey); err != nil {
			s.logger.Warn("failed to release profit import lock", zap.Error(err))
		}
	}()

	summary := &ImportSummary{}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record := &model.FBAProfitFile{ImportDate: time.Now()}
		if err := s.profitRepo.CreateImportRecord(txCtx, record); err != nil {
			return fmt.Errorf("failed to create import record: %w", err)
		}
		summary.ImportRecordID = record.ID

		var profits []model.FBAProfit
		for regionID, fees := range regionFees {
			region, err := s.regionRepo.FindByID(txCtx, regionID)
			if err != nil {
				return fmt.Errorf("%w: region %d", ErrNotFound, regionID)
			}
			rate := region.Country.Currency.ExchangeRate
			for _, fee := range fees {
				profit, err := s.profitFromFee(txCtx, record.ID, region, rate, fee)
				if err != nil {
					if errors.Is(err, catalog.ErrProductNotFound) {
						summary.Skipped++
						s.logger.Debug("skipping fee row for unknown product",
							zap.String("channel_sku", fee.ChannelSKU),
							zap.String("region", region.Name))
						continue
					}
					return err
				}
				profits = append(profits, *profit)
			}
		}
		if err := s.profitRepo.BulkInsert(txCtx, profits); err != nil {
			return fmt.Errorf("failed to insert profit records: %w", err)
		}
		summary.Imported = len(profits)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profit import complete",
		zap.Uint("import_record_id", summary.ImportRecordID),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// profitFromFee computes the GBP profit for one fee row. Fee prices arrive in
// marketplace currency; the region's exchange rate converts them to GBP at
// import time.
func (s *profitService) profitFromFee(ctx context.Context, recordID uint, region *model.Region, rate float64, fee FeeRecord) (*model.FBAProfit, error) {
	productSKU := channelSKUToProductSKU(fee.ChannelSKU)
	product, err := s.catalog.Product(ctx, productSKU)
	if err != nil {
		return nil, err
	}

	toGBP := func(localMinor int) int {
		return int(math.Round(float64(localMinor) * rate))
	}

	lastOrderID, err := s.orderRepo.LastClosedOrderID(ctx, productSKU, region.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up last order for %s: %w", productSKU, err)
	}

	profit := &model.FBAProfit{
		ImportRecordID: recordID,
		ProductSKU:     productSKU,
		RegionID:       region.ID,
		LastOrderID:    lastOrderID,
		ExchangeRate:   rate,
		ChannelSKU:     fee.ChannelSKU,
		ASIN:           fee.ASIN,
		ListingName:    fee.ListingName,
		SalePrice:      toGBP(fee.SalePrice),
		ReferralFee:    toGBP(fee.ReferralFee),
		ClosingFee:     toGBP(fee.ClosingFee),
		HandlingFee:    toGBP(fee.HandlingFee),
		PlacementFee:   toGBP(fee.PlacementFee),
		PurchasePrice:  product.PurchasePrice,
		ShippingPrice:  toGBP(fee.ShippingPrice),
	}
	profit.Profit = profit.SalePrice - profit.ReferralFee - profit.ClosingFee -
		profit.HandlingFee - profit.PlacementFee - profit.PurchasePrice - profit.ShippingPrice
	return profit, nil
}

// channelSKUToProductSKU strips the marketplace suffix from a channel SKU.
// Channel SKUs look like "ABC-001-FBA-UK"; the product SKU is the part before
// the "-FBA" marker. SKUs without the marker are used as-is.
func channelSKUToProductSKU(channelSKU string) string {
	if i := strings.Index(channelSKU, "-FBA"); i > 0 {
		return channelSKU[:i]
	}
	return channelSKU
}

func (s *profitService) Current(ctx context.Context, page, limit int) ([]ProfitResponse, int64, error) {
	profits, total, err := s.profitRepo.CurrentRecords(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list profit records: %w", err)
	}

	regions := make(map[uint]*model.Region)
	responses := make([]ProfitResponse, 0, len(profits))
	for _, p := range profits {
		region, ok := regions[p.RegionID]
		if !ok {
			var err error
			region, err = s.regionRepo.FindByID(ctx, p.RegionID)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: region %d", ErrNotFound, p.RegionID)
			}
			regions[p.RegionID] = region
		}
		symbol := region.Country.Currency.Symbol
		responses = append(responses, ProfitResponse{
			ID:            p.ID,
			ProductSKU:    p.ProductSKU,
			ChannelSKU:    p.ChannelSKU,
			ASIN:          p.ASIN,
			ListingName:   p.ListingName,
			Region:        region.Name,
			LastOrderID:   p.LastOrderID,
			SalePrice:     currency.FormatGBP(p.SalePrice),
			ReferralFee:   currency.FormatGBP(p.ReferralFee),
			ClosingFee:    currency.FormatGBP(p.ClosingFee),
			HandlingFee:   currency.FormatGBP(p.HandlingFee),
			PlacementFee:  currency.FormatGBP(p.PlacementFee),
			PurchasePrice: currency.FormatGBP(p.PurchasePrice),
			ShippingPrice: currency.FormatGBP(p.ShippingPrice),
			Profit:        currency.FormatGBP(p.Profit),
			ProfitLocal:   currency.FormatLocal(p.Profit, p.ExchangeRate, symbol),
		})
	}
	return responses, total, nil
}

func (s *profitService) LastImportDate(ctx context.Context) (*time.Time, error) {
	record, err := s.profitRepo.LatestImportRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest import: %w", err)
	}
	if record == nil {
		return nil, nil
	}
	return &record.ImportDate, nil
}
