package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
)

const feeFileHeader = "sku\tasin\tproduct-name\tyour-price\testimated-referral-fee-per-unit\testimated-variable-closing-fee\testimated-order-handling-fee-per-order\testimated-pick-pack-fee-per-unit\testimated-order-weight-handling-fee-per-unit"

func feeFile(rows ...string) string {
	return feeFileHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestParseFeeFile(t *testing.T) {
	s := &profitService{logger: zap.NewNop()}

	input := feeFile(
		"ABC-001-FBA-UK\tB01ABCDEF\tGarden Gnome\t19.99\t3.00\t--\t\t1.26\t0.45",
		"DEF-002-FBA-DE\tB09XYZXYZ\tBird Feeder\t8.50\t1.28\t0.00\t0.30\t0.99\t0.10",
	)
	records, err := s.ParseFeeFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "ABC-001-FBA-UK", first.ChannelSKU)
	assert.Equal(t, "B01ABCDEF", first.ASIN)
	assert.Equal(t, "Garden Gnome", first.ListingName)
	assert.Equal(t, 1999, first.SalePrice)
	assert.Equal(t, 300, first.ReferralFee)
	assert.Equal(t, 0, first.ClosingFee, "-- means no fee")
	assert.Equal(t, 0, first.HandlingFee, "empty means no fee")
	assert.Equal(t, 126, first.PlacementFee)
	assert.Equal(t, 45, first.ShippingPrice)

	second := records[1]
	assert.Equal(t, "DEF-002-FBA-DE", second.ChannelSKU)
	assert.Equal(t, 850, second.SalePrice)
	assert.Equal(t, 30, second.HandlingFee)
}

func TestParseFeeFileSkipsBadRows(t *testing.T) {
	s := &profitService{logger: zap.NewNop()}

	input := feeFile(
		"\tB01ABCDEF\tNo SKU\t5.00\t1.00\t0\t0\t0\t0",
		"BAD-PRICE-FBA\tB01ABCDEF\tBad price\tN/A\t1.00\t0\t0\t0\t0",
		"GOOD-SKU-FBA\tB01ABCDEF\tGood\t5.00\t1.00\t0\t0\t0\t0",
	)
	records, err := s.ParseFeeFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GOOD-SKU-FBA", records[0].ChannelSKU)
}

func TestParseFeeFileRequiresColumns(t *testing.T) {
	s := &profitService{logger: zap.NewNop()}

	_, err := s.ParseFeeFile(strings.NewReader("sku\tyour-price\nA\t1.00\n"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.ParseFeeFile(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseFeeFileHeaderCaseInsensitive(t *testing.T) {
	s := &profitService{logger: zap.NewNop()}

	input := "SKU\tASIN\tProduct-Name\n" + "ABC-001\tB0\tThing\n"
	records, err := s.ParseFeeFile(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ABC-001", records[0].ChannelSKU)
	assert.Zero(t, records[0].SalePrice)
}

func TestChannelSKUToProductSKU(t *testing.T) {
	cases := map[string]string{
		"ABC-001-FBA-UK": "ABC-001",
		"ABC-001-FBA":    "ABC-001",
		"ABC-001":        "ABC-001",
		"-FBA-UK":        "-FBA-UK", // marker at position zero is not a suffix
		"X-FBA-FBA":      "X",
	}
	for channel, want := range cases {
		assert.Equal(t, want, channelSKUToProductSKU(channel), "channel sku %q", channel)
	}
}

type stubProfitRepo struct {
	importRecords []*model.FBAProfitFile
	inserted      []model.FBAProfit
	nextID        uint
}

func (r *stubProfitRepo) CreateImportRecord(ctx context.Context, record *model.FBAProfitFile) error {
	r.nextID++
	record.ID = r.nextID
	r.importRecords = append(r.importRecords, record)
	return nil
}

func (r *stubProfitRepo) BulkInsert(ctx context.Context, records []model.FBAProfit) error {
	r.inserted = append(r.inserted, records...)
	return nil
}

func (r *stubProfitRepo) LatestImportRecord(ctx context.Context) (*model.FBAProfitFile, error) {
	if len(r.importRecords) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.importRecords[len(r.importRecords)-1], nil
}

func (r *stubProfitRepo) CurrentRecords(ctx context.Context, page, limit int) ([]model.FBAProfit, int64, error) {
	return r.inserted, int64(len(r.inserted)), nil
}

type stubLocker struct {
	held     bool
	acquires int
	releases int
}

func (l *stubLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.acquires++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubLocker) Release(ctx context.Context, key string) error {
	l.held = false
	l.releases++
	return nil
}

type profitTestEnv struct {
	svc    ProfitService
	repo   *stubProfitRepo
	locker *stubLocker
}

func newProfitTestEnv() *profitTestEnv {
	repo := &stubProfitRepo{}
	locker := &stubLocker{}
	regions := &stubRegionRepo{regions: map[uint]*model.Region{
		1: {
			ID: 1, Name: "UK", Active: true,
			Country: model.Country{Currency: model.Currency{Symbol: "£", ExchangeRate: 1}},
		},
	}}
	cat := &stubCatalog{products: map[string]*catalog.Product{
		"ABC-001": {SKU: "ABC-001", PurchasePrice: 450},
	}}
	svc := NewProfitService(repo, newStubOrderRepo(), regions, cat, passthroughTx{}, locker, zap.NewNop())
	return &profitTestEnv{svc: svc, repo: repo, locker: locker}
}

func TestUpdateFromExportsSkipsUnknownProducts(t *testing.T) {
	env := newProfitTestEnv()

	summary, err := env.svc.UpdateFromExports(context.Background(), map[uint][]FeeRecord{
		1: {
			{ChannelSKU: "ABC-001-FBA-UK", ASIN: "B000000001", ListingName: "Garden Gnome", SalePrice: 1999, ReferralFee: 300},
			{ChannelSKU: "ZZZ-999-FBA-UK", ASIN: "B000000002", ListingName: "Unknown Thing", SalePrice: 899},
		},
	})
	require.NoError(t, err, "unknown products are skipped, not fatal")

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)

	require.Len(t, env.repo.inserted, 1)
	row := env.repo.inserted[0]
	assert.Equal(t, "ABC-001", row.ProductSKU)
	assert.Equal(t, "ABC-001-FBA-UK", row.ChannelSKU)
	assert.Equal(t, summary.ImportRecordID, row.ImportRecordID)
	assert.Equal(t, 1999, row.SalePrice)
	assert.Equal(t, 1999-300-450, row.Profit)

	assert.Equal(t, 1, env.locker.releases, "lock released after the run")
}

func TestUpdateFromExportsUnknownRegionFails(t *testing.T) {
	env := newProfitTestEnv()

	_, err := env.svc.UpdateFromExports(context.Background(), map[uint][]FeeRecord{
		99: {{ChannelSKU: "ABC-001-FBA-UK", SalePrice: 100}},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, env.locker.releases)
}

func TestUpdateFromExportsRefusesConcurrentRun(t *testing.T) {
	env := newProfitTestEnv()
	env.locker.held = true

	_, err := env.svc.UpdateFromExports(context.Background(), nil)
	assert.ErrorIs(t, err, ErrImportInProgress)
	assert.Zero(t, env.locker.releases, "a refused run must not release the holder's lock")
}
