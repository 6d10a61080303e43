package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/model"
)

type stubReorderRepo struct {
	reports map[uint]*model.ReorderReportDownload
	nextID  uint
}

func newStubReorderRepo() *stubReorderRepo {
	return &stubReorderRepo{reports: make(map[uint]*model.ReorderReportDownload), nextID: 1}
}

func (r *stubReorderRepo) Create(ctx context.Context, report *model.ReorderReportDownload) error {
	report.ID = r.nextID
	report.CreatedAt = time.Now()
	r.nextID++
	r.reports[report.ID] = report
	return nil
}

func (r *stubReorderRepo) Save(ctx context.Context, report *model.ReorderReportDownload) error {
	r.reports[report.ID] = report
	return nil
}

func (r *stubReorderRepo) FindByID(ctx context.Context, id uint) (*model.ReorderReportDownload, error) {
	report, ok := r.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return report, nil
}

func (r *stubReorderRepo) List(ctx context.Context, page, limit int) ([]model.ReorderReportDownload, int64, error) {
	var out []model.ReorderReportDownload
	for _, report := range r.reports {
		out = append(out, *report)
	}
	return out, int64(len(out)), nil
}

func (r *stubReorderRepo) ClaimNextPending(ctx context.Context) (*model.ReorderReportDownload, error) {
	for _, report := range r.reports {
		if report.Status == model.ReportStatusPending {
			report.Status = model.ReportStatusInProgress
			return report, nil
		}
	}
	return nil, nil
}

type memoryFileStore struct {
	files map[string][]byte
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{files: make(map[string][]byte)}
}

func (s *memoryFileStore) Save(ctx context.Context, path string, data []byte, contentType string) error {
	s.files[path] = append([]byte(nil), data...)
	return nil
}

func (s *memoryFileStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type reorderTestEnv struct {
	svc       *reorderService
	repo      *stubReorderRepo
	orderRepo *stubOrderRepo
	store     *memoryFileStore
	stock     *stubStock
}

func newReorderTestEnv() *reorderTestEnv {
	env := &reorderTestEnv{
		repo:      newStubReorderRepo(),
		orderRepo: newStubOrderRepo(),
		store:     newMemoryFileStore(),
		stock:     &stubStock{level: 25},
	}
	cat := &stubCatalog{
		products: map[string]*catalog.Product{
			"ABC-001": {SKU: "ABC-001", Name: "Garden Gnome", SupplierID: 1, SupplierSKU: "GN-1"},
			"ABC-002": {SKU: "ABC-002", Name: "Bird Feeder", SupplierID: 1, SupplierSKU: "BF-2"},
		},
		suppliers: map[uint]*catalog.Supplier{1: {ID: 1, Name: "Acme Supplies"}},
		sold:      map[string]int{"ABC-001": 120, "ABC-002": 30},
	}
	svc := NewReorderService(env.repo, env.orderRepo, &stubAuditRepo{}, cat, env.stock, env.store, passthroughTx{}, zap.NewNop())
	env.svc = svc.(*reorderService)
	return env
}

func TestRequestReorderReport(t *testing.T) {
	env := newReorderTestEnv()

	resp, err := env.svc.Request(context.Background(), "", &RequestReorderReportRequest{
		SupplierID: 1,
		DateFrom:   "2026-07-01",
		DateTo:     "2026-07-31",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReportStatusPending, resp.Status)
	assert.Equal(t, "Acme Supplies", resp.Supplier)
	assert.Equal(t, "2026-07-01", resp.DateFrom)
	assert.Equal(t, "2026-07-31", resp.DateTo)
}

func TestRequestReorderReportValidation(t *testing.T) {
	env := newReorderTestEnv()
	ctx := context.Background()

	_, err := env.svc.Request(ctx, "", &RequestReorderReportRequest{SupplierID: 1, DateFrom: "01/07/2026", DateTo: "2026-07-31"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Request(ctx, "", &RequestReorderReportRequest{SupplierID: 1, DateFrom: "2026-07-31", DateTo: "2026-07-01"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Request(ctx, "", &RequestReorderReportRequest{SupplierID: 42, DateFrom: "2026-07-01", DateTo: "2026-07-31"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessGeneratesReport(t *testing.T) {
	env := newReorderTestEnv()
	ctx := context.Background()

	closedAt := time.Date(2026, 7, 10, 14, 0, 0, 0, time.Local)
	sent := 50
	env.orderRepo.add(&model.FBAOrder{
		RegionID: 1, ProductSKU: "ABC-001",
		ClosedAt: &closedAt, QuantitySent: &sent,
	})

	report := &model.ReorderReportDownload{
		SupplierID:   1,
		SupplierName: "Acme Supplies",
		DateFrom:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local),
		DateTo:       time.Date(2026, 7, 31, 0, 0, 0, 0, time.Local),
		Status:       model.ReportStatusInProgress,
	}
	require.NoError(t, env.repo.Create(ctx, report))

	env.svc.process(ctx, report)

	assert.Equal(t, model.ReportStatusComplete, report.Status)
	assert.Equal(t, 2, report.RowCount)
	assert.NotNil(t, report.CompletedAt)
	require.NotEmpty(t, report.DownloadFile)

	rc, err := env.store.Open(ctx, report.DownloadFile)
	require.NoError(t, err)
	defer rc.Close()

	reader := csv.NewReader(rc)
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reorderReportHeader, rows[0])

	byID := map[string][]string{rows[1][0]: rows[1], rows[2][0]: rows[2]}
	gnome := byID["ABC-001"]
	require.NotNil(t, gnome)
	assert.Equal(t, "Garden Gnome", gnome[1])
	assert.Equal(t, "Acme Supplies", gnome[2])
	assert.Equal(t, "120", gnome[4])
	assert.Equal(t, "50", gnome[5])
	assert.Equal(t, "2026-07-10", gnome[6])
	assert.Equal(t, "25", gnome[7])

	feeder := byID["ABC-002"]
	require.NotNil(t, feeder)
	assert.Equal(t, "Never Sent", feeder[6])
}

func TestProcessSupplierWithoutProducts(t *testing.T) {
	env := newReorderTestEnv()
	ctx := context.Background()

	report := &model.ReorderReportDownload{
		SupplierID: 9,
		DateFrom:   time.Now(),
		DateTo:     time.Now(),
		Status:     model.ReportStatusInProgress,
	}
	require.NoError(t, env.repo.Create(ctx, report))

	env.svc.process(ctx, report)

	// header-only report, not a failure
	assert.Equal(t, model.ReportStatusComplete, report.Status)
	assert.Zero(t, report.RowCount)
}

func TestProcessFailsWhenStockUnavailable(t *testing.T) {
	env := newReorderTestEnv()
	env.stock.levelErr = errors.New("platform unreachable")
	ctx := context.Background()

	report := &model.ReorderReportDownload{
		SupplierID:   1,
		SupplierName: "Acme Supplies",
		DateFrom:     time.Now().AddDate(0, 0, -7),
		DateTo:       time.Now(),
		Status:       model.ReportStatusInProgress,
	}
	require.NoError(t, env.repo.Create(ctx, report))

	env.svc.process(ctx, report)

	assert.Equal(t, model.ReportStatusFailed, report.Status, "a report with guessed stock figures is worse than no report")
	assert.Contains(t, report.ErrorMessage, "stock")
}

func TestDownloadRequiresCompleteReport(t *testing.T) {
	env := newReorderTestEnv()
	ctx := context.Background()

	report := &model.ReorderReportDownload{Status: model.ReportStatusPending}
	require.NoError(t, env.repo.Create(ctx, report))

	_, _, err := env.svc.Download(ctx, report.ID)
	assert.ErrorIs(t, err, ErrDomainRule)

	_, _, err = env.svc.Download(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadStreamsStoredFile(t *testing.T) {
	env := newReorderTestEnv()
	ctx := context.Background()

	env.store.files["reports/reorder_reports/abc.csv"] = []byte("SKU,Name\r\n")
	report := &model.ReorderReportDownload{
		Status:       model.ReportStatusComplete,
		DownloadFile: "reports/reorder_reports/abc.csv",
	}
	require.NoError(t, env.repo.Create(ctx, report))

	rc, filename, err := env.svc.Download(ctx, report.ID)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "reorder_report_1.csv", filename)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "SKU,Name\r\n", string(data))
}
