package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/stcadmin/fba-backend/internal/catalog"
	"github.com/stcadmin/fba-backend/internal/manifest"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/internal/stock"
	"github.com/stcadmin/fba-backend/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reorderPollInterval = 5 * time.Second

// reorderReportHeader is the column layout of a generated reorder report.
var reorderReportHeader = []string{
	"SKU", "Name", "Supplier", "Supplier SKU", "Sold",
	"Sent to FBA", "Date Last Sent to FBA", "Available",
}

// RequestReorderReportRequest asks for a report of FBA activity for one
// supplier over a date range. Dates are inclusive of From, exclusive of the
// day after To.
type RequestReorderReportRequest struct {
	SupplierID uint   `json:"supplier_id" binding:"required"`
	DateFrom   string `json:"date_from" binding:"required"`
	DateTo     string `json:"date_to" binding:"required"`
}

// ReorderReportResponse describes a requested report and its progress.
type ReorderReportResponse struct {
	ID          uint       `json:"id"`
	SupplierID  uint       `json:"supplier_id"`
	Supplier    string     `json:"supplier"`
	DateFrom    string     `json:"date_from"`
	DateTo      string     `json:"date_to"`
	Status      string     `json:"status"`
	RowCount    int        `json:"row_count"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReorderService queues reorder report requests and runs the worker that
// generates them.
type ReorderService interface {
	Request(ctx context.Context, userID string, req *RequestReorderReportRequest) (*ReorderReportResponse, error)
	Get(ctx context.Context, id uint) (*ReorderReportResponse, error)
	List(ctx context.Context, page, limit int) ([]ReorderReportResponse, int64, error)
	Download(ctx context.Context, id uint) (io.ReadCloser, string, error)
	RunWorker(ctx context.Context)
}

type reorderService struct {
	repo      repository.ReorderReportRepository
	orderRepo repository.FBAOrderRepository
	auditRepo repository.AuditRepository
	catalog   catalog.Catalog
	stock     stock.Adapter
	store     storage.FileStore
	txManager repository.TransactionManager
	logger    *zap.Logger
}

func NewReorderService(
	repo repository.ReorderReportRepository,
	orderRepo repository.FBAOrderRepository,
	auditRepo repository.AuditRepository,
	cat catalog.Catalog,
	stockAdapter stock.Adapter,
	store storage.FileStore,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) ReorderService {
	return &reorderService{
		repo:      repo,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		catalog:   cat,
		stock:     stockAdapter,
		store:     store,
		txManager: txManager,
		logger:    logger,
	}
}

func parseReportDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, value)
	}
	return t, nil
}

func (s *reorderService) Request(ctx context.Context, userID string, req *RequestReorderReportRequest) (*ReorderReportResponse, error) {
	from, err := parseReportDate(req.DateFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseReportDate(req.DateTo)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date_to is before date_from", ErrValidation)
	}
	supplier, err := s.catalog.Supplier(ctx, req.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("%w: supplier %d", ErrNotFound, req.SupplierID)
	}

	report := &model.ReorderReportDownload{
		SupplierID:   req.SupplierID,
		SupplierName: supplier.Name,
		DateFrom:     from,
		DateTo:       to,
		Status:       model.ReportStatusPending,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		report.UserID = &parsed
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to queue reorder report: %w", err)
	}

	s.audit(ctx, userID, model.ActionRequestReport, report.ID, "reorder_report", map[string]interface{}{
		"supplier_id": req.SupplierID,
		"date_from":   req.DateFrom,
		"date_to":     req.DateTo,
	})

	return toReorderResponse(report), nil
}

func (s *reorderService) Get(ctx context.Context, id uint) (*ReorderReportResponse, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: reorder report %d", ErrNotFound, id)
	}
	return toReorderResponse(report), nil
}

func (s *reorderService) List(ctx context.Context, page, limit int) ([]ReorderReportResponse, int64, error) {
	reports, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reorder reports: %w", err)
	}
	responses := make([]ReorderReportResponse, 0, len(reports))
	for i := range reports {
		responses = append(responses, *toReorderResponse(&reports[i]))
	}
	return responses, total, nil
}

func (s *reorderService) Download(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reorder report %d", ErrNotFound, id)
	}
	if report.Status != model.ReportStatusComplete || report.DownloadFile == "" {
		return nil, "", fmt.Errorf("%w: report %d is not ready for download", ErrDomainRule, id)
	}
	rc, err := s.store.Open(ctx, report.DownloadFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open report file: %w", err)
	}
	filename := fmt.Sprintf("reorder_report_%d.csv", report.ID)
	return rc, filename, nil
}

// RunWorker polls for pending reports until the context is cancelled. It is
// safe to run one worker per process; claiming uses SKIP LOCKED so multiple
// instances never pick up the same report.
func (s *reorderService) RunWorker(ctx context.Context) {
	ticker := time.NewTicker(reorderPollInterval)
	defer ticker.Stop()

	s.logger.Info("reorder report worker started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reorder report worker stopped")
			return
		case <-ticker.C:
			for {
				var report *model.ReorderReportDownload
				err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
					var claimErr error
					report, claimErr = s.repo.ClaimNextPending(txCtx)
					return claimErr
				})
				if err != nil {
					s.logger.Error("failed to claim pending reorder report", zap.Error(err))
					break
				}
				if report == nil {
					break
				}
				s.process(ctx, report)
			}
		}
	}
}

func (s *reorderService) process(ctx context.Context, report *model.ReorderReportDownload) {
	logger := s.logger.With(zap.Uint("report_id", report.ID), zap.Uint("supplier_id", report.SupplierID))
	logger.Info("generating reorder report")

	path, rows, err := s.generate(ctx, report)
	now := time.Now()
	if err != nil {
		logger.Error("reorder report generation failed", zap.Error(err))
		report.Status = model.ReportStatusFailed
		report.ErrorMessage = err.Error()
		report.CompletedAt = &now
	} else {
		report.Status = model.ReportStatusComplete
		report.DownloadFile = path
		report.RowCount = rows
		report.CompletedAt = &now
		logger.Info("reorder report complete", zap.Int("rows", rows))
	}
	if err := s.repo.Save(ctx, report); err != nil {
		logger.Error("failed to save reorder report state", zap.Error(err))
	}
}

// generate builds the report CSV and uploads it, returning the storage path
// and the number of product rows.
func (s *reorderService) generate(ctx context.Context, report *model.ReorderReportDownload) (string, int, error) {
	products, err := s.catalog.ProductsBySupplier(ctx, report.SupplierID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to load products: %w", err)
	}

	// Report range covers whole days: midnight on DateFrom up to but not
	// including midnight after DateTo.
	from := report.DateFrom
	to := report.DateTo.AddDate(0, 0, 1)

	rows := [][]string{reorderReportHeader}
	for _, product := range products {
		sold, err := s.catalog.SoldQuantity(ctx, product.SKU, from, to)
		if err != nil {
			return "", 0, fmt.Errorf("failed to sum sales for %s: %w", product.SKU, err)
		}
		sent, err := s.orderRepo.SumQuantitySent(ctx, product.SKU, from, to)
		if err != nil {
			return "", 0, fmt.Errorf("failed to sum FBA quantity for %s: %w", product.SKU, err)
		}
		lastSent, err := s.orderRepo.LastClosedAt(ctx, product.SKU)
		if err != nil {
			return "", 0, fmt.Errorf("failed to find last shipment for %s: %w", product.SKU, err)
		}
		lastSentText := "Never Sent"
		if lastSent != nil {
			lastSentText = lastSent.Format("2006-01-02")
		}
		available, err := s.stock.GetStockLevel(ctx, product.SKU)
		if err != nil {
			return "", 0, fmt.Errorf("%w: stock level for %s: %v", ErrStockUnavailable, product.SKU, err)
		}

		rows = append(rows, []string{
			product.SKU,
			product.Name,
			report.SupplierName,
			product.SupplierSKU,
			strconv.Itoa(sold),
			strconv.Itoa(sent),
			lastSentText,
			strconv.Itoa(available),
		})
	}

	var buf bytes.Buffer
	if err := manifest.WriteCSV(&buf, rows); err != nil {
		return "", 0, fmt.Errorf("failed to write report csv: %w", err)
	}

	path := fmt.Sprintf("reports/reorder_reports/%s.csv", uuid.New().String())
	if err := s.store.Save(ctx, path, buf.Bytes(), "text/csv"); err != nil {
		return "", 0, fmt.Errorf("failed to upload report: %w", err)
	}
	return path, len(rows) - 1, nil
}

func toReorderResponse(report *model.ReorderReportDownload) *ReorderReportResponse {
	resp := &ReorderReportResponse{
		ID:          report.ID,
		SupplierID:  report.SupplierID,
		Supplier:    report.SupplierName,
		DateFrom:    report.DateFrom.Format("2006-01-02"),
		DateTo:      report.DateTo.Format("2006-01-02"),
		Status:      report.Status,
		RowCount:    report.RowCount,
		Error:       report.ErrorMessage,
		CreatedAt:   report.CreatedAt,
		CompletedAt: report.CompletedAt,
	}
	return resp
}

func (s *reorderService) audit(ctx context.Context, userID, action string, entityID uint, entityName string, details interface{}) {
	auditWrite(ctx, s.auditRepo, s.logger, userID, action, entityID, entityName, details)
}
