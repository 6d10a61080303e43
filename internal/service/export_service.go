package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/stcadmin/fba-backend/internal/manifest"
	"github.com/stcadmin/fba-backend/internal/repository"
	"github.com/stcadmin/fba-backend/internal/storage"

	"go.uber.org/zap"
)

// ExportFile is a generated carrier file ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService turns closed shipment exports into carrier files and keeps
// copies in object storage.
type ExportService interface {
	ShipmentFile(ctx context.Context, exportID uint) (*ExportFile, error)
	AddressFile(ctx context.Context, exportID uint) (*ExportFile, error)
	ITDFile(ctx context.Context, exportID uint) (*ExportFile, error)
	ShipmentWorkbook(ctx context.Context, exportID uint) (*ExportFile, error)
	StoreFiles(ctx context.Context, exportID uint) error
}

type exportService struct {
	repo   repository.ShipmentRepository
	store  storage.FileStore
	logger *zap.Logger
}

func NewExportService(repo repository.ShipmentRepository, store storage.FileStore, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, store: store, logger: logger}
}

func (s *exportService) ShipmentFile(ctx context.Context, exportID uint) (*ExportFile, error) {
	export, err := s.repo.FindExport(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("%w: export %d", ErrNotFound, exportID)
	}
	var buf bytes.Buffer
	if err := manifest.WriteCSV(&buf, manifest.UPSShipmentRows(export)); err != nil {
		return nil, fmt.Errorf("failed to write shipment file: %w", err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("FBA_shipment_file_%d.csv", exportID),
		ContentType: "text/csv",
		Content:     buf.Bytes(),
	}, nil
}

func (s *exportService) AddressFile(ctx context.Context, exportID uint) (*ExportFile, error) {
	export, err := s.repo.FindExport(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("%w: export %d", ErrNotFound, exportID)
	}
	var buf bytes.Buffer
	if err := manifest.WriteCSV(&buf, manifest.UPSAddressRows(export)); err != nil {
		return nil, fmt.Errorf("failed to write address file: %w", err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("FBA_address_file_%d.csv", exportID),
		ContentType: "text/csv",
		Content:     buf.Bytes(),
	}, nil
}

func (s *exportService) ITDFile(ctx context.Context, exportID uint) (*ExportFile, error) {
	export, err := s.repo.FindExport(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("%w: export %d", ErrNotFound, exportID)
	}
	var buf bytes.Buffer
	if err := manifest.WriteCSV(&buf, manifest.ITDShipmentRows(export)); err != nil {
		return nil, fmt.Errorf("failed to write ITD file: %w", err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("ITD_shipment_file_%d.csv", exportID),
		ContentType: "text/csv",
		Content:     buf.Bytes(),
	}, nil
}

func (s *exportService) ShipmentWorkbook(ctx context.Context, exportID uint) (*ExportFile, error) {
	export, err := s.repo.FindExport(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("%w: export %d", ErrNotFound, exportID)
	}
	workbook, err := manifest.UPSShipmentWorkbook(export)
	if err != nil {
		return nil, fmt.Errorf("failed to build shipment workbook: %w", err)
	}
	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write shipment workbook: %w", err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("FBA_shipment_file_%d.xlsx", exportID),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

// StoreFiles persists every carrier file for the export under
// exports/fba_shipments/. Called after a shipment is closed; failures are
// logged and returned so the caller can retry, but the export itself is
// already committed.
func (s *exportService) StoreFiles(ctx context.Context, exportID uint) error {
	builders := []func(context.Context, uint) (*ExportFile, error){
		s.ShipmentFile,
		s.AddressFile,
		s.ITDFile,
		s.ShipmentWorkbook,
	}
	for _, build := range builders {
		file, err := build(ctx, exportID)
		if err != nil {
			return err
		}
		path := fmt.Sprintf("exports/fba_shipments/%d/%s", exportID, file.Filename)
		if err := s.store.Save(ctx, path, file.Content, file.ContentType); err != nil {
			s.logger.Error("failed to store export file",
				zap.Uint("export_id", exportID),
				zap.String("path", path),
				zap.Error(err))
			return err
		}
	}
	return nil
}
