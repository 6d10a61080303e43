package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newExportTestEnv(t *testing.T) (ExportService, *shipmentTestEnv, *memoryFileStore, uint) {
	t.Helper()
	env := newShipmentTestEnv(t)
	store := newMemoryFileStore()
	exportSvc := NewExportService(env.repo, store, zap.NewNop())

	id := env.newShipment(t, true)
	exportID, err := env.svc.CloseShipmentOrder(context.Background(), "", id)
	require.NoError(t, err)
	return exportSvc, env, store, exportID
}

func TestExportFiles(t *testing.T) {
	svc, _, _, exportID := newExportTestEnv(t)
	ctx := context.Background()

	shipment, err := svc.ShipmentFile(ctx, exportID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FBA_shipment_file_%d.csv", exportID), shipment.Filename)
	assert.Equal(t, "text/csv", shipment.ContentType)
	assert.True(t, strings.HasPrefix(string(shipment.Content), "OrderNumber,PackageNumber"))

	address, err := svc.AddressFile(ctx, exportID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FBA_address_file_%d.csv", exportID), address.Filename)
	assert.Contains(t, string(address.Content), "Amazon Luton")

	itd, err := svc.ITDFile(ctx, exportID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("ITD_shipment_file_%d.csv", exportID), itd.Filename)
	assert.Contains(t, string(itd.Content), "ITDEXP")

	workbook, err := svc.ShipmentWorkbook(ctx, exportID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FBA_shipment_file_%d.xlsx", exportID), workbook.Filename)
	assert.NotEmpty(t, workbook.Content)
}

func TestExportFilesNotFound(t *testing.T) {
	svc, _, _, _ := newExportTestEnv(t)

	_, err := svc.ShipmentFile(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreFiles(t *testing.T) {
	svc, _, store, exportID := newExportTestEnv(t)

	require.NoError(t, svc.StoreFiles(context.Background(), exportID))

	assert.Len(t, store.files, 4)
	prefix := fmt.Sprintf("exports/fba_shipments/%d/", exportID)
	assert.Contains(t, store.files, fmt.Sprintf("%sFBA_shipment_file_%d.csv", prefix, exportID))
	assert.Contains(t, store.files, fmt.Sprintf("%sFBA_address_file_%d.csv", prefix, exportID))
	assert.Contains(t, store.files, fmt.Sprintf("%sITD_shipment_file_%d.csv", prefix, exportID))
	assert.Contains(t, store.files, fmt.Sprintf("%sFBA_shipment_file_%d.xlsx", prefix, exportID))
}
