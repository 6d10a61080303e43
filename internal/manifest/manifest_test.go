package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stcadmin/fba-backend/internal/model"
)

func sampleExport() *model.FBAShipmentExport {
	dest := model.FBAShipmentDestination{
		Name:          "AMZ LTN4",
		RecipientName: "Amazon Luton",
		AddressLine1:  "1 Boscombe Road",
		City:          "Dunstable",
		Country:       "United Kingdom",
		CountryISO:    "GB",
		Postcode:      "LU5 4FE",
	}
	method := model.FBAShipmentMethod{Name: "ITD Express", Identifier: "ITDEXP"}
	orders := make([]model.FBAShipmentOrder, 0, 5)
	for i := 1; i <= 5; i++ {
		orders = append(orders, model.FBAShipmentOrder{
			ID:             uint(i),
			Destination:    dest,
			ShipmentMethod: method,
			Packages: []model.FBAShipmentPackage{{
				ID:       uint(100 + i),
				LengthCM: 40,
				WidthCM:  30,
				HeightCM: 20,
				Items: []model.FBAShipmentItem{{
					SKU:             "ABC-001",
					Description:     "Bob's Widget",
					Quantity:        4,
					WeightKG:        2.5,
					Value:           1299,
					CountryOfOrigin: "United Kingdom",
					HRCode:          "95030099",
				}},
			}},
		})
	}
	return &model.FBAShipmentExport{ID: 7, ShipmentOrders: orders}
}

func TestUPSShipmentRows(t *testing.T) {
	rows := UPSShipmentRows(sampleExport())

	// header + one row per item + totals
	require.Len(t, rows, 7)
	assert.Equal(t, UPSShipmentHeader, rows[0])

	first := rows[1]
	require.Len(t, first, len(UPSShipmentHeader))
	assert.Equal(t, "STC_FBA_00001", first[0])
	assert.Equal(t, "STC_FBA_00001_101", first[1])
	assert.Equal(t, "Bobs Widget", first[5], "apostrophes are stripped")
	assert.Equal(t, "ABC-001", first[6])
	assert.Equal(t, "2.5", first[7])
	assert.Equal(t, "12.99", first[8])
	assert.Equal(t, "4", first[9])
	assert.Equal(t, "UPSES", first[12])
	assert.Equal(t, "EACH", first[13])

	// totals row carries only the summed weight: 5 orders x 4 x 2.5kg
	totals := rows[6]
	for i, cell := range totals {
		if i == 7 {
			assert.Equal(t, "50.0", cell)
		} else {
			assert.Empty(t, cell)
		}
	}
}

func TestUPSAddressRows(t *testing.T) {
	rows := UPSAddressRows(sampleExport())

	require.Len(t, rows, 6)
	assert.Equal(t, UPSAddressHeader, rows[0])

	first := rows[1]
	require.Len(t, first, len(UPSAddressHeader))
	assert.Equal(t, "STC_FBA_00001", first[0])
	assert.Equal(t, "Amazon Luton", first[1])
	assert.Equal(t, "GB", first[10])
	assert.Equal(t, "LU5 4FE", first[11])
	assert.Equal(t, "1", first[13], "package count")
	assert.Equal(t, "10.0", first[14], "order weight")
	assert.Equal(t, "WI-STC001", first[20])
}

func TestITDShipmentRows(t *testing.T) {
	rows := ITDShipmentRows(sampleExport())

	require.Len(t, rows, 6)
	assert.Equal(t, ITDShipmentHeader, rows[0])

	first := rows[1]
	require.Len(t, first, len(ITDShipmentHeader))
	assert.Equal(t, "Amazon Luton", first[12])
	assert.Equal(t, "Dunstable", first[16])
	assert.Equal(t, "ITDEXP", first[len(first)-1], "method identifier from the carrier record")
}

func TestWriteCSVUsesCRLF(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, [][]string{{"a", "b"}, {"1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b\r\n1,2\r\n", buf.String())
}

func TestWriteCSVQuotesEmbeddedCommas(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, [][]string{{"widget, large", "2"}})
	require.NoError(t, err)
	assert.Equal(t, "\"widget, large\",2\r\n", buf.String())
}

func TestUPSShipmentWorkbook(t *testing.T) {
	f, err := UPSShipmentWorkbook(sampleExport())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Shipment")
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, UPSShipmentHeader, rows[0])
	assert.Equal(t, "STC_FBA_00001", rows[1][0])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "12.99", formatValue(1299))
	assert.Equal(t, "0.05", formatValue(5))
	assert.Equal(t, "2.5", formatWeight(2.5))
	assert.Equal(t, "1.234", formatWeight(1.2339))
	assert.Equal(t, "10.0", formatWeight(10.0), "whole weights keep a decimal")
	assert.Equal(t, "50.0", formatWeight(50))
}

func TestShortenDescription(t *testing.T) {
	long := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 27)+"...", model.ShortenDescription(long, 30))
	assert.Equal(t, "short", model.ShortenDescription("  short  ", 30))

	// truncation must fall on rune boundaries, not bytes
	accented := strings.Repeat("é", 40)
	assert.Equal(t, strings.Repeat("é", 27)+"...", model.ShortenDescription(accented, 30))
}
