// Package manifest builds carrier manifest files from a closed shipment
// export. Row builders are pure; writers emit excel-dialect CSV (CRLF) or an
// Excel workbook. Iteration order follows creation order throughout, which
// the carrier formats rely on.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/stcadmin/fba-backend/internal/model"
)

// Fixed values required by the UPS rate card agreement.
const (
	upsShipmentMethod    = "UPSES"
	upsUnitOfMeasure     = "EACH"
	upsEmail             = "test@amazon.com"
	upsGeneralDesc       = "TEST"
	upsBillTransportTo   = "SHP"
	upsBillDutyAndTax    = "REC"
	upsPackageType       = "SV"
	upsCurrency          = "GBP"
	upsRatecardReference = "WI-STC001"
)

// UPSShipmentHeader is the column order of the UPS shipment file.
var UPSShipmentHeader = []string{
	"OrderNumber",
	"PackageNumber",
	"PackageLength",
	"PackageWidth",
	"PackageHeight",
	"ItemDescription",
	"SKU",
	"PackageItemWeight",
	"ItemValue",
	"Quantity",
	"CountryOfOrigin",
	"HarmonisationCode",
	"ShipmentMethod",
	"UnitOfMeasure",
}

// UPSAddressHeader is the column order of the UPS address file.
var UPSAddressHeader = []string{
	"OrderNumber",
	"RecipientName",
	"ContactName",
	"ContactTelephone",
	"AddressLine1",
	"AddressLine2",
	"AddressLine3",
	"City",
	"State",
	"Country",
	"CountryISO",
	"Postcode",
	"Email",
	"PackageCount",
	"TotalWeight",
	"GeneralDescription",
	"BillTransportTo",
	"BillDutyAndTax",
	"PackageType",
	"Currency",
	"RatecardReference",
}

// ITDShipmentHeader is the column order of the ITD shipment file.
var ITDShipmentHeader = []string{
	"OrderNumber",
	"PackageNumber",
	"PackageLength",
	"PackageWidth",
	"PackageHeight",
	"ItemDescription",
	"SKU",
	"PackageItemWeight",
	"ItemValue",
	"Quantity",
	"CountryOfOrigin",
	"HarmonisationCode",
	"RecipientName",
	"AddressLine1",
	"AddressLine2",
	"AddressLine3",
	"City",
	"State",
	"Country",
	"CountryISO",
	"Postcode",
	"ShipmentMethod",
}

// upsShipmentWeightColumn is the index of PackageItemWeight in
// UPSShipmentHeader; the trailing totals row fills only this column.
const upsShipmentWeightColumn = 7

// UPSShipmentRows builds the UPS shipment file: header, one row per item in
// creation order, then a totals row carrying only the summed weight.
func UPSShipmentRows(export *model.FBAShipmentExport) [][]string {
	rows := [][]string{UPSShipmentHeader}
	var totalWeight float64
	for i := range export.ShipmentOrders {
		order := &export.ShipmentOrders[i]
		totalWeight += order.WeightKG()
		for j := range order.Packages {
			pkg := &order.Packages[j]
			for k := range pkg.Items {
				item := &pkg.Items[k]
				rows = append(rows, []string{
					order.OrderNumber(),
					pkg.Number(order.OrderNumber()),
					fmt.Sprintf("%d", pkg.LengthCM),
					fmt.Sprintf("%d", pkg.WidthCM),
					fmt.Sprintf("%d", pkg.HeightCM),
					stripApostrophes(item.Description),
					item.SKU,
					formatWeight(item.WeightKG),
					formatValue(item.Value),
					fmt.Sprintf("%d", item.Quantity),
					item.CountryOfOrigin,
					item.HRCode,
					upsShipmentMethod,
					upsUnitOfMeasure,
				})
			}
		}
	}
	totals := make([]string, len(UPSShipmentHeader))
	totals[upsShipmentWeightColumn] = formatWeight(totalWeight)
	rows = append(rows, totals)
	return rows
}

// UPSAddressRows builds the UPS address file: header plus one row per
// shipment order.
func UPSAddressRows(export *model.FBAShipmentExport) [][]string {
	rows := [][]string{UPSAddressHeader}
	for i := range export.ShipmentOrders {
		order := &export.ShipmentOrders[i]
		dest := &order.Destination
		rows = append(rows, []string{
			order.OrderNumber(),
			dest.RecipientName,
			dest.RecipientName,
			dest.ContactTelephone,
			dest.AddressLine1,
			dest.AddressLine2,
			dest.AddressLine3,
			dest.City,
			dest.State,
			dest.Country,
			dest.CountryISO,
			dest.Postcode,
			upsEmail,
			fmt.Sprintf("%d", len(order.Packages)),
			formatWeight(order.WeightKG()),
			upsGeneralDesc,
			upsBillTransportTo,
			upsBillDutyAndTax,
			upsPackageType,
			upsCurrency,
			upsRatecardReference,
		})
	}
	return rows
}

// ITDShipmentRows builds the ITD shipment file: item-level rows with the
// destination repeated on each row and the shipment method taken from the
// carrier identifier.
func ITDShipmentRows(export *model.FBAShipmentExport) [][]string {
	rows := [][]string{ITDShipmentHeader}
	for i := range export.ShipmentOrders {
		order := &export.ShipmentOrders[i]
		dest := &order.Destination
		for j := range order.Packages {
			pkg := &order.Packages[j]
			for k := range pkg.Items {
				item := &pkg.Items[k]
				rows = append(rows, []string{
					order.OrderNumber(),
					pkg.Number(order.OrderNumber()),
					fmt.Sprintf("%d", pkg.LengthCM),
					fmt.Sprintf("%d", pkg.WidthCM),
					fmt.Sprintf("%d", pkg.HeightCM),
					stripApostrophes(item.Description),
					item.SKU,
					formatWeight(item.WeightKG),
					formatValue(item.Value),
					fmt.Sprintf("%d", item.Quantity),
					item.CountryOfOrigin,
					item.HRCode,
					dest.RecipientName,
					dest.AddressLine1,
					dest.AddressLine2,
					dest.AddressLine3,
					dest.City,
					dest.State,
					dest.Country,
					dest.CountryISO,
					dest.Postcode,
					order.ShipmentMethod.Identifier,
				})
			}
		}
	}
	return rows
}

// WriteCSV emits rows as excel-dialect CSV with CRLF line endings.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// UPSShipmentWorkbook renders the UPS shipment rows as an Excel workbook for
// warehouses that cannot ingest CSV.
func UPSShipmentWorkbook(export *model.FBAShipmentExport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Shipment"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, err
	}
	for i, row := range UPSShipmentRows(export) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}
	endCell, err := excelize.CoordinatesToCellName(len(UPSShipmentHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", endCell, boldStyle); err != nil {
		return nil, err
	}
	return f, nil
}

func stripApostrophes(s string) string {
	return strings.ReplaceAll(s, "'", "")
}

// formatValue renders minor units as whole-currency units with two decimals.
func formatValue(minor int) string {
	return decimal.New(int64(minor), -2).StringFixed(2)
}

// formatWeight renders a kg weight rounded to three decimal places. Whole
// numbers keep one decimal so the carrier always sees a float cell.
func formatWeight(kg float64) string {
	s := decimal.NewFromFloat(kg).Round(3).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
