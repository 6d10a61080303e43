// Package pricing computes FBA order profitability. It is pure computation:
// no I/O, no clock, no database.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stcadmin/fba-backend/internal/model"
)

// ChannelFeeRate is the fixed share of the selling price charged by the
// sales channel.
const ChannelFeeRate = 0.15

// ErrInvalidInput marks caller errors such as a zero quantity or weight.
var ErrInvalidInput = errors.New("pricing: invalid input")

// Input collects everything the calculation needs. SellingPrice and FBAFee
// are in whole local-currency units; PurchasePrice is pence GBP;
// ProductWeight is grams.
type Input struct {
	SellingPrice  float64
	Region        *model.Region
	PurchasePrice int
	FBAFee        float64
	ProductWeight int
	StockLevel    int
	ZeroRated     bool
	Quantity      int
}

// Result carries the rounded calculation outputs. GBP amounts are in whole
// pounds, local amounts in whole local-currency units; everything is rounded
// to two decimal places.
type Result struct {
	ChannelFee         float64 `json:"channel_fee"`
	CurrencySymbol     string  `json:"currency_symbol"`
	VAT                float64 `json:"vat"`
	PostageToFBA       float64 `json:"postage_to_fba"`
	PostagePerItem     float64 `json:"postage_per_item"`
	Profit             float64 `json:"profit"`
	Percentage         float64 `json:"percentage"`
	PurchasePrice      float64 `json:"purchase_price"`
	MaxQuantity        int     `json:"max_quantity"`
	MaxQuantityNoStock int     `json:"max_quantity_no_stock"`
}

// Calculate runs the margin calculation for one FBA order candidate.
func Calculate(in Input) (Result, error) {
	if in.Region == nil {
		return Result{}, fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return Result{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if in.ProductWeight <= 0 {
		return Result{}, fmt.Errorf("%w: product weight must be positive", ErrInvalidInput)
	}
	if in.SellingPrice <= 0 {
		return Result{}, fmt.Errorf("%w: selling price must be positive", ErrInvalidInput)
	}
	exchangeRate := in.Region.Country.Currency.ExchangeRate
	if exchangeRate <= 0 {
		return Result{}, fmt.Errorf("%w: exchange rate unavailable for %s", ErrInvalidInput, in.Region.Name)
	}

	maxQuantityNoStock := in.Region.MaxQuantity(in.ProductWeight)
	maxQuantity := maxQuantityNoStock
	if in.StockLevel < maxQuantity {
		maxQuantity = in.StockLevel
	}

	postageGBP := float64(in.Region.CalculateShipping(in.ProductWeight*in.Quantity)) / 100

	var vat float64
	if in.Region.VATApplies(in.ZeroRated) {
		// Prices are VAT-inclusive at 20%, so the VAT share is one sixth.
		vat = in.SellingPrice / 6
	}

	channelFee := in.SellingPrice * ChannelFeeRate
	purchasePriceLocal := (float64(in.PurchasePrice) / 100) / exchangeRate
	postagePerItemGBP := postageGBP / float64(in.Quantity)
	postagePerItemLocal := postagePerItemGBP / exchangeRate

	profitLocal := in.SellingPrice - (postagePerItemLocal + channelFee + vat + purchasePriceLocal + in.FBAFee)
	profitGBP := profitLocal * exchangeRate
	percentage := (profitLocal / in.SellingPrice) * 100

	return Result{
		ChannelFee:         round2(channelFee),
		CurrencySymbol:     in.Region.Country.Currency.Symbol,
		VAT:                round2(vat),
		PostageToFBA:       round2(postageGBP),
		PostagePerItem:     round2(postagePerItemGBP),
		Profit:             round2(profitGBP),
		Percentage:         round2(percentage),
		PurchasePrice:      round2(purchasePriceLocal),
		MaxQuantity:        maxQuantity,
		MaxQuantityNoStock: maxQuantityNoStock,
	}, nil
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
