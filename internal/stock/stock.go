// Package stock defines the adapter contract to the external
// order-management platform's stock levels. The core only ever talks to the
// Adapter interface; the wire client lives in client.go.
package stock

import (
	"context"
	"errors"
)

// ErrNegativeStock rejects updates that would take a stock level below zero.
// Callers clamp and surface this as a domain error.
var ErrNegativeStock = errors.New("stock: update would take stock level below zero")

// Levels describes a product's stock position on the platform.
type Levels struct {
	Available  int `json:"available"`
	InOrders   int `json:"in_orders"`
	StockLevel int `json:"stock_level"`
}

// Info is the subset returned by the single-SKU info lookup.
type Info struct {
	StockLevel int `json:"stock_level"`
	InOrders   int `json:"in_orders"`
}

// Recorded is the locally recorded view of a stock level.
type Recorded struct {
	AvailableStockLevel int `json:"available_stock_level"`
	InOrders            int `json:"in_orders"`
	StockLevel          int `json:"stock_level"`
}

// Adapter is the stock-level coordinator contract. SetStockLevel returns
// whether the update was actually applied; debug implementations skip the
// write and report false.
type Adapter interface {
	GetStockLevel(ctx context.Context, sku string) (int, error)
	GetStockLevels(ctx context.Context, skus []string) (map[string]Levels, error)
	StockLevelInfo(ctx context.Context, sku string) (Info, error)
	SetStockLevel(ctx context.Context, sku, user string, newStockLevel int, changeSource string) (bool, error)
	RecordedStockLevels(ctx context.Context, skus []string) (map[string]Recorded, error)
}
