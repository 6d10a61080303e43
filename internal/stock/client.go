package stock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Client talks JSON to the order-management platform's stock endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a stock client for the given platform base URL. The
// timeout bounds every call; zero means the default.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stock: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stock: platform returned %d for %s", resp.StatusCode, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) GetStockLevel(ctx context.Context, sku string) (int, error) {
	var info Info
	if err := c.get(ctx, "/stock/"+url.PathEscape(sku), nil, &info); err != nil {
		return 0, err
	}
	return info.StockLevel, nil
}

func (c *Client) GetStockLevels(ctx context.Context, skus []string) (map[string]Levels, error) {
	query := url.Values{"sku": skus}
	out := map[string]Levels{}
	if err := c.get(ctx, "/stock", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) StockLevelInfo(ctx context.Context, sku string) (Info, error) {
	var info Info
	err := c.get(ctx, "/stock/"+url.PathEscape(sku), nil, &info)
	return info, err
}

func (c *Client) SetStockLevel(ctx context.Context, sku, user string, newStockLevel int, changeSource string) (bool, error) {
	if newStockLevel < 0 {
		return false, ErrNegativeStock
	}
	body := map[string]interface{}{
		"sku":           sku,
		"user":          user,
		"stock_level":   newStockLevel,
		"change_source": changeSource,
	}
	if err := c.post(ctx, "/stock/update", body, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) RecordedStockLevels(ctx context.Context, skus []string) (map[string]Recorded, error) {
	query := url.Values{"sku": skus}
	out := map[string]Recorded{}
	if err := c.get(ctx, "/stock/recorded", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Adapter = (*Client)(nil)

// Noop skips every write, for DEBUG and test runs. Reads return zero values
// rather than erroring so fulfillment flows keep working offline.
type Noop struct {
	Logger *zap.Logger
}

func NewNoop(logger *zap.Logger) Noop {
	return Noop{Logger: logger}
}

func (n Noop) GetStockLevel(ctx context.Context, sku string) (int, error) { return 0, nil }

func (n Noop) GetStockLevels(ctx context.Context, skus []string) (map[string]Levels, error) {
	out := make(map[string]Levels, len(skus))
	for _, sku := range skus {
		out[sku] = Levels{}
	}
	return out, nil
}

func (n Noop) StockLevelInfo(ctx context.Context, sku string) (Info, error) { return Info{}, nil }

func (n Noop) SetStockLevel(ctx context.Context, sku, user string, newStockLevel int, changeSource string) (bool, error) {
	if newStockLevel < 0 {
		return false, ErrNegativeStock
	}
	if n.Logger != nil {
		n.Logger.Warn("stock update skipped in debug mode",
			zap.String("sku", sku),
			zap.Int("new_stock_level", newStockLevel),
			zap.String("change_source", changeSource))
	}
	return false, nil
}

func (n Noop) RecordedStockLevels(ctx context.Context, skus []string) (map[string]Recorded, error) {
	out := make(map[string]Recorded, len(skus))
	for _, sku := range skus {
		out[sku] = Recorded{}
	}
	return out, nil
}

var _ Adapter = Noop{}
