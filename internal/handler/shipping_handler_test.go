package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stcadmin/fba-backend/internal/service"
)

type stubConfigService struct {
	service.ShipmentConfigService
	token string
}

func (s *stubConfigService) VerifyToken(ctx context.Context, token string) (bool, error) {
	return token != "" && token == s.token, nil
}

type stubShipmentService struct {
	service.ShipmentService
	shipments []service.ShipmentOrderResponse
}

func (s *stubShipmentService) CurrentShipments(ctx context.Context) ([]service.ShipmentOrderResponse, error) {
	return s.shipments, nil
}

func newShippingRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewShippingHandler(
		&stubConfigService{token: token},
		&stubShipmentService{shipments: []service.ShipmentOrderResponse{{ID: 7}}},
		nil,
	)
	api := router.Group("/")
	api.POST("/shipping-api/current_shipments", h.CurrentShipments)
	api.POST("/shipping-api/close_shipment", h.CloseShipment)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestShippingAPIRejectsBadToken(t *testing.T) {
	router := newShippingRouter("good-token")

	rec := postJSON(t, router, "/shipping-api/current_shipments", `{"token":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Body.String(), "rejection carries no detail")

	rec = postJSON(t, router, "/shipping-api/current_shipments", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShippingAPIMalformedPayloadIsBadRequest(t *testing.T) {
	router := newShippingRouter("good-token")

	rec := postJSON(t, router, "/shipping-api/current_shipments", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "broken JSON is a payload error, not an auth failure")
}

func TestShippingAPICloseRequiresShipmentID(t *testing.T) {
	router := newShippingRouter("good-token")

	rec := postJSON(t, router, "/shipping-api/close_shipment", `{"token":"good-token"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/shipping-api/close_shipment", `{"shipment_id":4}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token check comes before parameter validation")
}

func TestShippingAPIAcceptsValidToken(t *testing.T) {
	router := newShippingRouter("good-token")

	rec := postJSON(t, router, "/shipping-api/current_shipments", `{"token":"good-token"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)
	assert.Contains(t, rec.Body.String(), `"id":7`)
}
