package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/stcadmin/fba-backend/internal/service"
)

func TestServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: order 9", service.ErrNotFound), http.StatusNotFound},
		{"validation", fmt.Errorf("%w: bad quantity", service.ErrValidation), http.StatusBadRequest},
		{"domain rule", fmt.Errorf("%w: shipment exported", service.ErrDomainRule), http.StatusConflict},
		{"stock platform down", fmt.Errorf("%w: dial tcp", service.ErrStockUnavailable), http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			serviceError(c, tc.err)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":"error"`)
		})
	}
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := pathID(c)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	_, ok = pathID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
