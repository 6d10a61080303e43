package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/fba-orders")
	orders.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleFulfillment))
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/awaiting-fulfillment", h.AwaitingFulfillment)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id", h.UpdateOrder)
		orders.DELETE("/:id", h.DeleteOrder)
		orders.POST("/:id/prioritise", h.PrioritiseOrder)
		orders.POST("/:id/close", h.CloseOrder)
		orders.POST("/:id/fulfill", h.FulfillOrder)
		orders.PUT("/:id/tracking-numbers", h.UpdateTrackingNumbers)
		orders.POST("/:id/repeat", h.RepeatOrder)
	}
}

// serviceError maps the service sentinel errors onto HTTP statuses.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrDomainRule):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrStockUnavailable):
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}

func currentUserID(c *gin.Context) string {
	if id, ok := c.Get("userID"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid ID in path"))
		return 0, false
	}
	return uint(id), true
}

// CreateOrder handles POST /fba-orders
// @Summary      Create FBA order
// @Description  Creates an FBA order, snapshotting product details from the catalog
// @Tags         fba-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateFBAOrderRequest  true  "Create Order Payload"
// @Success      201      {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /fba-orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateFBAOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ListOrders handles GET /fba-orders with filter and sort query params
// @Summary      List FBA orders
// @Description  Paginated, filterable, sortable list of FBA orders
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        status        query  string  false  "Derived status filter"
// @Param        region_id     query  int     false  "Region filter"
// @Param        supplier      query  string  false  "Supplier name filter"
// @Param        fulfilled_by  query  string  false  "Fulfiller user ID"
// @Param        closed        query  bool    false  "Closed filter"
// @Param        prioritised   query  bool    false  "Prioritised filter"
// @Param        search        query  string  false  "SKU, range name or tracking number search"
// @Param        sort          query  string  false  "Sort key"
// @Param        page          query  int     false  "Page number (default 1)"
// @Param        limit         query  int     false  "Items per page (default 50)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /fba-orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	req := service.ListFBAOrdersRequest{
		Status:   c.Query("status"),
		Supplier: c.Query("supplier"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     page,
		Limit:    limit,
	}
	if v := c.Query("region_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			regionID := uint(id)
			req.RegionID = &regionID
		}
	}
	if v := c.Query("fulfilled_by"); v != "" {
		if uid, err := uuid.Parse(v); err == nil {
			req.FulfilledBy = &uid
		}
	}
	if v := c.Query("closed"); v != "" {
		closed := v == "true"
		req.Closed = &closed
	}
	if v := c.Query("prioritised"); v != "" {
		prioritised := v == "true"
		req.Prioritised = &prioritised
	}
	for param, dst := range map[string]**time.Time{
		"created_from": &req.CreatedFrom,
		"created_to":   &req.CreatedTo,
		"closed_from":  &req.ClosedFrom,
		"closed_to":    &req.ClosedTo,
	} {
		if v := c.Query(param); v != "" {
			if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
				*dst = &t
			}
		}
	}

	orders, total, err := h.orderService.List(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	}))
}

// AwaitingFulfillment handles GET /fba-orders/awaiting-fulfillment
// @Summary      Orders awaiting fulfillment
// @Description  Open, unheld, unstopped orders in picking priority order
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.FBAOrderResponse}
// @Router       /fba-orders/awaiting-fulfillment [get]
func (h *OrderHandler) AwaitingFulfillment(c *gin.Context) {
	orders, err := h.orderService.AwaitingFulfillment(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, orders))
}

// GetOrder handles GET /fba-orders/:id
// @Summary      Get FBA order
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /fba-orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// UpdateOrder handles PUT /fba-orders/:id
// @Summary      Update FBA order
// @Description  Updates editable fields of an open order
// @Tags         fba-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                            true  "Order ID"
// @Param        payload  body  service.UpdateFBAOrderRequest  true  "Update Payload"
// @Success      200  {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /fba-orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateFBAOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	order, err := h.orderService.Update(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// DeleteOrder handles DELETE /fba-orders/:id
// @Summary      Delete FBA order
// @Description  Deletes an order that has not been fulfilled
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /fba-orders/{id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orderService.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order deleted"))
}

// PrioritiseOrder handles POST /fba-orders/:id/prioritise
// @Summary      Prioritise FBA order
// @Description  Moves the order to the front of the fulfillment queue
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /fba-orders/{id}/prioritise [post]
func (h *OrderHandler) PrioritiseOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.orderService.Prioritise(c.Request.Context(), currentUserID(c), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Order prioritised"))
}

// CloseOrder handles POST /fba-orders/:id/close
// @Summary      Close FBA order
// @Description  Closes an order whose fulfillment details are complete
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /fba-orders/{id}/close [post]
func (h *OrderHandler) CloseOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orderService.Close(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// FulfillOrder handles POST /fba-orders/:id/fulfill
// @Summary      Fulfill FBA order
// @Description  Records box weight and quantity sent, optionally closing the order and adjusting stock
// @Tags         fba-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                             true  "Order ID"
// @Param        payload  body  service.FulfillFBAOrderRequest  true  "Fulfillment Payload"
// @Success      200  {object}  response.Response{data=service.FulfillResult}
// @Failure      400  {object}  response.Response
// @Router       /fba-orders/{id}/fulfill [post]
func (h *OrderHandler) FulfillOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.FulfillFBAOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	result, err := h.orderService.Fulfill(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type trackingNumbersRequest struct {
	TrackingNumbers []string `json:"tracking_numbers"`
}

// UpdateTrackingNumbers handles PUT /fba-orders/:id/tracking-numbers
// @Summary      Update tracking numbers
// @Description  Replaces the order's tracking numbers; a non-empty set closes an open order
// @Tags         fba-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                     true  "Order ID"
// @Param        payload  body  trackingNumbersRequest  true  "Tracking Numbers"
// @Success      200  {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /fba-orders/{id}/tracking-numbers [put]
func (h *OrderHandler) UpdateTrackingNumbers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req trackingNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}
	order, err := h.orderService.UpdateTrackingNumbers(c.Request.Context(), currentUserID(c), id, req.TrackingNumbers)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// RepeatOrder handles POST /fba-orders/:id/repeat
// @Summary      Repeat FBA order
// @Description  Creates a fresh order from a recent one, re-snapshotting product details
// @Tags         fba-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Order ID"
// @Success      201  {object}  response.Response{data=service.FBAOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /fba-orders/{id}/repeat [post]
func (h *OrderHandler) RepeatOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orderService.Repeat(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}
