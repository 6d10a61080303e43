package handler

import (
	"net/http"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// ShippingHandler serves the external shipping client. Every operation is a
// POST carrying the shared token in the request body; failures return a bare
// 401 with no detail about why the token was rejected.
type ShippingHandler struct {
	configService   service.ShipmentConfigService
	shipmentService service.ShipmentService
	exportService   service.ExportService
}

func NewShippingHandler(
	configService service.ShipmentConfigService,
	shipmentService service.ShipmentService,
	exportService service.ExportService,
) *ShippingHandler {
	return &ShippingHandler{
		configService:   configService,
		shipmentService: shipmentService,
		exportService:   exportService,
	}
}

func (h *ShippingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/shipping-api")
	{
		api.POST("/current_shipments", h.CurrentShipments)
		api.POST("/shipment_exports", h.ShipmentExports)
		api.POST("/close_shipment", h.CloseShipment)
	}

	// Token rotation is a staff operation, not a shipping client one.
	router.POST("/shipping-api/token/rotate",
		middleware.RequireRole(model.RoleAdmin), h.RotateToken)
}

type shippingTokenRequest struct {
	Token string `json:"token"`
}

type closeShipmentRequest struct {
	Token      string `json:"token"`
	ShipmentID uint   `json:"shipment_id"`
}

// bindPayload decodes the request body, answering 400 for malformed JSON.
// Auth comes after: a broken payload is a client bug, not a credential
// failure.
func bindPayload(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid payload"))
		return false
	}
	return true
}

// authenticate verifies the body token, aborting with an empty 401 on any
// failure.
func (h *ShippingHandler) authenticate(c *gin.Context, token string) bool {
	ok, err := h.configService.VerifyToken(c.Request.Context(), token)
	if err != nil || !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return false
	}
	return true
}

// CurrentShipments handles POST /shipping-api/current_shipments
// @Summary      Shipping client: current shipments
// @Description  Lists shipment orders the shipping client can collect
// @Tags         shipping-api
// @Accept       json
// @Produce      json
// @Param        payload  body  shippingTokenRequest  true  "Auth token"
// @Success      200  {object}  response.Response{data=[]service.ShipmentOrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      401  "Unauthorized"
// @Router       /shipping-api/current_shipments [post]
func (h *ShippingHandler) CurrentShipments(c *gin.Context) {
	var req shippingTokenRequest
	if !bindPayload(c, &req) {
		return
	}
	if !h.authenticate(c, req.Token) {
		return
	}

	shipments, err := h.shipmentService.CurrentShipments(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shipments))
}

// ShipmentExports handles POST /shipping-api/shipment_exports
// @Summary      Shipping client: recent exports
// @Description  Lists the most recent shipment exports
// @Tags         shipping-api
// @Accept       json
// @Produce      json
// @Param        payload  body  shippingTokenRequest  true  "Auth token"
// @Success      200  {object}  response.Response{data=[]service.ExportResponse}
// @Failure      400  {object}  response.Response
// @Failure      401  "Unauthorized"
// @Router       /shipping-api/shipment_exports [post]
func (h *ShippingHandler) ShipmentExports(c *gin.Context) {
	var req shippingTokenRequest
	if !bindPayload(c, &req) {
		return
	}
	if !h.authenticate(c, req.Token) {
		return
	}

	exports, err := h.shipmentService.ListExports(c.Request.Context(), service.ExportLimit)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, exports))
}

// CloseShipment handles POST /shipping-api/close_shipment
// @Summary      Shipping client: close shipment
// @Description  Closes a shippable shipment order into an export and returns the export id
// @Tags         shipping-api
// @Accept       json
// @Produce      json
// @Param        payload  body  closeShipmentRequest  true  "Auth token and shipment"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Failure      401  "Unauthorized"
// @Failure      409  {object}  response.Response
// @Router       /shipping-api/close_shipment [post]
func (h *ShippingHandler) CloseShipment(c *gin.Context) {
	var req closeShipmentRequest
	if !bindPayload(c, &req) {
		return
	}
	if !h.authenticate(c, req.Token) {
		return
	}
	if req.ShipmentID == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "shipment_id is required"))
		return
	}

	exportID, err := h.shipmentService.CloseShipmentOrder(c.Request.Context(), "", req.ShipmentID)
	if err != nil {
		serviceError(c, err)
		return
	}
	if err := h.exportService.StoreFiles(c.Request.Context(), exportID); err != nil {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
			"export_id": exportID,
			"warning":   "export created but file storage failed",
		}))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"export_id": exportID}))
}

// RotateToken handles POST /shipping-api/token/rotate
// @Summary      Rotate shipping client token
// @Description  Generates a new shared token; the previous token stops working immediately
// @Tags         shipping-api
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /shipping-api/token/rotate [post]
func (h *ShippingHandler) RotateToken(c *gin.Context) {
	token, err := h.configService.RotateToken(c.Request.Context(), currentUserID(c))
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"token": token}))
}
