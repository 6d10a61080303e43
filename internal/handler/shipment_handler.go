package handler

import (
	"net/http"
	"strconv"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ShipmentHandler struct {
	shipmentService service.ShipmentService
	exportService   service.ExportService
}

func NewShipmentHandler(shipmentService service.ShipmentService, exportService service.ExportService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService, exportService: exportService}
}

func (h *ShipmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleFulfillment)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	destinations := router.Group("/shipment-destinations")
	{
		destinations.GET("", staff, h.ListDestinations)
		destinations.POST("", managers, h.CreateDestination)
		destinations.PUT("/:id", managers, h.UpdateDestination)
	}

	methods := router.Group("/shipment-methods")
	{
		methods.GET("", staff, h.ListMethods)
		methods.POST("", managers, h.CreateMethod)
		methods.PUT("/:id", managers, h.UpdateMethod)
	}

	shipments := router.Group("/shipments", staff)
	{
		shipments.GET("", h.ListOpenShipments)
		shipments.POST("", h.CreateShipment)
		shipments.GET("/:id", h.GetShipment)
		shipments.DELETE("/:id", h.DeleteShipment)
		shipments.POST("/:id/packages", h.AddPackage)
		shipments.DELETE("/:id/packages/:packageID", h.DeletePackage)
		shipments.POST("/:id/toggle-hold", h.ToggleHold)
		shipments.POST("/:id/close", h.CloseShipment)
	}

	exports := router.Group("/shipment-exports", staff)
	{
		exports.GET("", h.ListExports)
		exports.GET("/:id/files/shipment", h.DownloadShipmentFile)
		exports.GET("/:id/files/address", h.DownloadAddressFile)
		exports.GET("/:id/files/itd", h.DownloadITDFile)
		exports.GET("/:id/files/workbook", h.DownloadShipmentWorkbook)
	}
}

// ListDestinations handles GET /shipment-destinations
// @Summary      List shipment destinations
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        enabled  query  bool  false  "Only enabled destinations"
// @Success      200  {object}  response.Response{data=[]model.FBAShipmentDestination}
// @Router       /shipment-destinations [get]
func (h *ShipmentHandler) ListDestinations(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	destinations, err := h.shipmentService.ListDestinations(c.Request.Context(), enabledOnly)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, destinations))
}

// CreateDestination handles POST /shipment-destinations
// @Summary      Create shipment destination
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.DestinationRequest  true  "Destination"
// @Success      201  {object}  response.Response{data=model.FBAShipmentDestination}
// @Failure      400  {object}  response.Response
// @Router       /shipment-destinations [post]
func (h *ShipmentHandler) CreateDestination(c *gin.Context) {
	var req service.DestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	dest, err := h.shipmentService.CreateDestination(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, dest))
}

// UpdateDestination handles PUT /shipment-destinations/:id
// @Summary      Update shipment destination
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                         true  "Destination ID"
// @Param        payload  body  service.DestinationRequest  true  "Destination"
// @Success      200  {object}  response.Response{data=model.FBAShipmentDestination}
// @Failure      404  {object}  response.Response
// @Router       /shipment-destinations/{id} [put]
func (h *ShipmentHandler) UpdateDestination(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.DestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	dest, err := h.shipmentService.UpdateDestination(c.Request.Context(), id, req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dest))
}

// ListMethods handles GET /shipment-methods
// @Summary      List shipment methods
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        enabled  query  bool  false  "Only enabled methods"
// @Success      200  {object}  response.Response{data=[]model.FBAShipmentMethod}
// @Router       /shipment-methods [get]
func (h *ShipmentHandler) ListMethods(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	methods, err := h.shipmentService.ListMethods(c.Request.Context(), enabledOnly)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, methods))
}

// CreateMethod handles POST /shipment-methods
// @Summary      Create shipment method
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.MethodRequest  true  "Method"
// @Success      201  {object}  response.Response{data=model.FBAShipmentMethod}
// @Failure      400  {object}  response.Response
// @Router       /shipment-methods [post]
func (h *ShipmentHandler) CreateMethod(c *gin.Context) {
	var req service.MethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	method, err := h.shipmentService.CreateMethod(c.Request.Context(), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, method))
}

// UpdateMethod handles PUT /shipment-methods/:id
// @Summary      Update shipment method
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                    true  "Method ID"
// @Param        payload  body  service.MethodRequest  true  "Method"
// @Success      200  {object}  response.Response{data=model.FBAShipmentMethod}
// @Failure      404  {object}  response.Response
// @Router       /shipment-methods/{id} [put]
func (h *ShipmentHandler) UpdateMethod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.MethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	method, err := h.shipmentService.UpdateMethod(c.Request.Context(), id, req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, method))
}

// ListOpenShipments handles GET /shipments
// @Summary      List open shipment orders
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ShipmentOrderResponse}
// @Router       /shipments [get]
func (h *ShipmentHandler) ListOpenShipments(c *gin.Context) {
	shipments, err := h.shipmentService.ListOpenShipments(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shipments))
}

// CreateShipment handles POST /shipments
// @Summary      Create shipment order
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.CreateShipmentRequest  true  "Shipment"
// @Success      201  {object}  response.Response{data=service.ShipmentOrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /shipments [post]
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	var req service.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	shipment, err := h.shipmentService.CreateShipment(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shipment))
}

// GetShipment handles GET /shipments/:id
// @Summary      Get shipment order
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Shipment ID"
// @Success      200  {object}  response.Response{data=service.ShipmentOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /shipments/{id} [get]
func (h *ShipmentHandler) GetShipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	shipment, err := h.shipmentService.GetShipment(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, shipment))
}

// DeleteShipment handles DELETE /shipments/:id
// @Summary      Delete shipment order
// @Description  Deletes an unexported shipment order and its packages
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Shipment ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /shipments/{id} [delete]
func (h *ShipmentHandler) DeleteShipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.shipmentService.DeleteShipment(c.Request.Context(), currentUserID(c), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Shipment deleted"))
}

// AddPackage handles POST /shipments/:id/packages
// @Summary      Add package to shipment
// @Description  Adds a package with its items to an unexported shipment order
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                        true  "Shipment ID"
// @Param        payload  body  service.AddPackageRequest  true  "Package"
// @Success      201  {object}  response.Response{data=model.FBAShipmentPackage}
// @Failure      400  {object}  response.Response
// @Router       /shipments/{id}/packages [post]
func (h *ShipmentHandler) AddPackage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.AddPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	pkg, err := h.shipmentService.AddPackage(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pkg))
}

// DeletePackage handles DELETE /shipments/:id/packages/:packageID
// @Summary      Remove package from shipment
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id         path  int  true  "Shipment ID"
// @Param        packageID  path  int  true  "Package ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /shipments/{id}/packages/{packageID} [delete]
func (h *ShipmentHandler) DeletePackage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	packageID, err := strconv.ParseUint(c.Param("packageID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid package ID in path"))
		return
	}
	if err := h.shipmentService.DeletePackage(c.Request.Context(), id, uint(packageID)); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Package removed"))
}

// ToggleHold handles POST /shipments/:id/toggle-hold
// @Summary      Toggle shipment hold
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Shipment ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      409  {object}  response.Response
// @Router       /shipments/{id}/toggle-hold [post]
func (h *ShipmentHandler) ToggleHold(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	onHold, err := h.shipmentService.ToggleHold(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"is_on_hold": onHold}))
}

// CloseShipment handles POST /shipments/:id/close
// @Summary      Close shipment order
// @Description  Closes a shippable shipment order into a new export and generates its carrier files
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Shipment ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      409  {object}  response.Response
// @Router       /shipments/{id}/close [post]
func (h *ShipmentHandler) CloseShipment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exportID, err := h.shipmentService.CloseShipmentOrder(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if err := h.exportService.StoreFiles(c.Request.Context(), exportID); err != nil {
		// The export is committed; file generation can be retried via the
		// download endpoints.
		c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
			"export_id": exportID,
			"warning":   "export created but file storage failed: " + err.Error(),
		}))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"export_id": exportID}))
}

// ListExports handles GET /shipment-exports
// @Summary      List recent shipment exports
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.ExportResponse}
// @Router       /shipment-exports [get]
func (h *ShipmentHandler) ListExports(c *gin.Context) {
	exports, err := h.shipmentService.ListExports(c.Request.Context(), service.ExportLimit)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, exports))
}

func (h *ShipmentHandler) download(c *gin.Context, build func(id uint) (*service.ExportFile, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := build(id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// DownloadShipmentFile handles GET /shipment-exports/:id/files/shipment
// @Summary      Download UPS shipment CSV
// @Tags         shipments
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id  path  int  true  "Export ID"
// @Success      200  {file}  file
// @Router       /shipment-exports/{id}/files/shipment [get]
func (h *ShipmentHandler) DownloadShipmentFile(c *gin.Context) {
	h.download(c, func(id uint) (*service.ExportFile, error) {
		return h.exportService.ShipmentFile(c.Request.Context(), id)
	})
}

// DownloadAddressFile handles GET /shipment-exports/:id/files/address
// @Summary      Download UPS address CSV
// @Tags         shipments
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id  path  int  true  "Export ID"
// @Success      200  {file}  file
// @Router       /shipment-exports/{id}/files/address [get]
func (h *ShipmentHandler) DownloadAddressFile(c *gin.Context) {
	h.download(c, func(id uint) (*service.ExportFile, error) {
		return h.exportService.AddressFile(c.Request.Context(), id)
	})
}

// DownloadITDFile handles GET /shipment-exports/:id/files/itd
// @Summary      Download ITD shipment CSV
// @Tags         shipments
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id  path  int  true  "Export ID"
// @Success      200  {file}  file
// @Router       /shipment-exports/{id}/files/itd [get]
func (h *ShipmentHandler) DownloadITDFile(c *gin.Context) {
	h.download(c, func(id uint) (*service.ExportFile, error) {
		return h.exportService.ITDFile(c.Request.Context(), id)
	})
}

// DownloadShipmentWorkbook handles GET /shipment-exports/:id/files/workbook
// @Summary      Download UPS shipment workbook (xlsx)
// @Tags         shipments
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        id  path  int  true  "Export ID"
// @Success      200  {file}  file
// @Router       /shipment-exports/{id}/files/workbook [get]
func (h *ShipmentHandler) DownloadShipmentWorkbook(c *gin.Context) {
	h.download(c, func(id uint) (*service.ExportFile, error) {
		return h.exportService.ShipmentWorkbook(c.Request.Context(), id)
	})
}
