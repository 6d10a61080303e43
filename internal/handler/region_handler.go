package handler

import (
	"net/http"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RegionHandler struct {
	regionService service.RegionService
}

func NewRegionHandler(regionService service.RegionService) *RegionHandler {
	return &RegionHandler{regionService: regionService}
}

func (h *RegionHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleFulfillment)
	admins := middleware.RequireRole(model.RoleAdmin)

	regions := router.Group("/regions")
	{
		regions.GET("", staff, h.ListRegions)
		regions.GET("/:id", staff, h.GetRegion)
		regions.POST("", admins, h.CreateRegion)
		regions.PUT("/:id", admins, h.UpdateRegion)
		regions.DELETE("/:id", admins, h.DeleteRegion)
	}

	router.POST("/price-calculator", staff, h.CalculatePrice)
	router.POST("/exchange-rates", admins, h.UpdateExchangeRates)
}

// ListRegions handles GET /regions
// @Summary      List regions
// @Tags         regions
// @Produce      json
// @Security     BearerAuth
// @Param        active  query  bool  false  "Only active regions"
// @Success      200  {object}  response.Response{data=[]model.Region}
// @Router       /regions [get]
func (h *RegionHandler) ListRegions(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	regions, err := h.regionService.List(c.Request.Context(), activeOnly)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, regions))
}

// GetRegion handles GET /regions/:id
// @Summary      Get region
// @Tags         regions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Region ID"
// @Success      200  {object}  response.Response{data=model.Region}
// @Failure      404  {object}  response.Response
// @Router       /regions/{id} [get]
func (h *RegionHandler) GetRegion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	region, err := h.regionService.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, region))
}

// CreateRegion handles POST /regions
// @Summary      Create region
// @Tags         regions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.CreateRegionRequest  true  "Region"
// @Success      201  {object}  response.Response{data=model.Region}
// @Failure      400  {object}  response.Response
// @Router       /regions [post]
func (h *RegionHandler) CreateRegion(c *gin.Context) {
	var req service.CreateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	region, err := h.regionService.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, region))
}

// UpdateRegion handles PUT /regions/:id
// @Summary      Update region
// @Tags         regions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  int                          true  "Region ID"
// @Param        payload  body  service.UpdateRegionRequest  true  "Region"
// @Success      200  {object}  response.Response{data=model.Region}
// @Failure      404  {object}  response.Response
// @Router       /regions/{id} [put]
func (h *RegionHandler) UpdateRegion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	region, err := h.regionService.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, region))
}

// DeleteRegion handles DELETE /regions/:id
// @Summary      Delete region
// @Description  Deletes a region with no open orders; regions with open orders must be deactivated instead
// @Tags         regions
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Region ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /regions/{id} [delete]
func (h *RegionHandler) DeleteRegion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.regionService.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Region deleted"))
}

// CalculatePrice handles POST /price-calculator
// @Summary      Price calculator
// @Description  Computes the margin breakdown for listing a product in a region
// @Tags         regions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.PriceCalculationRequest  true  "Calculation input"
// @Success      200  {object}  response.Response{data=pricing.Result}
// @Failure      400  {object}  response.Response
// @Router       /price-calculator [post]
func (h *RegionHandler) CalculatePrice(c *gin.Context) {
	var req service.PriceCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	result, err := h.regionService.CalculatePrice(c.Request.Context(), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type exchangeRatesRequest struct {
	Rates map[string]float64 `json:"rates" binding:"required"`
}

// UpdateExchangeRates handles POST /exchange-rates
// @Summary      Update exchange rates
// @Description  Applies freshly fetched GBP conversion rates, keyed by currency code
// @Tags         regions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  exchangeRatesRequest  true  "Rates keyed by currency code"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /exchange-rates [post]
func (h *RegionHandler) UpdateExchangeRates(c *gin.Context) {
	var req exchangeRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	updated, err := h.regionService.UpdateExchangeRates(c.Request.Context(), req.Rates)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"updated": updated}))
}
