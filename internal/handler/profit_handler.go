package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProfitHandler struct {
	profitService service.ProfitService
}

func NewProfitHandler(profitService service.ProfitService) *ProfitHandler {
	return &ProfitHandler{profitService: profitService}
}

func (h *ProfitHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleFulfillment)
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	profits := router.Group("/fba-profit")
	{
		profits.GET("", staff, h.CurrentProfits)
		profits.GET("/last-import", staff, h.LastImport)
		profits.POST("/import", managers, h.ImportFees)
	}
}

// ImportFees handles POST /fba-profit/import. The multipart form carries one
// fee estimate file per region, field name "fees_<regionID>".
// @Summary      Import fee estimate files
// @Description  Replaces the current profit dataset from uploaded Amazon fee estimate files
// @Tags         fba-profit
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ImportSummary}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /fba-profit/import [post]
func (h *ProfitHandler) ImportFees(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid multipart form: "+err.Error()))
		return
	}

	regionFees := make(map[uint][]service.FeeRecord)
	for field, files := range form.File {
		const prefix = "fees_"
		if len(field) <= len(prefix) || field[:len(prefix)] != prefix {
			continue
		}
		regionID, err := strconv.ParseUint(field[len(prefix):], 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid region in field name: "+field))
			return
		}
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open uploaded file"))
				return
			}
			records, parseErr := h.profitService.ParseFeeFile(f)
			f.Close()
			if parseErr != nil {
				serviceError(c, parseErr)
				return
			}
			regionFees[uint(regionID)] = append(regionFees[uint(regionID)], records...)
		}
	}
	if len(regionFees) == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "No fee files uploaded"))
		return
	}

	summary, err := h.profitService.UpdateFromExports(c.Request.Context(), regionFees)
	if err != nil {
		if errors.Is(err, service.ErrImportInProgress) {
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		}
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// CurrentProfits handles GET /fba-profit
// @Summary      Current profit figures
// @Description  Paginated profit rows from the most recent import
// @Tags         fba-profit
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 50)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /fba-profit [get]
func (h *ProfitHandler) CurrentProfits(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	profits, total, err := h.profitService.Current(c.Request.Context(), page, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"profits": profits,
		"total":   total,
		"page":    page,
		"limit":   limit,
	}))
}

// LastImport handles GET /fba-profit/last-import
// @Summary      Last profit import date
// @Tags         fba-profit
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=object}
// @Router       /fba-profit/last-import [get]
func (h *ProfitHandler) LastImport(c *gin.Context) {
	importDate, err := h.profitService.LastImportDate(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{"import_date": importDate}))
}
