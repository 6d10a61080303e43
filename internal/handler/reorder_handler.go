package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/stcadmin/fba-backend/internal/middleware"
	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/service"
	"github.com/stcadmin/fba-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReorderHandler struct {
	reorderService service.ReorderService
}

func NewReorderHandler(reorderService service.ReorderService) *ReorderHandler {
	return &ReorderHandler{reorderService: reorderService}
}

func (h *ReorderHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleFulfillment)

	reports := router.Group("/reorder-reports", staff)
	{
		reports.GET("", h.ListReports)
		reports.POST("", h.RequestReport)
		reports.GET("/:id", h.GetReport)
		reports.GET("/:id/download", h.DownloadReport)
	}
}

// RequestReport handles POST /reorder-reports
// @Summary      Request reorder report
// @Description  Queues a reorder report for one supplier over a date range; a worker generates it
// @Tags         reorder-reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body  service.RequestReorderReportRequest  true  "Report request"
// @Success      202  {object}  response.Response{data=service.ReorderReportResponse}
// @Failure      400  {object}  response.Response
// @Router       /reorder-reports [post]
func (h *ReorderHandler) RequestReport(c *gin.Context) {
	var req service.RequestReorderReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	report, err := h.reorderService.Request(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, report))
}

// ListReports handles GET /reorder-reports
// @Summary      List reorder reports
// @Tags         reorder-reports
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /reorder-reports [get]
func (h *ReorderHandler) ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reports, total, err := h.reorderService.List(c.Request.Context(), page, limit)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   total,
		"page":    page,
		"limit":   limit,
	}))
}

// GetReport handles GET /reorder-reports/:id
// @Summary      Get reorder report status
// @Tags         reorder-reports
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  int  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReorderReportResponse}
// @Failure      404  {object}  response.Response
// @Router       /reorder-reports/{id} [get]
func (h *ReorderHandler) GetReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := h.reorderService.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// DownloadReport handles GET /reorder-reports/:id/download
// @Summary      Download completed reorder report
// @Tags         reorder-reports
// @Produce      text/csv
// @Security     BearerAuth
// @Param        id  path  int  true  "Report ID"
// @Success      200  {file}  file
// @Failure      409  {object}  response.Response
// @Router       /reorder-reports/{id}/download [get]
func (h *ReorderHandler) DownloadReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rc, filename, err := h.reorderService.Download(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
