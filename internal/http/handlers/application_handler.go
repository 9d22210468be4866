package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

type ApplicationHandler struct {
	applications *service.ApplicationService
}

func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// Apply POST /projects/:id/applications
func (h *ApplicationHandler) Apply(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	app := &models.Application{
		ProjectID:      projectID,
		CoverLetter:    req.CoverLetter,
		ProposedAmount: req.ProposedAmount,
	}

	created, err := h.applications.Apply(c.Request.Context(), userID, app)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetApplication GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	app, err := h.applications.GetApplication(c.Request.Context(), userID, applicationID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

// Approve POST /applications/:id/approve
func (h *ApplicationHandler) Approve(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.applications.ApproveApplication(c.Request.Context(), userID, applicationID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "исполнитель назначен", nil)
}

// Reject POST /applications/:id/reject
func (h *ApplicationHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	applicationID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.applications.RejectApplication(c.Request.Context(), userID, applicationID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "отклик отклонён", nil)
}

// ListProjectApplications GET /projects/:id/applications
func (h *ApplicationHandler) ListProjectApplications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	page, pageSize := common.GetPagination(c)

	result, err := h.applications.ListProjectApplications(c.Request.Context(), userID, projectID, c.Query("status"), page, pageSize)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyApplications GET /applications/my
func (h *ApplicationHandler) ListMyApplications(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	page, pageSize := common.GetPagination(c)

	result, err := h.applications.ListFreelancerApplications(c.Request.Context(), userID, c.Query("status"), page, pageSize)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
