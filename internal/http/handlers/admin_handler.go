package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

type AdminHandler struct {
	projects *service.ProjectService
	admin    *service.AdminService
}

func NewAdminHandler(projects *service.ProjectService, admin *service.AdminService) *AdminHandler {
	return &AdminHandler{projects: projects, admin: admin}
}

// ModerationQueue GET /admin/projects/moderation
// Проекты, ожидающие проверки, в порядке поступления.
func (h *AdminHandler) ModerationQueue(c *gin.Context) {
	page, pageSize := common.GetPagination(c)

	result, err := h.projects.ListProjects(c.Request.Context(), string(models.ProjectStatusAdminVerification), page, pageSize)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApproveProject POST /admin/projects/:id/approve
func (h *AdminHandler) ApproveProject(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.projects.ApproveProject(c.Request.Context(), adminID, projectID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "проект опубликован", nil)
}

// RejectProject POST /admin/projects/:id/reject
func (h *AdminHandler) RejectProject(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RejectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	if err := h.projects.RejectProject(c.Request.Context(), adminID, projectID, req.Reason); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "проект отклонён", nil)
}

// SetUserActive PATCH /admin/users/:id/active
func (h *AdminHandler) SetUserActive(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	if err := h.admin.SetUserActive(c.Request.Context(), adminID, userID, *req.Active); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "статус аккаунта обновлён", nil)
}
