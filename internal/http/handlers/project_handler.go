package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProject POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	project := &models.Project{
		Title:          req.Title,
		Description:    req.Description,
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		SkillsRequired: req.SkillsRequired,
		DeadlineAt:     req.DeadlineAt,
	}

	created, err := h.projects.CreateProject(c.Request.Context(), userID, project)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// GetProject GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), projectID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// ListProjects GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, pageSize := common.GetPagination(c)

	result, err := h.projects.ListProjects(c.Request.Context(), c.Query("status"), page, pageSize)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyProjects GET /projects/my
// Клиент видит свои размещённые проекты, фрилансер - назначенные ему.
func (h *ProjectHandler) ListMyProjects(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	page, pageSize := common.GetPagination(c)
	status := c.Query("status")

	var result *models.ProjectPage
	if role == models.RoleFreelancer {
		result, err = h.projects.ListFreelancerProjects(c.Request.Context(), userID, status, page, pageSize)
	} else {
		result, err = h.projects.ListClientProjects(c.Request.Context(), userID, status, page, pageSize)
	}
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateProject PUT /projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
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

	var req dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	project := &models.Project{
		ID:             projectID,
		Title:          req.Title,
		Description:    req.Description,
		BudgetMin:      req.BudgetMin,
		BudgetMax:      req.BudgetMax,
		SkillsRequired: req.SkillsRequired,
		DeadlineAt:     req.DeadlineAt,
	}

	updated, err := h.projects.UpdateProject(c.Request.Context(), userID, project)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CancelProject POST /projects/:id/cancel
func (h *ProjectHandler) CancelProject(c *gin.Context) {
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

	if err := h.projects.CancelProject(c.Request.Context(), userID, projectID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "проект отменён", nil)
}

// RequestCompletion POST /projects/:id/complete/request
func (h *ProjectHandler) RequestCompletion(c *gin.Context) {
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

	if err := h.projects.RequestCompletion(c.Request.Context(), userID, projectID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "завершение запрошено", nil)
}

// ApproveCompletion POST /projects/:id/complete/approve
func (h *ProjectHandler) ApproveCompletion(c *gin.Context) {
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

	if err := h.projects.ApproveCompletion(c.Request.Context(), userID, projectID); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "проект завершён", nil)
}

// RejectCompletion POST /projects/:id/complete/reject
func (h *ProjectHandler) RejectCompletion(c *gin.Context) {
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

	var req dto.RejectCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	if err := h.projects.RejectCompletion(c.Request.Context(), userID, projectID, req.Reason); err != nil {
		common.RespondServiceError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "завершение отклонено, проект возвращён в работу", nil)
}
