package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetFreelancer GET /freelancers/:id
func (h *ProfileHandler) GetFreelancer(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.GetFreelancer(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetClient GET /clients/:id
func (h *ProfileHandler) GetClient(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.GetClient(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateFreelancer PUT /profile/freelancer
func (h *ProfileHandler) UpdateFreelancer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateFreelancerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	profile, err := h.profiles.UpdateFreelancer(c.Request.Context(), userID, &models.FreelancerProfile{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Skills:      req.Skills,
		HourlyRate:  req.HourlyRate,
		Available:   req.Available,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateClient PUT /profile/client
func (h *ProfileHandler) UpdateClient(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.UpdateClientProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	profile, err := h.profiles.UpdateClient(c.Request.Context(), userID, &models.ClientProfile{
		DisplayName: req.DisplayName,
		CompanyName: req.CompanyName,
		Bio:         req.Bio,
	})
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UploadPhoto POST /profile/photo
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		common.RespondBadRequest(c, "файл photo обязателен")
		return
	}
	defer file.Close()

	photoID, err := h.profiles.SetPhoto(c.Request.Context(), userID, file)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"photo_id": photoID})
}

// GetPhoto GET /media/:id
func (h *ProfileHandler) GetPhoto(c *gin.Context) {
	photoID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	data, mime, err := h.profiles.GetPhoto(c.Request.Context(), photoID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, mime, data)
}

// FeaturedFreelancers GET /freelancers/featured
func (h *ProfileHandler) FeaturedFreelancers(c *gin.Context) {
	freelancers, err := h.profiles.FeaturedFreelancers(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"freelancers": freelancers})
}
