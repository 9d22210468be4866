package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/dto"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers/common"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

type MeetingHandler struct {
	meetings *service.MeetingService
}

func NewMeetingHandler(meetings *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// RequestMeeting POST /applications/:id/meetings
func (h *MeetingHandler) RequestMeeting(c *gin.Context) {
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

	var req dto.CreateMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	request, err := h.meetings.RequestMeeting(c.Request.Context(), userID, applicationID, req.ProposedAt, req.Note)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// RespondMeeting POST /meetings/requests/:id/respond
func (h *MeetingHandler) RespondMeeting(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.RespondMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	meeting, err := h.meetings.RespondMeeting(c.Request.Context(), userID, requestID, *req.Accept, req.MeetingURL)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	if meeting != nil {
		c.JSON(http.StatusCreated, meeting)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "запрос отклонён", nil)
}

// ListApplicationMeetings GET /applications/:id/meetings
func (h *MeetingHandler) ListApplicationMeetings(c *gin.Context) {
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

	requests, meetings, err := h.meetings.ListApplicationMeetings(c.Request.Context(), userID, applicationID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MeetingsResponse{Requests: requests, Meetings: meetings})
}
