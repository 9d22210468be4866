package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/taskbridge-backend/internal/http/middleware"
)

func withAuth(r *gin.Engine, userID uuid.UUID) {
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, userID)
		c.Next()
	})
}

func TestProjectHandler_CreateProject_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProjectHandler{projects: nil}
	r.POST("/projects", handler.CreateProject)

	req, _ := http.NewRequest("POST", "/projects", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectHandler_CreateProject_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withAuth(r, uuid.New())
	handler := &ProjectHandler{projects: nil}
	r.POST("/projects", handler.CreateProject)

	req, _ := http.NewRequest("POST", "/projects", strings.NewReader("не json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_GetProject_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProjectHandler{projects: nil}
	r.GET("/projects/:id", handler.GetProject)

	req, _ := http.NewRequest("GET", "/projects/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjectHandler_CancelProject_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &ProjectHandler{projects: nil}
	r.POST("/projects/:id/cancel", handler.CancelProject)

	projectID := uuid.New()
	req, _ := http.NewRequest("POST", "/projects/"+projectID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectHandler_RequestCompletion_InvalidID_WithAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withAuth(r, uuid.New())
	handler := &ProjectHandler{projects: nil}
	r.POST("/projects/:id/complete/request", handler.RequestCompletion)

	req, _ := http.NewRequest("POST", "/projects/invalid-uuid/complete/request", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
