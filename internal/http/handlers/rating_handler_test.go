package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRatingHandler_CreateRating_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &RatingHandler{ratings: nil}
	r.POST("/ratings", handler.CreateRating)

	req, _ := http.NewRequest("POST", "/ratings", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRatingHandler_CreateRating_InvalidProjectID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withAuth(r, uuid.New())
	handler := &RatingHandler{ratings: nil}
	r.POST("/ratings", handler.CreateRating)

	body := `{"project_id":"not-a-uuid","score":5}`
	req, _ := http.NewRequest("POST", "/ratings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingHandler_UpdateRating_InvalidID_WithAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	withAuth(r, uuid.New())
	handler := &RatingHandler{ratings: nil}
	r.PUT("/ratings/:id", handler.UpdateRating)

	req, _ := http.NewRequest("PUT", "/ratings/invalid-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRatingHandler_ListUserRatings_InvalidUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &RatingHandler{ratings: nil}
	r.GET("/users/:id/ratings", handler.ListUserRatings)

	req, _ := http.NewRequest("GET", "/users/invalid-uuid/ratings", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
