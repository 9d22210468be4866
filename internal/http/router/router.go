package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/taskbridge-backend/internal/config"
	"github.com/ignatzorin/taskbridge-backend/internal/http/handlers"
	"github.com/ignatzorin/taskbridge-backend/internal/http/middleware"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	applicationHandler *handlers.ApplicationHandler,
	ratingHandler *handlers.RatingHandler,
	profileHandler *handlers.ProfileHandler,
	meetingHandler *handlers.MeetingHandler,
	adminHandler *handlers.AdminHandler,
	statsHandler *handlers.StatsHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/password/reset", authHandler.RequestPasswordReset)
		authGroup.POST("/password/reset/confirm", authHandler.ConfirmPasswordReset)
		authGroup.POST("/password/reset/complete", authHandler.CompletePasswordReset)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.POST("/email/verify/request", authHandler.RequestEmailVerification)
		protectedAuth.POST("/email/verify", authHandler.VerifyEmail)
	}

	// Публичные маршруты
	api.GET("/projects", projectHandler.ListProjects)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.GetProject)
	api.GET("/freelancers/featured", profileHandler.FeaturedFreelancers)
	api.GET("/freelancers/:id", middleware.UUIDValidator("id"), profileHandler.GetFreelancer)
	api.GET("/clients/:id", middleware.UUIDValidator("id"), profileHandler.GetClient)
	api.GET("/users/:id/ratings", middleware.UUIDValidator("id"), ratingHandler.ListUserRatings)
	api.GET("/users/:id/photo", middleware.UUIDValidator("id"), profileHandler.GetPhoto)
	api.GET("/stats", statsHandler.PlatformStats)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.PUT("/profile/freelancer", profileHandler.UpdateFreelancer)
		protected.PUT("/profile/client", profileHandler.UpdateClient)
		protected.POST("/profile/photo", profileHandler.UploadPhoto)

		protected.POST("/projects", projectHandler.CreateProject)
		protected.GET("/projects/my", projectHandler.ListMyProjects)
		protected.PUT("/projects/:id", middleware.UUIDValidator("id"), projectHandler.UpdateProject)
		protected.POST("/projects/:id/cancel", middleware.UUIDValidator("id"), projectHandler.CancelProject)
		protected.POST("/projects/:id/complete/request", middleware.UUIDValidator("id"), projectHandler.RequestCompletion)
		protected.POST("/projects/:id/complete/approve", middleware.UUIDValidator("id"), projectHandler.ApproveCompletion)
		protected.POST("/projects/:id/complete/reject", middleware.UUIDValidator("id"), projectHandler.RejectCompletion)

		protected.POST("/projects/:id/applications", middleware.UUIDValidator("id"), applicationHandler.Apply)
		protected.GET("/projects/:id/applications", middleware.UUIDValidator("id"), applicationHandler.ListProjectApplications)
		protected.GET("/applications/my", applicationHandler.ListMyApplications)
		protected.GET("/applications/:id", middleware.UUIDValidator("id"), applicationHandler.GetApplication)
		protected.POST("/applications/:id/approve", middleware.UUIDValidator("id"), applicationHandler.Approve)
		protected.POST("/applications/:id/reject", middleware.UUIDValidator("id"), applicationHandler.Reject)

		protected.POST("/applications/:id/meetings", middleware.UUIDValidator("id"), meetingHandler.RequestMeeting)
		protected.GET("/applications/:id/meetings", middleware.UUIDValidator("id"), meetingHandler.ListApplicationMeetings)
		protected.POST("/meetings/requests/:id/respond", middleware.UUIDValidator("id"), meetingHandler.RespondMeeting)

		protected.POST("/ratings", ratingHandler.CreateRating)
		protected.PUT("/ratings/:id", middleware.UUIDValidator("id"), ratingHandler.UpdateRating)
	}

	// Админка: доступ дополнительно проверяется на уровне сервисов по правам.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/projects/moderation", adminHandler.ModerationQueue)
		admin.POST("/projects/:id/approve", middleware.UUIDValidator("id"), adminHandler.ApproveProject)
		admin.POST("/projects/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectProject)
		admin.PATCH("/users/:id/active", middleware.UUIDValidator("id"), adminHandler.SetUserActive)
	}

	return r
}
