package router

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/handlers"
	admin_handlers "github.com/sahilchouksey/coursehub-api/handlers/admin"
	ai_handlers "github.com/sahilchouksey/coursehub-api/handlers/ai"
	auth_handlers "github.com/sahilchouksey/coursehub-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/coursehub-api/handlers/course"
	payment_handlers "github.com/sahilchouksey/coursehub-api/handlers/payment"
	upload_handlers "github.com/sahilchouksey/coursehub-api/handlers/upload"
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/services/cron"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
)

// Deps is everything the routes need. Cache and Jobs are optional.
type Deps struct {
	Logger *slog.Logger
	Store  database.Storage
	Cache  *cache.RedisCache
	Jobs   *cron.CronManager
	JWT    *auth.JWTManager
	Policy auth.Policy

	Auth     *services.AuthService
	Users    *services.UserService
	Courses  *services.CourseService
	Payments *services.PaymentService
	AI       *services.AIService
	Uploads  *services.UploadService

	Security middleware.SecurityConfig
}

func SetupRoutes(app *fiber.App, deps Deps) {
	// Brute force protection is disabled without Redis
	bruteForceProtection := middleware.NewBruteForceProtection(deps.Cache)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, deps.Store.Users(), deps.Policy)

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Cache, deps.Jobs)
	authHandler := auth_handlers.NewAuthHandler(deps.Auth, deps.Users, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(deps.Courses)
	paymentHandler := payment_handlers.NewPaymentHandler(deps.Payments)
	uploadHandler := upload_handlers.NewUploadHandler(deps.Uploads)
	aiHandler := ai_handlers.NewAIHandler(deps.AI)
	adminHandler := admin_handlers.NewAdminHandler(deps.Users, deps.Courses)

	// Apply security middleware
	middleware.SetupSecurity(app, deps.Security)

	required := authMiddleware.Required()
	authors := authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin)

	// Health check endpoint (public)
	app.Get("/ping", healthHandler.HandleCheckHealth)

	// API v1 group
	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.HandleCheckHealth)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", authHandler.Signup)
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Post("/change-password", required, authHandler.ChangePassword)

	// Profile routes (authenticated)
	profile := api.Group("/profile", required)
	profile.Get("/", authHandler.GetProfile)
	profile.Put("/", authHandler.UpdateProfile)
	profile.Delete("/", authHandler.DeleteAccount)
	profile.Put("/preferences", authHandler.UpdatePreferences)
	profile.Get("/enrollments", authHandler.GetEnrollments)

	api.Get("/users/:id/progress", required, authHandler.GetUserProgress)

	// Course routes: catalog reads are public, the rest authenticated
	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)
	courses.Get("/mine", required, authors, courseHandler.ListMyCourses)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Post("/", required, authors, courseHandler.CreateCourse)
	courses.Put("/:id", required, courseHandler.UpdateCourse)
	courses.Delete("/:id", required, courseHandler.DeleteCourse)
	courses.Post("/:id/publish", required, courseHandler.PublishCourse)
	courses.Post("/:id/thumbnail", required, courseHandler.UploadThumbnail)
	courses.Delete("/:id/thumbnail", required, courseHandler.DeleteThumbnail)
	courses.Post("/:id/enroll", required, courseHandler.Enroll)
	courses.Put("/:id/progress", required, courseHandler.UpdateProgress)
	courses.Get("/:id/resources/signed-url", required, courseHandler.GetResourceURL)

	// Payment routes; the webhook is authenticated by signature only
	payments := api.Group("/payments")
	payments.Post("/webhook", paymentHandler.Webhook)
	payments.Get("/", required, paymentHandler.ListPayments)
	payments.Post("/intents", required, paymentHandler.CreateIntent)
	payments.Get("/intents/:id", required, paymentHandler.GetIntent)
	payments.Post("/intents/:id/confirm", required, paymentHandler.ConfirmIntent)
	payments.Post("/intents/:id/cancel", required, paymentHandler.CancelIntent)
	payments.Post("/intents/:id/refund", required, authMiddleware.RequireAdmin(),
		middleware.AdminAuditLog(deps.Logger, "refund_payment", "payments"), paymentHandler.RefundIntent)

	// Upload routes (instructor/admin)
	uploads := api.Group("/uploads", required, authors)
	uploads.Post("/", uploadHandler.Upload)
	uploads.Delete("/", uploadHandler.Delete)

	// AI routes (authenticated)
	aiGroup := api.Group("/ai", required)
	aiGroup.Post("/tutor", aiHandler.Tutor)
	aiGroup.Post("/resume/analyze", aiHandler.AnalyzeResume)
	aiGroup.Post("/summarize", aiHandler.Summarize)
	aiGroup.Post("/quiz/generate", aiHandler.GenerateQuiz)

	// Admin routes
	admin := api.Group("/admin", required, authMiddleware.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Put("/users/:id/role", middleware.AdminAuditLog(deps.Logger, "change_role", "users"), adminHandler.ChangeRole)
	admin.Delete("/users/:id", middleware.AdminAuditLog(deps.Logger, "delete_user", "users"), adminHandler.DeleteUser)
	admin.Put("/courses/:id/stats", middleware.AdminAuditLog(deps.Logger, "set_course_stats", "courses"), adminHandler.SetCourseStats)
}
