// Package router registers the HTTP routes of the portal on a gin engine.
package router

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/handler"
	"github.com/noah-isme/preparatorio-aauma-api/internal/middleware"
	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
	appErrors "github.com/noah-isme/preparatorio-aauma-api/pkg/errors"
	"github.com/noah-isme/preparatorio-aauma-api/pkg/response"
)

// Dependencies groups router dependencies for registration. Nil handlers leave their
// routes unregistered.
type Dependencies struct {
	Auth       gin.HandlerFunc
	Optional   gin.HandlerFunc
	Views      middleware.ViewRecorder
	Pairs      *handler.PairHandler
	Enrollment *handler.EnrollmentHandler
	Students   *handler.StudentHandler
	Catalog    *handler.CatalogHandler
	Dashboard  *handler.DashboardHandler
	Audit      *handler.AuditHandler
	Users      *handler.UserHandler
	Search     *handler.SearchHandler
	Reports    *handler.ReportHandler
	Metrics    *handler.MetricsHandler
}

// Register wires the HTTP routes into the gin engine under prefix.
func Register(r *gin.Engine, prefix string, deps Dependencies) {
	if deps.Metrics != nil {
		r.GET("/health", deps.Metrics.Health)
		r.GET("/ready", deps.Metrics.Ready)
		r.GET("/metrics", deps.Metrics.Prometheus)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	prefix = "/" + strings.Trim(prefix, "/")
	api := r.Group(prefix)

	authMiddleware := deps.Auth
	if authMiddleware == nil {
		authMiddleware = func(c *gin.Context) {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
		}
	}
	optional := deps.Optional
	if optional == nil {
		optional = func(c *gin.Context) { c.Next() }
	}
	can := middleware.RequirePermission
	view := func(viewType, resource string) gin.HandlerFunc {
		return middleware.AuditView(deps.Views, viewType, resource)
	}

	// Public enrollment page and token-guarded downloads.
	public := api.Group("/public")
	if deps.Enrollment != nil {
		public.GET("/pairs", deps.Enrollment.Pairs)
		public.POST("/enrollments", optional, deps.Enrollment.Enroll)
		public.GET("/enrollments/:id/success", deps.Enrollment.Success)
	}
	if deps.Catalog != nil {
		public.GET("/courses", deps.Catalog.Courses)
	}
	if deps.Students != nil {
		api.GET("/documents/download", deps.Students.DownloadDocument)
	}
	if deps.Reports != nil {
		api.GET("/reports/download", deps.Reports.DownloadReport)
	}

	secured := api.Group("", authMiddleware)
	if deps.Users != nil {
		secured.GET("/me", deps.Users.Me)
		users := secured.Group("/users", can(models.PermManageUsers))
		users.GET("", deps.Users.List)
		users.GET("/:id", deps.Users.Get)
		users.PUT("/:id/roles", deps.Users.SetRoles)
	}

	if deps.Enrollment != nil {
		secured.POST("/enrollments", can(models.PermEnroll), deps.Enrollment.Enroll)
		secured.GET("/enrollments/pairs", can(models.PermEnroll), deps.Enrollment.Pairs)
	}

	if deps.Pairs != nil {
		pairs := secured.Group("/pairs")
		pairs.GET("", can(models.PermViewDashboard, models.PermManageClasses), view("page", "pairs"), deps.Pairs.List)
		pairs.GET("/:id", can(models.PermViewDashboard, models.PermManageClasses), view("detail", "course_pairs"), deps.Pairs.Get)
		pairs.POST("", can(models.PermManageClasses), deps.Pairs.Create)
		pairs.PUT("/:id", can(models.PermManageClasses, models.PermManageSchedules), deps.Pairs.Update)
		pairs.POST("/:id/toggle", can(models.PermManageClasses), deps.Pairs.Toggle)
		pairs.DELETE("/:id", can(models.PermManageClasses), deps.Pairs.Delete)
	}

	if deps.Students != nil {
		students := secured.Group("/students", can(models.PermManageStudents))
		students.GET("", view("page", "students"), deps.Students.List)
		students.GET("/:id", view("detail", "students"), deps.Students.Get)
		students.PUT("/:id", deps.Students.Update)
		students.PATCH("/:id/status", deps.Students.UpdateStatus)
		students.DELETE("/:id", deps.Students.Delete)
		students.POST("/:id/document", deps.Students.UploadDocument)
		students.GET("/:id/document", deps.Students.DocumentLink)
		students.GET("/:id/form", deps.Students.EnrollmentForm)
		students.GET("/:id/invoice", deps.Students.Invoice)
	}

	if deps.Catalog != nil {
		secured.GET("/courses", deps.Catalog.Courses)
		secured.GET("/courses/:code", deps.Catalog.Course)
		secured.GET("/rooms", can(models.PermManageClasses, models.PermManageSchedules), deps.Catalog.Rooms)
		secured.POST("/rooms", can(models.PermManageClasses), deps.Catalog.CreateRoom)
	}

	if deps.Dashboard != nil {
		secured.GET("/dashboard", can(models.PermViewDashboard), view("page", "dashboard"), deps.Dashboard.Summary)
		secured.GET("/finance", can(models.PermViewFinance), view("page", "financeiro"), deps.Dashboard.Finance)
	}

	if deps.Audit != nil {
		audit := secured.Group("/audit", can(models.PermViewAudit))
		audit.GET("/logs", deps.Audit.Logs)
		audit.GET("/views", deps.Audit.Views)
	}

	if deps.Search != nil {
		secured.GET("/search", can(models.PermSearch), deps.Search.Search)
	}

	if deps.Reports != nil {
		secured.POST("/reports", deps.Reports.GenerateReport)
		secured.GET("/reports/:id", deps.Reports.ReportStatus)
		secured.GET("/exports/:type", deps.Reports.Export)
	}
}
