package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/complaint-desk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/complaint-desk-api/pkg/middleware/requestid"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	Docs           bool

	Logger  *zap.Logger
	Metrics *service.MetricsService
	Tokens  middleware.TokenValidator

	Auth       *AuthHandler
	Complaints *ComplaintHandler
	Admin      *AdminHandler
	Probes     *MetricsHandler
}

// NewRouter builds the gin engine with the full route table.
func NewRouter(cfg RouterConfig) *gin.Engine {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(l))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", cfg.Probes.Health)
	r.GET("/ready", cfg.Probes.Ready)
	r.GET("/metrics", cfg.Probes.Prometheus)
	if cfg.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/faq", FAQ)
	api.GET("/categories", Categories)

	auth := api.Group("/auth")
	auth.POST("/login", cfg.Auth.Login)
	auth.POST("/signup/parent", middleware.Audit(l, "account.signup_parent"), cfg.Auth.SignupParent)
	auth.POST("/signup/teacher", middleware.Audit(l, "account.signup_teacher"), cfg.Auth.SignupTeacher)
	auth.GET("/me", middleware.JWT(cfg.Tokens), cfg.Auth.Me)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	complaints := api.Group("/complaints", middleware.JWT(cfg.Tokens))
	complaints.GET("", cfg.Complaints.List)
	complaints.POST("", middleware.RequireRoles(models.RoleParent), middleware.Audit(l, "complaint.create"), cfg.Complaints.Create)
	complaints.GET("/export", cfg.Complaints.Export)
	complaints.GET("/:id", cfg.Complaints.Get)
	complaints.PATCH("/:id/status", staff, middleware.Audit(l, "complaint.status"), cfg.Complaints.UpdateStatus)
	complaints.PATCH("/:id/assignee", staff, middleware.Audit(l, "complaint.assign"), cfg.Complaints.Assign)

	admin := api.Group("/admin", middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/teacher-codes", middleware.Audit(l, "teacher_code.create"), cfg.Admin.CreateTeacherCode)
	admin.GET("/teacher-codes", cfg.Admin.ListTeacherCodes)
	admin.GET("/teachers", cfg.Admin.ListTeachers)
	admin.GET("/teachers/:id/assignment", cfg.Admin.GetAssignment)
	admin.PUT("/teachers/:id/assignment", middleware.Audit(l, "teacher.assignment"), cfg.Admin.SetAssignment)
	admin.GET("/students", cfg.Admin.ListStudents)
	admin.POST("/students", middleware.Audit(l, "registry.add"), cfg.Admin.AddStudent)
	admin.POST("/students/import", middleware.Audit(l, "registry.import"), cfg.Admin.ImportStudents)
	admin.GET("/students/template", cfg.Admin.StudentTemplate)
	admin.GET("/stats", cfg.Admin.Stats)

	return r
}
