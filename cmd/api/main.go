package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/hostelhq/hostel-api/api/swagger"
	"github.com/hostelhq/hostel-api/internal/handler"
	"github.com/hostelhq/hostel-api/internal/middleware"
	"github.com/hostelhq/hostel-api/internal/models"
	"github.com/hostelhq/hostel-api/internal/repository"
	"github.com/hostelhq/hostel-api/internal/service"
	"github.com/hostelhq/hostel-api/pkg/cache"
	"github.com/hostelhq/hostel-api/pkg/config"
	"github.com/hostelhq/hostel-api/pkg/database"
	"github.com/hostelhq/hostel-api/pkg/logger"
	corsmiddleware "github.com/hostelhq/hostel-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hostelhq/hostel-api/pkg/middleware/requestid"
)

// @title Hostel Management API
// @version 1.0.0
// @description Room applications, allocations and occupancy tracking for a university hostel
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService(func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stats, err := roomRepo.OccupancyStats(ctx)
		if err != nil {
			return 0
		}
		return float64(stats.TotalOccupied)
	})
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "hostel-api",
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, roomRepo, studentRepo, userRepo, cacheSvc, validate, logr)
	allocationSvc := service.NewAllocationService(allocationRepo, roomRepo, studentRepo, userRepo, cacheSvc, validate, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(roomRepo, studentRepo, applicationRepo, complaintRepo, allocationRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	reportSvc := service.NewReportService(roomRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	noticeHandler := handler.NewNoticeHandler(noticeSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	students := protected.Group("/students")
	students.GET("/me", studentHandler.Me)
	students.GET("", middleware.RequireStaff(), studentHandler.List)
	students.GET("/:id", middleware.RequireStaff(), studentHandler.Get)
	students.PUT("/:id", middleware.RequireStaff(), studentHandler.Update)

	rooms := protected.Group("/rooms")
	rooms.GET("", roomHandler.List)
	rooms.GET("/:id", roomHandler.Get)
	rooms.POST("", middleware.RequireRoles(models.RoleProvost, models.RoleAdmin), roomHandler.Create)
	rooms.PUT("/:id", middleware.RequireRoles(models.RoleProvost, models.RoleAdmin), roomHandler.Update)
	rooms.PATCH("/:id/availability", middleware.RequireRoles(models.RoleProvost, models.RoleAdmin), roomHandler.SetAvailability)

	applications := protected.Group("/applications")
	applications.GET("", middleware.RequireStaff(), applicationHandler.List)
	applications.GET("/:id", applicationHandler.Get)
	applications.POST("", middleware.RequireRoles(models.RoleStudent), applicationHandler.Submit)
	applications.POST("/:id/review", middleware.RequireStaff(), applicationHandler.Review)
	applications.POST("/:id/withdraw", middleware.RequireRoles(models.RoleStudent), applicationHandler.Withdraw)
	applications.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), applicationHandler.Delete)

	allocations := protected.Group("/allocations")
	allocations.Use(middleware.RequireStaff())
	allocations.GET("", allocationHandler.List)
	allocations.GET("/:id", allocationHandler.Get)
	allocations.POST("", allocationHandler.Create)
	allocations.POST("/:id/checkout", allocationHandler.Checkout)
	allocations.POST("/:id/reactivate", allocationHandler.Reactivate)
	allocations.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), allocationHandler.Delete)

	notices := protected.Group("/notices")
	notices.GET("", noticeHandler.List)
	notices.GET("/:id", noticeHandler.Get)
	notices.POST("", middleware.RequireStaff(), noticeHandler.Create)
	notices.PUT("/:id", middleware.RequireStaff(), noticeHandler.Update)
	notices.POST("/:id/publish", middleware.RequireStaff(), noticeHandler.Publish)
	notices.DELETE("/:id", middleware.RequireStaff(), noticeHandler.Delete)

	complaints := protected.Group("/complaints")
	complaints.GET("", complaintHandler.List)
	complaints.GET("/:id", complaintHandler.Get)
	complaints.POST("", complaintHandler.Submit)
	complaints.POST("/:id/assign", middleware.RequireStaff(), complaintHandler.Assign)
	complaints.PATCH("/:id/status", middleware.RequireStaff(), complaintHandler.UpdateStatus)

	dashboard := protected.Group("/dashboard")
	dashboard.GET("/summary", middleware.RequireStaff(), dashboardHandler.Summary)
	dashboard.GET("/me", middleware.RequireRoles(models.RoleStudent), dashboardHandler.StudentSummary)

	if cfg.Reports.Enabled {
		reports := protected.Group("/reports")
		reports.Use(middleware.RequireStaff())
		reports.GET("/occupancy", middleware.Audit(userRepo, "REPORT_EXPORT", "report"), reportHandler.Occupancy)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
