package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

type routeHandlers struct {
	periods   *handler.PeriodHandler
	schedules *handler.BellScheduleHandler
	timetable *handler.TimetableHandler
	workflow  *handler.TimetableWorkflowHandler
	discovery *handler.DiscoveryHandler
	analytics *handler.AnalyticsHandler
	export    *handler.ExportHandler
	copier    *handler.StructureCopyHandler
	metrics   *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, auth *service.AuthService, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(auth))

	staff := api.Group("")
	staff.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))

	admin := api.Group("")
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin))

	year := "/academic-years/:yearId"

	staff.GET(year+"/periods", h.periods.List)
	staff.GET(year+"/bell-schedules", h.schedules.List)
	staff.GET(year+"/timetable/entries", h.timetable.List)
	staff.GET(year+"/timetable/context", h.timetable.Context)
	staff.POST(year+"/timetable/check-availability", h.timetable.CheckAvailability)
	staff.GET(year+"/timetable/free-teachers", h.discovery.FreeTeachers)
	staff.GET(year+"/timetable/free-rooms", h.discovery.FreeRooms)
	staff.GET(year+"/timetable/export", h.export.Export)
	staff.GET("/timetable/entries/:id", h.timetable.Get)

	admin.POST(year+"/periods", h.periods.Create)
	admin.PUT("/periods/:id", h.periods.Update)
	admin.DELETE("/periods/:id", h.periods.Delete)

	admin.POST(year+"/bell-schedules", h.schedules.Create)
	admin.POST("/bell-schedules/:id/default", h.schedules.SetDefault)
	admin.DELETE("/bell-schedules/:id", h.schedules.Delete)

	admin.POST(year+"/timetable/entries", h.timetable.Create)
	admin.DELETE("/timetable/entries/:id", h.timetable.Delete)
	admin.POST("/timetable/entries/:id/move", h.workflow.Move)
	admin.POST("/timetable/entries/:id/lock", h.workflow.Lock)
	admin.POST("/timetable/swap", h.workflow.Swap)
	admin.POST(year+"/timetable/publish-all", h.workflow.PublishAll)
	admin.POST(year+"/sections/:sectionId/timetable/publish", h.workflow.Publish)
	admin.POST(year+"/sections/:sectionId/timetable/lock", h.workflow.LockSection)
	admin.POST(year+"/sections/:sectionId/timetable/unlock", h.workflow.UnlockSection)

	admin.GET(year+"/timetable/analytics", h.analytics.Workload)
	admin.GET("/analytics/system", h.analytics.System)
	admin.POST(year+"/structure/copy", h.copier.Copy)
}
