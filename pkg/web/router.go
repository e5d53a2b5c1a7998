package web

import (
	"context"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/middleware/auth"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	clinicView "github.com/isoflow/clinicorder/pkg/web/views/clinic"
	"github.com/isoflow/clinicorder/pkg/web/views/health"
	notificationView "github.com/isoflow/clinicorder/pkg/web/views/notification"
	orderView "github.com/isoflow/clinicorder/pkg/web/views/order"
	reactorView "github.com/isoflow/clinicorder/pkg/web/views/reactor"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// NewRouter mounts the whole api on g and returns the services behind it.
func NewRouter(ctx context.Context, g *gin.Engine) *Services {
	conf := config.Global()
	svc := NewServices(ctx, DefaultRepos(), conf.Auth.AdminRole)
	installMiddleware(g)
	installCommonURL(g, health.New(map[string]health.Check{
		"postgres": health.Postgres,
		"redis":    health.Redis,
	}))
	InstallURL(g, &conf.Auth, svc)
	return svc
}

func installMiddleware(g *gin.Engine) {
	g.ContextWithFallback = true
	server := config.Global().Server
	g.Use(cors.Default())
	g.Use(otelgin.Middleware(fmt.Sprintf("%s-%s", server.Platform, server.Service)))
	g.Use(logger.LogWithWriter())
	g.Use(metrics.Middleware())
}

func installCommonURL(g *gin.Engine, h *health.Handle) {
	api := g.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/health/live", h.Live)
	api.GET("/health/ready", h.Ready)
	g.GET("/metrics", metrics.Handler())
	g.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// InstallURL mounts the authenticated api on g.
func InstallURL(g *gin.Engine, authConf *config.Auth, svc *Services) {
	rHandle := reactorView.NewReactorHandle(svc.Reactor)
	oHandle := orderView.NewOrderHandle(svc.Order)
	cHandle := clinicView.NewClinicHandle(svc.Clinic)
	nHandle := notificationView.NewNotificationHandle(svc.Notification, svc.WS)

	v1 := g.Group("/api/v1", auth.AuthWeb(authConf, svc.Account, svc.Clinic))

	{
		reactorRouter := v1.Group("/reactor")
		reactorRouter.GET("/list", rHandle.ListReactors)
		reactorRouter.GET("/cycles", rHandle.AvailableCycles)
		reactorRouter.GET("/calendar", rHandle.Calendar)
	}

	{
		orderRouter := v1.Group("/order")
		orderRouter.POST("", oHandle.PlaceOrder)
		orderRouter.GET("/list", oHandle.ListOrders)
		orderRouter.GET("/:uuid", oHandle.GetOrder)
		orderRouter.PUT("/:uuid/reschedule", oHandle.RescheduleOrder)
		orderRouter.POST("/:uuid/cancel", oHandle.CancelOrder)
	}

	{
		notifyRouter := v1.Group("/notification")
		notifyRouter.GET("/list", nHandle.ListNotifications)
		notifyRouter.POST("/seen", nHandle.MarkSeen)
	}

	{
		clinicRouter := v1.Group("/clinic")
		clinicRouter.GET("/profile", cHandle.Profile)
		clinicRouter.PUT("/profile", cHandle.UpdateProfile)
	}

	v1.GET("/ws/notify", nHandle.Connect)

	admin := v1.Group("/admin", auth.AdminOnly())
	{
		admin.POST("/reactor", rHandle.CreateReactor)
		admin.PUT("/reactor/:uuid", rHandle.RenameReactor)
		admin.GET("/cycle/list", rHandle.ListCycles)
		admin.POST("/cycle", rHandle.CreateCycle)
		admin.PUT("/cycle/:uuid", rHandle.UpdateCycle)
		admin.POST("/cycle/:uuid/archive", rHandle.ArchiveCycle)
		admin.DELETE("/cycle/:uuid", rHandle.DeleteCycle)

		admin.PUT("/order/:uuid/status", oHandle.UpdateStatus)

		admin.GET("/clinic/list", cHandle.ListClinics)
		admin.POST("/clinic", cHandle.CreateClinic)
		admin.PUT("/clinic/:uuid", cHandle.UpdateClinic)
	}
}
