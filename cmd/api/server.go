package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/isoflow/clinicorder/docs" // swagger docs

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/core/notify/events"
	cogrpc "github.com/isoflow/clinicorder/pkg/grpc"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/redis"
	"github.com/isoflow/clinicorder/pkg/middleware/trace"
	migrate "github.com/isoflow/clinicorder/pkg/repo/migrate"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/isoflow/clinicorder/pkg/web"
	"github.com/spf13/cobra"
)

func NewWeb() *cobra.Command {
	return &cobra.Command{
		Use:          "apiserver",
		Long:         "Start the API server (HTTP + gRPC)",
		SilenceUsage: true,
		PreRunE:      initWeb,
		RunE:         newRouter,
		PostRunE:     cleanWebResource,
	}
}

func NewMigrate() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Long:         "Run database migrations",
		SilenceUsage: true,
		PreRunE:      initMigrate,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate.Table(cmd.Root().Context())
		},
		PostRunE: func(cmd *cobra.Command, _ []string) error {
			db.ClosePostgres(cmd.Context())
			return nil
		},
	}
}

func dbConfig(conf *config.GlobalConfig) *db.Config {
	return &db.Config{
		Host: conf.Database.Host, Port: conf.Database.Port,
		User: conf.Database.User, PW: conf.Database.Password,
		DBName: conf.Database.Name, LogConf: db.LogConf{Level: conf.Log.LogLevel},
	}
}

func initMigrate(cmd *cobra.Command, _ []string) error {
	db.InitPostgres(cmd.Context(), dbConfig(config.Global()))
	return nil
}

// InitResources starts tracing, postgres and redis. The schedule command
// shares it.
func InitResources(ctx context.Context) {
	conf := config.Global()
	trace.InitTrace(ctx, &trace.InitConfig{
		ServiceName:    fmt.Sprintf("%s-%s", conf.Server.Service, conf.Server.Platform),
		Version:        conf.Trace.Version,
		Env:            conf.Server.Env,
		TraceEndpoint:  conf.Trace.TraceEndpoint,
		MetricEndpoint: conf.Trace.MetricEndpoint,
		Headers:        conf.Trace.Headers,
		Insecure:       conf.Trace.Insecure,
		Stdout:         conf.Trace.Stdout,
	})
	db.InitPostgres(ctx, dbConfig(conf))
	redis.InitRedis(ctx, &redis.Redis{
		Host: conf.Redis.Host, Port: conf.Redis.Port,
		Password: conf.Redis.Password, DB: conf.Redis.DB,
	})
}

// CleanResources releases what InitResources opened.
func CleanResources(ctx context.Context) {
	if err := events.NewEvents().Close(ctx); err != nil {
		logger.Warnf(ctx, "close events err: %+v", err)
	}
	redis.CloseRedis(ctx)
	db.ClosePostgres(ctx)
	trace.CloseTrace()
}

func initWeb(cmd *cobra.Command, _ []string) error {
	InitResources(cmd.Context())
	return nil
}

func newRouter(cmd *cobra.Command, _ []string) error {
	router := gin.New()
	router.Use(gin.Recovery())
	svc := web.NewRouter(cmd.Root().Context(), router)
	conf := config.Global()
	port := conf.Server.Port
	addr := ":" + strconv.Itoa(port)

	httpServer := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       30 * time.Second,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	fmt.Printf("API Server starting on http://0.0.0.0:%d\n", port)

	utils.SafelyGo(func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf(cmd.Context(), "start server err: %v\n", err)
		}
	}, func(err error) {
		logger.Errorf(cmd.Context(), "run http server err: %+v", err)
		os.Exit(1)
	})

	grpcPort := conf.Server.GrpcPort
	grpcServer, err := cogrpc.NewServer(cmd.Root().Context(), grpcPort, svc.Clinic, svc.Reactor)
	if err != nil {
		logger.Errorf(cmd.Context(), "start gRPC server err: %+v", err)
	} else {
		fmt.Printf("gRPC Server starting on port %d\n", grpcPort)
	}

	fmt.Printf("Server started. Press Ctrl+C to shutdown.\n")
	<-cmd.Context().Done()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("shut down server err: %+v", err)
	}
	return nil
}

func cleanWebResource(cmd *cobra.Command, _ []string) error {
	CleanResources(cmd.Context())
	return nil
}
