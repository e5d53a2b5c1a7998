package schedule

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/cmd/api"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/isoflow/clinicorder/pkg/web"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:          "schedule",
		Long:         "Start the schedule server (mail worker + archive sweep)",
		SilenceUsage: true,
		PreRunE:      initSchedule,
		RunE:         newRouter,
		PostRunE:     cleanSchedule,
	}
}

func initSchedule(cmd *cobra.Command, _ []string) error {
	api.InitResources(cmd.Context())
	return nil
}

func newRouter(cmd *cobra.Command, _ []string) error {
	router := gin.New()
	router.Use(gin.Recovery())
	cancel, err := web.NewSchedule(cmd.Root().Context(), router)
	if err != nil {
		return err
	}
	port := config.Global().Server.SchedulePort
	addr := ":" + strconv.Itoa(port)

	httpServer := http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	fmt.Printf("Schedule Server starting on http://0.0.0.0:%d\n", port)

	utils.SafelyGo(func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf(cmd.Context(), "start server err: %v\n", err)
		}
	}, func(err error) {
		logger.Errorf(cmd.Context(), "run http server err: %+v", err)
		os.Exit(1)
	})

	fmt.Printf("Schedule Server started on port %d. Press Ctrl+C to shutdown.\n", port)
	<-cmd.Context().Done()

	cancel()
	ctx, cancelTimeout := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelTimeout()
	if err := httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("shut down server err: %+v", err)
	}
	return nil
}

func cleanSchedule(cmd *cobra.Command, _ []string) error {
	api.CleanResources(cmd.Context())
	return nil
}
