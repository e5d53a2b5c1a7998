package main

import (
	"log"
	"os"

	"github.com/isoflow/clinicorder/cmd/api"
	"github.com/isoflow/clinicorder/cmd/schedule"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	rootCtx := utils.SetupSignalContext()
	root := &cobra.Command{
		SilenceUsage:      true,
		Short:             "clinicorder",
		Long:              "clinicorder - reactor availability and clinic ordering",
		PersistentPreRunE: initGlobalResource,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
		PersistentPostRunE: cleanGlobalResource,
	}
	decimal.MarshalJSONWithoutQuotes = true

	root.SetContext(rootCtx)
	root.AddCommand(api.NewWeb())
	root.AddCommand(api.NewMigrate())
	root.AddCommand(schedule.New())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initGlobalResource(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found - using environment variables")
	}

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.AutomaticEnv()

	conf := config.Global()
	if err := v.Unmarshal(conf); err != nil {
		log.Fatal(err)
	}

	logger.Init(&logger.LogConfig{
		Path:     conf.Log.LogPath,
		LogLevel: conf.Log.LogLevel,
		ServiceEnv: logger.ServiceEnv{
			Platform: conf.Server.Platform,
			Service:  conf.Server.Service,
			Env:      conf.Server.Env,
		},
	})

	return nil
}

func cleanGlobalResource(_ *cobra.Command, _ []string) error {
	logger.Close()
	return nil
}
