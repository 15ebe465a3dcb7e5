package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skills-extractor/internal/health"
	"github.com/spigell/skills-extractor/internal/logger"
	"github.com/spigell/skills-extractor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extract-skills HTTP endpoint",
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("extraction.strict-persistence", cmd.Flags().Lookup("strict-persistence"))
	},
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "port to listen on (env PORT)")
	serveCmd.Flags().Bool("strict-persistence", false, "mark the job failed when skill rows cannot be written")

	viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the skills-extractor", zap.String("version", version))

	deps, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("building dependencies", zap.Error(err))
	}
	defer deps.Close()

	srv := server.New(config.HTTP.Config, deps.pipeline, health.NewService(deps.checks...), logger)
	if err := srv.Listen(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}
	logger.Info("exiting", zap.String("reason", "signal received"))
}
