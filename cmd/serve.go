package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the batch screening HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	logger.Info("starting the resume-intake server", zap.String("version", version))

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building pipeline", zap.Error(err))
	}
	defer c.Close()

	srv := server.New(server.Config{
		Address:      config.Server.Address,
		MaxBodyBytes: config.Server.MaxBodyBytes,
	}, c.pipeline, c.repo, logger)

	if err := srv.Serve(ctx); err != nil {
		logger.Fatal("serving http", zap.Error(err))
	}

	logger.Info("server stopped")
}
