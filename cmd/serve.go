package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ai-interviewer/internal/logger"
	"github.com/spigell/ai-interviewer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :8000)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
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

	logger.Info("starting the ai-interviewer api", zap.String("version", version))

	application, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initialising the application", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := application.Close(shutdownCtx); err != nil {
			logger.Warn("closing the application", zap.Error(err))
		}
	}()

	srv := server.New(application.service, application.features, version, logger)
	if err := srv.ListenAndServe(ctx, config.Server); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}
