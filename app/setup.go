package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/coursehub-api/api"
	"github.com/sahilchouksey/coursehub-api/config"
	"github.com/sahilchouksey/coursehub-api/router"
	"github.com/sahilchouksey/coursehub-api/utils"
	"github.com/sahilchouksey/coursehub-api/utils/response"
)

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	logger := utils.SetupLogger(env.GO_ENV)
	response.Debug = !env.IsProduction()

	container, err := NewContainer(env, logger, Collaborators{})
	if err != nil {
		if env.STORE_DRIVER == "postgres" {
			logger.Error("check whether Postgres is running", "host", env.DB_HOST, "port", env.DB_PORT)
		}
		return err
	}
	defer container.Close()

	// Cron failures never stop the API
	if container.Jobs != nil {
		if err := container.Jobs.Start(); err != nil {
			logger.Warn("failed to start cron jobs", "error", err)
		}
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), logger)
	router.SetupRoutes(server.GetEngine(), container.Deps)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
