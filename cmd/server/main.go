package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/handlers"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/hardware"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/repository"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/repository/db"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/server"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// init logger
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	database, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := database.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// pick the hardware backend: real pins on a Pi, in-memory otherwise
	backend, isPi := hardware.Detect(log)
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			log.Warnw("failed to close gpio backend", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(database)
	services := service.NewService(repos, backend, isPi, log)
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reapply persisted pin configurations
	if err := services.GPIO.Restore(ctx); err != nil {
		log.Warnw("failed to restore pin configurations", "err", err)
	}

	// start the edge-detection loop for monitored inputs
	go services.Monitor.Run(ctx, monitorTick())

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "gpio.db")
		dbPath = "gpio.db"
	}
	return db.InitDB(dbPath)
}

func monitorTick() time.Duration {
	if tick := viper.GetDuration("monitor.tick"); tick > 0 {
		return tick
	}
	return service.DefaultMonitorTick
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
