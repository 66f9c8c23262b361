package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/client"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"

	"github.com/spf13/viper"
)

// Headless operator console: keeps a live view of the server's pin state
// and prints activity and input events as they arrive.
func main() {
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	serverURL := viper.GetString("client.server_url")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	ctl := client.NewController(serverURL, client.Options{
		PollInterval:   viper.GetDuration("client.poll_interval"),
		ReconnectDelay: viper.GetDuration("client.reconnect_delay"),
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ctl.Run(ctx)
	go printLogs(ctx, ctl, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("console shutting down")
	cancel()
	ctl.Close()
}

func loadConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// printLogs tails the controller's bounded logs, emitting only entries it
// has not shown yet.
func printLogs(ctx context.Context, ctl *client.Controller, log *logger.Logger) {
	var lastActivity, lastInput string

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		lastActivity = emitNew(ctl.Activity().Entries(), lastActivity, "activity", log)
		lastInput = emitNew(ctl.Inputs().Entries(), lastInput, "input", log)
	}
}

// emitNew prints entries appended since the one identified by seen and
// returns the new high-water mark.
func emitNew(entries []client.LogEntry, seen, kind string, log *logger.Logger) string {
	start := 0
	if seen != "" {
		for i := len(entries) - 1; i >= 0; i-- {
			if entryKey(entries[i]) == seen {
				start = i + 1
				break
			}
		}
	}
	for _, e := range entries[start:] {
		log.Infow(e.Message, "kind", kind, "level", e.Level, "at", e.Timestamp)
	}
	if len(entries) > 0 {
		return entryKey(entries[len(entries)-1])
	}
	return seen
}

func entryKey(e client.LogEntry) string {
	return e.Timestamp + "|" + e.Message
}
