package client

import (
	"context"
	"fmt"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// SnapshotPoller pulls full snapshots into a PinStateStore. A failed
// refresh leaves the previous state intact so the operator keeps seeing
// the last known values, marked stale by the error status.
type SnapshotPoller struct {
	commands *CommandClient
	store    *PinStateStore
	status   *ConnectivityState
	activity *EventLog
	log      *logger.Logger
}

func NewSnapshotPoller(commands *CommandClient, store *PinStateStore, status *ConnectivityState, activity *EventLog, log *logger.Logger) *SnapshotPoller {
	return &SnapshotPoller{
		commands: commands,
		store:    store,
		status:   status,
		activity: activity,
		log:      log,
	}
}

// Refresh fetches one snapshot and replaces the store's state with it.
func (p *SnapshotPoller) Refresh(ctx context.Context) error {
	snap, err := p.commands.FetchSnapshot(ctx)
	if err != nil {
		p.fail(err)
		return err
	}
	if err := p.store.ApplySnapshot(snap); err != nil {
		p.fail(err)
		return err
	}
	return nil
}

func (p *SnapshotPoller) fail(err error) {
	p.status.Set(StatusError)
	p.activity.Append(LogEntry{
		Timestamp: time.Now().Format(gpioctl.TimeLayout),
		Message:   fmt.Sprintf("Failed to refresh pin states: %v", err),
		Level:     gpioctl.LevelError,
	})
	p.log.Warnw("snapshot refresh failed", "error", err)
}
