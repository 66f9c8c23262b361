package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"

	"github.com/gin-gonic/gin"
)

const (
	// heartbeatInterval keeps idle push-stream connections alive.
	heartbeatInterval = 30 * time.Second
	// eventStreamBuffer is the subscriber queue depth for one stream client.
	eventStreamBuffer = 64
)

// @Summary      Push event stream
// @Description  Server-sent events: one JSON object per data frame. Heartbeats every 30s of silence.
// @Tags         events
// @Produce      text/event-stream
// @Success      200  {string}  string  "stream"
// @Router       /api/events [get]
func (h *Handler) eventStream(c *gin.Context) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeaderNow()
	// Headers sit in the buffer until the first body write; flush so the
	// client's request returns before any event is published.
	c.Writer.Flush()

	events, cancel := h.services.Hub.Subscribe(eventStreamBuffer)
	defer cancel()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := h.writeEvent(c, ev); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := h.writeEvent(c, gpioctl.Event{Type: gpioctl.EventHeartbeat}); err != nil {
				return
			}
		}
	}
}

// writeEvent frames one event as an SSE data line and flushes it.
func (h *Handler) writeEvent(c *gin.Context, ev gpioctl.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		// Events are plain structs; failure here is a programming error.
		if h.log != nil {
			h.log.Errorw("event_marshal_failed", "err", err, "type", ev.Type)
		}
		return nil
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); err != nil {
		if h.log != nil {
			h.log.Infow("event_stream_closed", "err", err)
		}
		return err
	}
	c.Writer.Flush()
	return nil
}
