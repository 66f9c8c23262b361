package handlers

import (
	"net/http"

	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errGetPins         = "failed to load pin states"
	errResetPins       = "failed to reset pins"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Request DTO for configuring a pin.
type modeRequest struct {
	Pin  int    `json:"pin" binding:"required"`
	Mode string `json:"mode" binding:"required"` // input | output
	Pull string `json:"pull,omitempty"`          // off | up | down
}

// Request DTO for driving an output pin.
type writeRequest struct {
	Pin      int     `json:"pin" binding:"required"`
	Action   string  `json:"action" binding:"required"` // high | low | pulse
	Duration float64 `json:"duration,omitempty"`        // pulse on-time, ms
	Loops    int     `json:"loops,omitempty"`
}

// Request DTO for PWM control. Frequency/duty stay pointers so "update"
// can distinguish omitted fields from zero values.
type pwmRequest struct {
	Pin       int      `json:"pin" binding:"required"`
	Action    string   `json:"action" binding:"required"` // start | stop | update
	Frequency *float64 `json:"frequency,omitempty"`
	DutyCycle *float64 `json:"duty_cycle,omitempty"`
}

// Request DTO for toggling input monitoring.
type monitorRequest struct {
	Pin    int   `json:"pin" binding:"required"`
	Enable *bool `json:"enable,omitempty"` // defaults to true
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Get all pin states
// @Description  Full snapshot: every valid pin with mode, value, pull and PWM overlay, plus backend identity.
// @Tags         pins
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "pins, backend, is_pi, valid_pins, pwm_pins"
// @Failure      500  {object}  map[string]string
// @Router       /api/pins [get]
func (h *Handler) getPins(c *gin.Context) {
	snap, err := h.services.Snapshot(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetPins, "snapshot_failed", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Configure pin mode
// @Description  Sets a pin to input (with optional pull) or output, replacing any previous configuration.
// @Tags         pins
// @Accept       json
// @Produce      json
// @Param        body  body   modeRequest  true  "Mode payload"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Router       /api/mode [post]
func (h *Handler) setMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	params := service.ModeParams{Pin: req.Pin, Mode: req.Mode, Pull: req.Pull}
	if err := h.services.Configure(c.Request.Context(), params); err != nil {
		if h.log != nil {
			h.log.Errorw("configure_pin_failed", "err", err, "pin", req.Pin, "mode", req.Mode)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Write to output pin
// @Description  Drives the pin high/low, or runs a pulse train (action=pulse with duration in ms and loops).
// @Tags         pins
// @Accept       json
// @Produce      json
// @Param        body  body   writeRequest  true  "Write payload"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Router       /api/write [post]
func (h *Handler) writePin(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	params := service.WriteParams{Pin: req.Pin, Action: req.Action, DurationMs: req.Duration, Loops: req.Loops}
	if err := h.services.Write(c.Request.Context(), params); err != nil {
		if h.log != nil {
			h.log.Errorw("write_pin_failed", "err", err, "pin", req.Pin, "action", req.Action)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Control PWM
// @Description  action=start begins PWM (frequency Hz, duty_cycle %), action=stop halts it, action=update changes parameters in place.
// @Tags         pins
// @Accept       json
// @Produce      json
// @Param        body  body   pwmRequest  true  "PWM payload"
// @Success      200   {object}  map[string]bool
// @Failure      400   {object}  map[string]string
// @Router       /api/pwm [post]
func (h *Handler) controlPWM(c *gin.Context) {
	var req pwmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	params := service.PWMParams{Pin: req.Pin, Action: req.Action, Frequency: req.Frequency, DutyCycle: req.DutyCycle}
	if err := h.services.PWM(c.Request.Context(), params); err != nil {
		if h.log != nil {
			h.log.Errorw("control_pwm_failed", "err", err, "pin", req.Pin, "action", req.Action)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Toggle input monitoring
// @Description  Subscribes or unsubscribes an input pin for edge events on the push stream.
// @Tags         pins
// @Accept       json
// @Produce      json
// @Param        body  body   monitorRequest  true  "Monitor payload"
// @Success      200   {object}  map[string]interface{}  "success, monitoring"
// @Failure      400   {object}  map[string]string
// @Router       /api/monitor [post]
func (h *Handler) toggleMonitor(c *gin.Context) {
	var req monitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	enable := true
	if req.Enable != nil {
		enable = *req.Enable
	}
	monitoring, err := h.services.SetMonitor(c.Request.Context(), req.Pin, enable)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("toggle_monitor_failed", "err", err, "pin", req.Pin)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "monitoring": monitoring})
}

// @Summary      Reset all pins
// @Description  Clears monitoring, stops all PWM and releases every pin.
// @Tags         pins
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Failure      500  {object}  map[string]string
// @Router       /api/reset [post]
func (h *Handler) resetAll(c *gin.Context) {
	if err := h.services.Reset(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResetPins, "reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
