package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gpioctl "github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockGPIO struct {
	configureErr error
	writeErr     error
	pwmErr       error
	resetErr     error
	monitorResp  bool
	monitorErr   error

	lastConfigure     service.ModeParams
	lastWrite         service.WriteParams
	lastPWM           service.PWMParams
	lastMonitorPin    int
	lastMonitorEnable bool
	resetCalls        int
}

func (m *mockGPIO) Restore(ctx context.Context) error { return nil }

func (m *mockGPIO) Configure(ctx context.Context, p service.ModeParams) error {
	m.lastConfigure = p
	return m.configureErr
}

func (m *mockGPIO) Write(ctx context.Context, p service.WriteParams) error {
	m.lastWrite = p
	return m.writeErr
}

func (m *mockGPIO) PWM(ctx context.Context, p service.PWMParams) error {
	m.lastPWM = p
	return m.pwmErr
}

func (m *mockGPIO) SetMonitor(ctx context.Context, pin int, enable bool) (bool, error) {
	m.lastMonitorPin = pin
	m.lastMonitorEnable = enable
	return m.monitorResp, m.monitorErr
}

func (m *mockGPIO) Reset(ctx context.Context) error {
	m.resetCalls++
	return m.resetErr
}

type mockSnapshots struct {
	snap gpioctl.Snapshot
	err  error
}

func (m *mockSnapshots) Snapshot(ctx context.Context) (gpioctl.Snapshot, error) {
	return m.snap, m.err
}

type mockMonitorLoop struct{}

func (m *mockMonitorLoop) Run(ctx context.Context, tick time.Duration) {}

// newTestRouter builds a gin router backed by the given mocks and a real
// event hub for stream tests.
func newTestRouter(gpio service.GPIO, snaps service.Snapshots) (*gin.Engine, *service.EventHub) {
	gin.SetMode(gin.TestMode)
	hub := service.NewEventHub(logger.Nop())
	svc := &service.Service{
		GPIO:      gpio,
		Snapshots: snaps,
		Monitor:   &mockMonitorLoop{},
		Hub:       hub,
	}
	h := NewHandler(svc, logger.Nop())
	return h.InitRoutes(), hub
}

// newTestContext builds a request-bound gin context for helper-level tests.
func newTestContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}
