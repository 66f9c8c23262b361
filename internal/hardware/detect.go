package hardware

import (
	"github.com/SiddhantSilwal/RaspberryPi-GPIO-Web-Controller/internal/logger"
)

// Detect probes for real GPIO hardware and falls back to the in-memory
// mock, so the server runs unchanged on a development machine.
// The second return value reports whether real hardware was found.
func Detect(log *logger.Logger) (Backend, bool) {
	backend, err := NewPeriph()
	if err != nil {
		log.Infow("no GPIO hardware detected, using mock backend", "reason", err)
		return NewMock(), false
	}
	log.Infow("GPIO hardware detected", "backend", backend.Name())
	return backend, true
}
