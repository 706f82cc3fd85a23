// Package sensor feeds the dashboard with temperature and humidity readings
// from whichever source the install has: the backend's wired sensor, the
// WiFi sensor node, or an MQTT broker.
package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/fresheye/fresheye/internal/models"
)

// DefaultInterval matches the dashboard refresh rate.
const DefaultInterval = 2 * time.Second

// Fetcher obtains the current sensor reading.
type Fetcher interface {
	Fetch(ctx context.Context) (models.SensorReading, error)
}

// Monitor polls a Fetcher on a fixed interval and hands every reading to the
// subscriber. A failed fetch publishes the disconnected reading instead, so
// the dashboard never keeps showing stale values as live ones. The loop
// stops with its context and never fetches again after that.
type Monitor struct {
	fetcher  Fetcher
	interval time.Duration

	mu   sync.Mutex
	last models.SensorReading
}

func NewMonitor(fetcher Fetcher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{fetcher: fetcher, interval: interval, last: models.Disconnected()}
}

// Run polls until ctx ends. The first fetch happens immediately.
func (m *Monitor) Run(ctx context.Context, fn func(models.SensorReading)) {
	emit := func() {
		reading, err := m.fetcher.Fetch(ctx)
		if err != nil {
			reading = models.Disconnected()
		}
		if ctx.Err() != nil {
			return
		}
		m.mu.Lock()
		m.last = reading
		m.mu.Unlock()
		if fn != nil {
			fn(reading)
		}
	}

	emit()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}

// Last returns the most recently published reading.
func (m *Monitor) Last() models.SensorReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
