package capture

import (
	"context"
	"sync"

	"github.com/zwavetools/ztrace/pkg/config"
	"github.com/zwavetools/ztrace/pkg/database"
	"github.com/zwavetools/ztrace/pkg/logger"
	"github.com/zwavetools/ztrace/pkg/metrics"
	"github.com/zwavetools/ztrace/pkg/web"
)

// Manager runs one capture worker per configured source
type Manager struct {
	workers []*Worker
	logger  *logger.Logger
}

// NewManager creates workers for all sources in the configuration
func NewManager(cfg *config.Config, collector *metrics.Collector, log *logger.Logger) *Manager {
	m := &Manager{logger: log.WithComponent("capture")}
	for _, source := range cfg.Sources {
		m.workers = append(m.workers, NewWorker(source, cfg.Output.Dir, collector, log))
	}
	return m
}

// SetHub attaches a WebSocket hub to all workers
func (m *Manager) SetHub(hub *web.WebSocketHub) {
	for _, w := range m.workers {
		w.SetHub(hub)
	}
}

// SetRepositories attaches the capture index repositories to all workers
func (m *Manager) SetRepositories(sessions *database.SessionRepository, frames *database.FrameRepository) {
	for _, w := range m.workers {
		w.SetRepositories(sessions, frames)
	}
}

// Run starts all workers and blocks until they have stopped
func (m *Manager) Run(ctx context.Context) error {
	if len(m.workers) == 0 {
		m.logger.Warn("No capture sources configured")
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				m.logger.Error("Capture worker failed",
					logger.String("source", w.source.Name),
					logger.Error(err))
			}
		}(w)
	}
	wg.Wait()
	return nil
}
