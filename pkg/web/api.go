package web

import (
	"encoding/json"
	"net/http"

	"github.com/zwavetools/ztrace/pkg/database"
	"github.com/zwavetools/ztrace/pkg/logger"
	"github.com/zwavetools/ztrace/pkg/metrics"
)

// API handles REST API endpoints
type API struct {
	logger    *logger.Logger
	collector *metrics.Collector
	sessions  *database.SessionRepository
	frames    *database.FrameRepository
}

// NewAPI creates a new API instance. The repositories may be nil when the
// database is disabled.
func NewAPI(log *logger.Logger, collector *metrics.Collector, sessions *database.SessionRepository, frames *database.FrameRepository) *API {
	return &API{
		logger:    log,
		collector: collector,
		sessions:  sessions,
		frames:    frames,
	}
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{
		"status":  "running",
		"service": "ztrace",
	}
	if a.collector != nil {
		response["sources_active"] = a.collector.GetActiveSources()
		response["chunks_received"] = a.collector.GetChunksReceived()
		response["frames_decoded"] = a.collector.GetFramesDecoded()
		response["chunks_dropped"] = a.collector.GetFramesDropped()
	}

	json.NewEncoder(w).Encode(response)
}

// HandleSessions handles the /api/sessions endpoint
func (a *API) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	sessions := []database.CaptureSession{}
	if a.sessions != nil {
		var err error
		sessions, err = a.sessions.GetRecent(50)
		if err != nil {
			a.logger.Error("Failed to query sessions", logger.Error(err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(sessions)
}

// HandleFrames handles the /api/frames endpoint
func (a *API) HandleFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	frames := []database.FrameRecord{}
	if a.frames != nil {
		var err error
		frames, err = a.frames.GetRecent(100)
		if err != nil {
			a.logger.Error("Failed to query frames", logger.Error(err))
			http.Error(w, "query failed", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(frames)
}
