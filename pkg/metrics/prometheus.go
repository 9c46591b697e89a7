package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zwavetools/ztrace/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	var output strings.Builder

	// Source metrics
	output.WriteString("# HELP ztrace_sources_total Total number of source connections\n")
	output.WriteString("# TYPE ztrace_sources_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_sources_total %d\n", h.collector.GetTotalSources()))

	output.WriteString("# HELP ztrace_sources_active Number of currently connected sources\n")
	output.WriteString("# TYPE ztrace_sources_active gauge\n")
	output.WriteString(fmt.Sprintf("ztrace_sources_active %d\n", h.collector.GetActiveSources()))

	// Debug channel metrics
	output.WriteString("# HELP ztrace_chunks_received_total Total chunks read from debug channels\n")
	output.WriteString("# TYPE ztrace_chunks_received_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_chunks_received_total %d\n", h.collector.GetChunksReceived()))

	output.WriteString("# HELP ztrace_bytes_received_total Total bytes read from debug channels\n")
	output.WriteString("# TYPE ztrace_bytes_received_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_bytes_received_total %d\n", h.collector.GetBytesReceived()))

	// Frame metrics
	output.WriteString("# HELP ztrace_frames_decoded_total Total decoded radio frames\n")
	output.WriteString("# TYPE ztrace_frames_decoded_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_frames_decoded_total %d\n", h.collector.GetFramesDecoded()))

	output.WriteString("# HELP ztrace_chunks_dropped_total Total chunks dropped on decode errors\n")
	output.WriteString("# TYPE ztrace_chunks_dropped_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_chunks_dropped_total %d\n", h.collector.GetFramesDropped()))

	// Output metrics
	output.WriteString("# HELP ztrace_zlf_chunks_written_total Total chunks written to ZLF trace files\n")
	output.WriteString("# TYPE ztrace_zlf_chunks_written_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_zlf_chunks_written_total %d\n", h.collector.GetZlfChunksWritten()))

	output.WriteString("# HELP ztrace_pcap_records_written_total Total records written to pcap files\n")
	output.WriteString("# TYPE ztrace_pcap_records_written_total counter\n")
	output.WriteString(fmt.Sprintf("ztrace_pcap_records_written_total %d\n", h.collector.GetPcapRecordsWritten()))

	w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.New(logger.Config{Level: "info"})
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start starts the Prometheus metrics server
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	handler := NewPrometheusHandler(s.collector)
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, handler)

	// Use a listener to get the actual port (useful for testing with port 0)
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{
		Handler: mux,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", actualPort),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop stops the Prometheus metrics server
func (s *PrometheusServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
}
