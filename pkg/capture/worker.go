// Package capture pulls radio debug traffic from a source and fans it out
// to trace files, the database and the live dashboard.
package capture

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/zwavetools/ztrace/pkg/config"
	"github.com/zwavetools/ztrace/pkg/database"
	"github.com/zwavetools/ztrace/pkg/logger"
	"github.com/zwavetools/ztrace/pkg/metrics"
	"github.com/zwavetools/ztrace/pkg/pcap"
	"github.com/zwavetools/ztrace/pkg/protocol"
	"github.com/zwavetools/ztrace/pkg/rail"
	"github.com/zwavetools/ztrace/pkg/web"
	"github.com/zwavetools/ztrace/pkg/zlf"
)

const (
	readBufferSize = 4096
	readTimeout    = 100 * time.Millisecond
	reconnectDelay = 1 * time.Second
)

// Worker captures the debug channel of a single source
type Worker struct {
	source    config.SourceConfig
	outputDir string
	logger    *logger.Logger
	collector *metrics.Collector

	// optional fan-out targets
	hub      *web.WebSocketHub
	sessions *database.SessionRepository
	frames   *database.FrameRepository

	dial func(ctx context.Context, addr string) (net.Conn, error)
	now  func() time.Time

	// host microseconds minus target microseconds, fixed on the first
	// decoded frame so pcap records carry wall clock time
	referenceTime int64
	haveReference bool

	chunkCount int
	frameCount int
}

// NewWorker creates a capture worker for one source
func NewWorker(source config.SourceConfig, outputDir string, collector *metrics.Collector, log *logger.Logger) *Worker {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &Worker{
		source:    source,
		outputDir: outputDir,
		logger:    log.WithComponent("capture." + source.Name),
		collector: collector,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", addr)
		},
		now:       time.Now,
	}
}

// SetHub attaches a WebSocket hub for live frame events
func (w *Worker) SetHub(hub *web.WebSocketHub) {
	w.hub = hub
}

// SetRepositories attaches the capture index repositories
func (w *Worker) SetRepositories(sessions *database.SessionRepository, frames *database.FrameRepository) {
	w.sessions = sessions
	w.frames = frames
}

// Run captures until the context is cancelled. Connection drops are retried,
// every run writes one ZLF and one pcap file.
func (w *Worker) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := w.now().Format("20060102-150405")
	zlfPath := filepath.Join(w.outputDir, fmt.Sprintf("%s-%s.zlf", w.source.Name, stamp))
	pcapPath := filepath.Join(w.outputDir, fmt.Sprintf("%s-%s.pcap", w.source.Name, stamp))

	zlfWriter, err := zlf.Create(zlfPath)
	if err != nil {
		return fmt.Errorf("failed to create ZLF file: %w", err)
	}
	defer zlfWriter.Close()

	pcapWriter, err := pcap.Create(pcapPath)
	if err != nil {
		return fmt.Errorf("failed to create pcap file: %w", err)
	}
	defer pcapWriter.Close()

	session := &database.CaptureSession{
		SourceName: w.source.Name,
		SourceAddr: w.source.Address(),
		ZlfPath:    zlfPath,
		PcapPath:   pcapPath,
	}
	if w.sessions != nil {
		if err := w.sessions.Create(session); err != nil {
			w.logger.Warn("Failed to record capture session", logger.Error(err))
		}
		defer func() {
			if err := w.sessions.End(session.ID, w.chunkCount, w.frameCount); err != nil {
				w.logger.Warn("Failed to close capture session", logger.Error(err))
			}
		}()
	}

	w.logger.Info("Capture started",
		logger.String("zlf", zlfPath),
		logger.String("pcap", pcapPath))

	for {
		if err := w.captureOnce(ctx, zlfWriter, pcapWriter, session.ID); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Capture stopped",
					logger.Int("chunks", w.chunkCount),
					logger.Int("frames", w.frameCount))
				return nil
			}
			w.logger.Warn("Connection lost, reconnecting", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Capture stopped",
				logger.Int("chunks", w.chunkCount),
				logger.Int("frames", w.frameCount))
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// captureOnce holds one connection open and streams chunks until the
// context is cancelled or the connection fails.
func (w *Worker) captureOnce(ctx context.Context, zlfWriter *zlf.Writer, pcapWriter *pcap.Writer, sessionID uint) error {
	conn, err := w.dial(ctx, w.source.Address())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", w.source.Address(), err)
	}
	defer conn.Close()

	w.logger.Info("Connected", logger.String("addr", w.source.Address()))
	w.collector.SourceConnected(w.source.Name)
	defer w.collector.SourceDisconnected(w.source.Name)
	if w.hub != nil {
		w.hub.BroadcastSourceConnected(w.source.Name, w.source.Address())
		defer w.hub.BroadcastSourceDisconnected(w.source.Name)
	}

	buf := make([]byte, readBufferSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		w.handleChunk(chunk, zlfWriter, pcapWriter, sessionID)
	}
}

// handleChunk archives one raw chunk and, if it decodes, converts it
func (w *Worker) handleChunk(chunk []byte, zlfWriter *zlf.Writer, pcapWriter *pcap.Writer, sessionID uint) {
	w.chunkCount++
	w.collector.ChunkReceived(uint64(len(chunk)))

	// the raw chunk is always archived, even when it does not decode
	if err := zlfWriter.AppendChunk(chunk); err != nil {
		w.logger.Error("Failed to append ZLF chunk", logger.Error(err))
	} else {
		w.collector.ZlfChunkWritten()
	}

	packet, err := protocol.ParseDchPacket(chunk)
	if err != nil {
		w.collector.ChunkDropped()
		w.logger.Debug("Dropped undecodable chunk",
			logger.Int("size", len(chunk)),
			logger.Error(err))
		return
	}

	if !w.haveReference {
		hostMicros := w.now().UnixMicro()
		w.referenceTime = hostMicros - int64(packet.Frames[0].TimestampMicros())
		w.haveReference = true
		w.logger.Info("Reference time locked",
			logger.Int64("reference_us", w.referenceTime))
	}

	if err := pcapWriter.Append(packet, w.referenceTime); err != nil {
		w.logger.Warn("Failed to append pcap records", logger.Error(err))
	} else {
		w.collector.PcapRecordsWritten(uint64(len(packet.Frames)))
	}

	w.frameCount += len(packet.Frames)
	w.collector.FramesDecoded(uint64(len(packet.Frames)))
	w.fanOutFrames(packet, sessionID)
}

// fanOutFrames pushes decoded frames to the database and the dashboard
func (w *Worker) fanOutFrames(packet *protocol.DchPacket, sessionID uint) {
	records := make([]database.FrameRecord, 0, len(packet.Frames))

	for _, frame := range packet.Frames {
		info := frame.Payload.Info
		regionID := rail.RegionID(info.RadioConfig.RegionID)

		direction := "tx"
		if info.Cfg.IsRx == 1 {
			direction = "rx"
		}

		var frequencyKHz uint32
		if channel, err := rail.Lookup(regionID, info.RadioInfo.ChannelNumber); err == nil {
			frequencyKHz = channel.FrequencyKHz
		}

		timestamp := w.referenceTime + int64(frame.TimestampMicros())
		rssi := int16(info.RSSIValue())
		length := len(frame.Payload.Payload)

		if w.frames != nil {
			records = append(records, database.FrameRecord{
				SessionID:    sessionID,
				SourceName:   w.source.Name,
				Timestamp:    timestamp,
				Direction:    direction,
				Region:       regionID.Name(),
				Channel:      info.RadioInfo.ChannelNumber,
				FrequencyKHz: frequencyKHz,
				RSSI:         rssi,
				Length:       length,
			})
		}

		if w.hub != nil {
			w.hub.BroadcastFrame(web.FrameEvent{
				Source:       w.source.Name,
				Timestamp:    timestamp,
				Direction:    direction,
				Region:       regionID.Name(),
				Channel:      info.RadioInfo.ChannelNumber,
				FrequencyKHz: frequencyKHz,
				RSSI:         rssi,
				Length:       length,
			})
		}
	}

	if w.frames != nil && len(records) > 0 {
		if err := w.frames.CreateBatch(records); err != nil {
			w.logger.Warn("Failed to index frames", logger.Error(err))
		}
	}
}
