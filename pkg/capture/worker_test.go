package capture

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/zwavetools/ztrace/pkg/config"
	"github.com/zwavetools/ztrace/pkg/logger"
	"github.com/zwavetools/ztrace/pkg/metrics"
	"github.com/zwavetools/ztrace/pkg/pcap"
	"github.com/zwavetools/ztrace/pkg/zlf"
)

// raw DCHv2 packet holding one PTI Rx frame on EU channel 1
var dchPacketFixture = []byte{
	0x5B, 0x1E, 0x00, 0x02, 0x00, 0xCC, 0x9D, 0x29, 0xC5, 0x01, 0x05, 0x2A, 0x00, 0x6C,
	0xF8, 0xDF, 0xEE, 0xBB, 0x0C, 0x02, 0x03, 0x82, 0x0A, 0x01, 0xF1, 0xF9, 0x1C, 0x01,
	0x01, 0x06, 0x51, 0x5D,
}

var garbageChunk = []byte{0x00, 0x01, 0x02}

// serveChunks starts a TCP server that writes each chunk with a pause in
// between, long enough for the worker to consume them as separate reads.
func serveChunks(t *testing.T, chunks ...[]byte) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for _, chunk := range chunks {
			if _, err := conn.Write(chunk); err != nil {
				return
			}
			time.Sleep(300 * time.Millisecond)
		}
		// hold the connection open until the test ends
		time.Sleep(5 * time.Second)
	}()

	return listener.Addr().(*net.TCPAddr).Port
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Condition not met in time")
}

func TestWorker_Capture(t *testing.T) {
	port := serveChunks(t, dchPacketFixture, garbageChunk)

	source := config.SourceConfig{Name: "dut-1", Host: "127.0.0.1", Port: port}
	collector := metrics.NewCollector()
	log := logger.New(logger.Config{Level: "error"})
	outputDir := t.TempDir()
	worker := NewWorker(source, outputDir, collector, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	waitFor(t, 4*time.Second, func() bool {
		return collector.GetChunksReceived() >= 2
	})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Worker failed: %v", err)
	}

	if collector.GetFramesDecoded() != 1 {
		t.Errorf("Expected 1 decoded frame, got %d", collector.GetFramesDecoded())
	}
	if collector.GetFramesDropped() != 1 {
		t.Errorf("Expected 1 dropped chunk, got %d", collector.GetFramesDropped())
	}
	if collector.GetZlfChunksWritten() != 2 {
		t.Errorf("Expected 2 ZLF chunks, got %d", collector.GetZlfChunksWritten())
	}
	if collector.GetPcapRecordsWritten() != 1 {
		t.Errorf("Expected 1 pcap record, got %d", collector.GetPcapRecordsWritten())
	}
	if collector.GetActiveSources() != 0 {
		t.Errorf("Expected source disconnect on shutdown, got %d active", collector.GetActiveSources())
	}

	// both chunks must be archived in the ZLF file, decodable or not
	zlfFiles, err := filepath.Glob(filepath.Join(outputDir, "dut-1-*.zlf"))
	if err != nil || len(zlfFiles) != 1 {
		t.Fatalf("Expected 1 ZLF file, got %v (%v)", zlfFiles, err)
	}
	zlfReader, err := zlf.Open(zlfFiles[0])
	if err != nil {
		t.Fatalf("Failed to open ZLF file: %v", err)
	}
	first, err := zlfReader.NextChunk()
	if err != nil {
		t.Fatalf("Failed to read first ZLF chunk: %v", err)
	}
	packet, err := first.Decode()
	if err != nil {
		t.Fatalf("First ZLF chunk should decode: %v", err)
	}
	if len(packet.Frames) != 1 {
		t.Errorf("Expected 1 frame in first chunk, got %d", len(packet.Frames))
	}
	second, err := zlfReader.NextChunk()
	if err != nil {
		t.Fatalf("Failed to read second ZLF chunk: %v", err)
	}
	if _, err := second.Decode(); err == nil {
		t.Error("Garbage chunk should not decode")
	}

	// the decoded frame must land in the pcap file with its radio metadata
	pcapFiles, err := filepath.Glob(filepath.Join(outputDir, "dut-1-*.pcap"))
	if err != nil || len(pcapFiles) != 1 {
		t.Fatalf("Expected 1 pcap file, got %v (%v)", pcapFiles, err)
	}
	pcapReader, err := pcap.Open(pcapFiles[0])
	if err != nil {
		t.Fatalf("Failed to open pcap file: %v", err)
	}
	record, err := pcapReader.NextRecord()
	if err != nil {
		t.Fatalf("Failed to read pcap record: %v", err)
	}
	if record.FrequencyKHz != 868400 {
		t.Errorf("Expected frequency 868400 kHz, got %d", record.FrequencyKHz)
	}
	if record.RSS != -22.0 {
		t.Errorf("Expected RSS -22 dBm, got %f", record.RSS)
	}
}

func TestWorker_ReferenceTime(t *testing.T) {
	port := serveChunks(t, dchPacketFixture)

	source := config.SourceConfig{Name: "dut-1", Host: "127.0.0.1", Port: port}
	collector := metrics.NewCollector()
	log := logger.New(logger.Config{Level: "error"})
	worker := NewWorker(source, t.TempDir(), collector, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	before := time.Now().UnixMicro()
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	waitFor(t, 4*time.Second, func() bool {
		return collector.GetFramesDecoded() >= 1
	})
	cancel()
	<-done
	after := time.Now().UnixMicro()

	if !worker.haveReference {
		t.Fatal("Expected reference time to be locked")
	}
	// reference plus the frame timestamp is the host time at first decode
	const frameTimestamp = int64(0x0501C5299DCC)
	decodedAt := worker.referenceTime + frameTimestamp
	if decodedAt < before || decodedAt > after {
		t.Errorf("Reference time out of range: decoded at %d, window [%d, %d]", decodedAt, before, after)
	}
}

func TestManager_NoSources(t *testing.T) {
	cfg := &config.Config{Output: config.OutputConfig{Dir: t.TempDir()}}
	log := logger.New(logger.Config{Level: "error"})
	manager := NewManager(cfg, metrics.NewCollector(), log)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := manager.Run(ctx); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}
