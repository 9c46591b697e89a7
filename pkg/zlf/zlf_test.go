package zlf

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// raw DCHv2 packet holding one PTI Rx frame, same capture as the protocol
// package fixtures
var dchPacketFixture = []byte{
	0x5B, 0x1E, 0x00, 0x02, 0x00, 0xCC, 0x9D, 0x29, 0xC5, 0x01, 0x05, 0x2A, 0x00, 0x6C,
	0xF8, 0xDF, 0xEE, 0xBB, 0x0C, 0x02, 0x03, 0x82, 0x0A, 0x01, 0xF1, 0xF9, 0x1C, 0x01,
	0x01, 0x06, 0x51, 0x5D,
}

func TestWriterReader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.zlf")

	writer, err := Create(path)
	if err != nil {
		t.Fatalf("Failed to create ZLF file: %v", err)
	}

	chunks := [][]byte{
		dchPacketFixture,
		{0x01, 0x02, 0x03},
		dchPacketFixture,
	}
	for _, chunk := range chunks {
		if err := writer.AppendChunk(chunk); err != nil {
			t.Fatalf("Failed to append chunk: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open ZLF file: %v", err)
	}

	for i, want := range chunks {
		chunk, err := reader.NextChunk()
		if err != nil {
			t.Fatalf("Failed to read chunk %d: %v", i, err)
		}
		if !bytes.Equal(chunk.Payload, want) {
			t.Errorf("Chunk %d payload mismatch:\n got %X\nwant %X", i, chunk.Payload, want)
		}
		if chunk.Direction != DirectionRx {
			t.Errorf("Chunk %d: expected Rx direction, got 0x%02X", i, chunk.Direction)
		}
		if chunk.APIType != APITypeZniffer {
			t.Errorf("Chunk %d: expected sniffer api type, got 0x%02X", i, chunk.APIType)
		}
	}

	if _, err := reader.NextChunk(); err != io.EOF {
		t.Errorf("Expected io.EOF after last chunk, got %v", err)
	}
}

func TestChunk_Decode(t *testing.T) {
	chunk := &Chunk{Payload: dchPacketFixture, APIType: APITypeZniffer}
	packet, err := chunk.Decode()
	if err != nil {
		t.Fatalf("Failed to decode chunk: %v", err)
	}
	if len(packet.Frames) != 1 {
		t.Errorf("Expected 1 frame, got %d", len(packet.Frames))
	}

	foreign := &Chunk{Payload: dchPacketFixture, APIType: 0x01}
	if _, err := foreign.Decode(); err == nil {
		t.Error("Expected error for non sniffer chunk")
	}
}

func TestOpen_InvalidHeader(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.zlf")
	if err := os.WriteFile(short, []byte{0x68, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(short); err == nil {
		t.Error("Expected error for short file")
	}

	corrupt := filepath.Join(dir, "corrupt.zlf")
	header := fileHeader()
	header[1] = 0xFF
	if err := os.WriteFile(corrupt, header, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(corrupt); err == nil {
		t.Error("Expected error for corrupted header")
	}
}

func TestReader_TruncatedChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.zlf")

	writer, err := Create(path)
	if err != nil {
		t.Fatalf("Failed to create ZLF file: %v", err)
	}
	if err := writer.AppendChunk(dchPacketFixture); err != nil {
		t.Fatalf("Failed to append chunk: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open ZLF file: %v", err)
	}
	if _, err := reader.NextChunk(); err == nil || err == io.EOF {
		t.Errorf("Expected truncation error, got %v", err)
	}
}

func TestTimestampFormat(t *testing.T) {
	// the Unix epoch itself maps to the epoch offset with the UTC kind bit
	ts := timestamp(time.Unix(0, 0))
	if ts != uint64(ticksBetweenEpochs)|utcKindBit {
		t.Errorf("Unexpected epoch timestamp 0x%016X", ts)
	}

	// one second later adds 10^7 ticks
	later := timestamp(time.Unix(1, 0))
	if later-ts != 10_000_000 {
		t.Errorf("Expected 10^7 ticks per second, got %d", later-ts)
	}
}
