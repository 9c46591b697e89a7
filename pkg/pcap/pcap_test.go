package pcap

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/zwavetools/ztrace/pkg/protocol"
	"github.com/zwavetools/ztrace/pkg/rail"
)

// raw DCHv2 packet holding one PTI Rx frame on EU channel 1 (40 kbit/s,
// 868400 kHz), raw RSSI 0x1C at appended info version 1 -> -22 dBm
var dchPacketFixture = []byte{
	0x5B, 0x1E, 0x00, 0x02, 0x00, 0xCC, 0x9D, 0x29, 0xC5, 0x01, 0x05, 0x2A, 0x00, 0x6C,
	0xF8, 0xDF, 0xEE, 0xBB, 0x0C, 0x02, 0x03, 0x82, 0x0A, 0x01, 0xF1, 0xF9, 0x1C, 0x01,
	0x01, 0x06, 0x51, 0x5D,
}

var fixtureOTAPayload = []byte{0xDF, 0xEE, 0xBB, 0x0C, 0x02, 0x03, 0x82, 0x0A, 0x01, 0xF1}

func TestWriterReader_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.pcap")

	packet, err := protocol.ParseDchPacket(dchPacketFixture)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}

	writer, err := Create(path)
	if err != nil {
		t.Fatalf("Failed to create pcap file: %v", err)
	}

	const referenceTime = int64(1_700_000_000_000_000) // microseconds
	if err := writer.Append(packet, referenceTime); err != nil {
		t.Fatalf("Failed to append packet: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open pcap file: %v", err)
	}

	record, err := reader.NextRecord()
	if err != nil {
		t.Fatalf("Failed to read record: %v", err)
	}

	wantTime := referenceTime + int64(packet.Frames[0].TimestampMicros())
	if record.TsSec != uint32(wantTime/1_000_000) {
		t.Errorf("Expected ts_sec %d, got %d", wantTime/1_000_000, record.TsSec)
	}
	if record.TsUsec != uint32(wantTime%1_000_000) {
		t.Errorf("Expected ts_usec %d, got %d", wantTime%1_000_000, record.TsUsec)
	}
	if record.FCSType != FCSType8Bit {
		t.Errorf("Expected 8 bit FCS for R2, got %d", record.FCSType)
	}
	if record.RSS != -22.0 {
		t.Errorf("Expected RSS -22 dBm, got %f", record.RSS)
	}
	if record.Region != RegionEU {
		t.Errorf("Expected TAP region EU, got %d", record.Region)
	}
	if record.DataRate != DataRateR2 {
		t.Errorf("Expected data rate R2, got %d", record.DataRate)
	}
	if record.FrequencyKHz != 868400 {
		t.Errorf("Expected frequency 868400 kHz, got %d", record.FrequencyKHz)
	}
	if !bytes.Equal(record.Payload, fixtureOTAPayload) {
		t.Errorf("Payload mismatch:\n got %X\nwant %X", record.Payload, fixtureOTAPayload)
	}

	if _, err := reader.NextRecord(); err != io.EOF {
		t.Errorf("Expected io.EOF after last record, got %v", err)
	}
}

func TestFileHeader_Layout(t *testing.T) {
	header := fileHeader()

	if len(header) != fileHeaderSize {
		t.Fatalf("Expected %d byte header, got %d", fileHeaderSize, len(header))
	}
	if got := binary.LittleEndian.Uint32(header[0:4]); got != 0xA1B2C3D4 {
		t.Errorf("Unexpected magic 0x%08X", got)
	}
	if got := binary.LittleEndian.Uint32(header[20:24]); got != 297 {
		t.Errorf("Unexpected link type %d", got)
	}
}

func TestWriter_UnknownChannel(t *testing.T) {
	packet, err := protocol.ParseDchPacket(dchPacketFixture)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	// EU is a 3 channel region, slot 3 is unused
	packet.Frames[0].Payload.Info.RadioInfo.ChannelNumber = 3

	writer, err := Create(filepath.Join(t.TempDir(), "trace.pcap"))
	if err != nil {
		t.Fatalf("Failed to create pcap file: %v", err)
	}
	defer writer.Close()

	if err := writer.Append(packet, 0); err == nil {
		t.Error("Expected error for unused channel slot")
	}
}

func TestOpen_InvalidHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.pcap")
	if err := os.WriteFile(path, make([]byte, fileHeaderSize), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Expected error for non pcap file")
	}
}

func TestReader_UnknownTLVType(t *testing.T) {
	// one record with a single unknown TLV (type 9)
	record := make([]byte, 0)
	record = binary.LittleEndian.AppendUint32(record, 0)  // ts_sec
	record = binary.LittleEndian.AppendUint32(record, 0)  // ts_usec
	record = binary.LittleEndian.AppendUint32(record, 12) // caplen: TAP header (4) + TLV (8)
	record = binary.LittleEndian.AppendUint32(record, 12) // origlen
	record = append(record, tapVersion, 0, 2, 0)          // TAP header, 2 TLV words
	record = append(record, 9, 0, 1, 0, 0, 0, 0, 0)       // unknown TLV type 9

	path := filepath.Join(t.TempDir(), "trace.pcap")
	data := append(fileHeader(), record...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	reader, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open pcap file: %v", err)
	}
	if _, err := reader.NextRecord(); err == nil {
		t.Error("Expected error for unknown TLV type")
	}
}

func TestDataRateMapping(t *testing.T) {
	tests := []struct {
		baud rail.Baud
		rate DataRate
		fcs  byte
	}{
		{rail.Baud9600, DataRateR1, FCSType8Bit},
		{rail.Baud40K, DataRateR2, FCSType8Bit},
		{rail.Baud100K, DataRateR3, FCSType16Bit},
		{rail.Baud100KLR, DataRateR3, FCSType16Bit},
	}

	for _, tt := range tests {
		if got := railBaudToDataRate[tt.baud]; got != tt.rate {
			t.Errorf("Baud %d: expected data rate %d, got %d", tt.baud, tt.rate, got)
		}
		if got := fcsForDataRate(tt.rate); got != tt.fcs {
			t.Errorf("Rate %d: expected FCS type %d, got %d", tt.rate, tt.fcs, got)
		}
	}
}

func TestRegionMapping_CoversAllRailRegions(t *testing.T) {
	for id := range rail.Regions {
		if _, ok := railRegionToTap[id]; !ok {
			t.Errorf("RAIL region %s has no TAP mapping", id.Name())
		}
	}
}
