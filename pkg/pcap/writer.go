package pcap

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/zwavetools/ztrace/pkg/protocol"
	"github.com/zwavetools/ztrace/pkg/rail"
)

// fileHeader returns the 24 byte pcap file header
func fileHeader() []byte {
	h := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint32(h[0:4], magicNumber)
	binary.LittleEndian.PutUint16(h[4:6], versionMajor)
	binary.LittleEndian.PutUint16(h[6:8], versionMinor)
	// reserved fields at 8:16 stay zero
	binary.LittleEndian.PutUint32(h[16:20], snapLen)
	binary.LittleEndian.PutUint32(h[20:24], linkType)
	return h
}

// Writer appends Z-Wave TAP packet records to a pcap file
type Writer struct {
	file *os.File
}

// Create creates a new pcap file, overwriting any existing file at path,
// and writes the capture header.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file: %w", err)
	}

	if _, err := file.Write(fileHeader()); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}

	return &Writer{file: file}, nil
}

// Append writes one packet record per frame of the DCH packet. The
// reference time is the host-vs-board clock offset in microseconds, so
// referenceTime plus the frame timestamp is an absolute wall clock time.
func (w *Writer) Append(packet *protocol.DchPacket, referenceTime int64) error {
	if packet == nil {
		return nil
	}

	for i, frame := range packet.Frames {
		record, err := encodeRecord(frame, referenceTime)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		if _, err := w.file.Write(record); err != nil {
			return fmt.Errorf("failed to append pcap record: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file
func (w *Writer) Close() error {
	return w.file.Close()
}

// encodeRecord builds the full packet record for one PTI frame: record
// header, TAP header, the three TLVs and the raw OTA payload.
func encodeRecord(frame *protocol.DchFrame, referenceTime int64) ([]byte, error) {
	info := &frame.Payload.Info

	// a region/channel pair missing from the RAIL tables means the frame
	// is malformed, refuse to emit wrong bytes
	regionID := rail.RegionID(info.RadioConfig.RegionID)
	channel, err := rail.Lookup(regionID, info.RadioInfo.ChannelNumber)
	if err != nil {
		return nil, err
	}

	tapRegion, ok := railRegionToTap[regionID]
	if !ok {
		return nil, fmt.Errorf("RAIL region %s has no TAP code", regionID.Name())
	}
	dataRate := railBaudToDataRate[channel.Baud]

	payload := frame.Payload.Payload
	packetLength := tapTotalSize + len(payload)

	current := referenceTime + int64(frame.TimestampMicros())
	seconds := current / 1_000_000
	microseconds := current % 1_000_000

	buf := make([]byte, 0, recordHeaderSize+packetLength)

	// packet record header, captured and original length are always equal
	buf = binary.LittleEndian.AppendUint32(buf, uint32(seconds))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(microseconds))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(packetLength))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(packetLength))

	// TAP header
	buf = append(buf, tapVersion, 0)
	buf = binary.LittleEndian.AppendUint16(buf, tapTLVWords)

	// FCS TLV
	buf = binary.LittleEndian.AppendUint16(buf, tlvTypeFCS)
	buf = binary.LittleEndian.AppendUint16(buf, 1)
	buf = append(buf, fcsForDataRate(dataRate), 0, 0, 0)

	// RSS TLV
	buf = binary.LittleEndian.AppendUint16(buf, tlvTypeRSS)
	buf = binary.LittleEndian.AppendUint16(buf, 4)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(info.RSSIValue())))

	// RF info TLV
	buf = binary.LittleEndian.AppendUint16(buf, tlvTypeRFInfo)
	buf = binary.LittleEndian.AppendUint16(buf, 8)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(tapRegion))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(dataRate))
	buf = binary.LittleEndian.AppendUint32(buf, channel.FrequencyKHz)

	buf = append(buf, payload...)

	return buf, nil
}
