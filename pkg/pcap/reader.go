package pcap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Record is one decoded Z-Wave TAP packet record
type Record struct {
	TsSec        uint32
	TsUsec       uint32
	FCSType      byte
	RSS          float32
	Region       Region
	DataRate     DataRate
	FrequencyKHz uint32
	Payload      []byte // raw OTA bytes
}

// Reader iterates over the packet records of a pcap file written by this
// package. Forward only, not restartable.
type Reader struct {
	data   []byte
	offset int
}

// Open reads a pcap file and validates the capture header
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}

	if len(data) < fileHeaderSize || !bytes.Equal(data[:fileHeaderSize], fileHeader()) {
		return nil, fmt.Errorf("%s is not a Z-Wave TAP pcap file", path)
	}

	return &Reader{data: data[fileHeaderSize:]}, nil
}

// NextRecord returns the next packet record, or io.EOF once the file is
// exhausted.
func (r *Reader) NextRecord() (*Record, error) {
	if r.offset >= len(r.data) {
		return nil, io.EOF
	}

	if len(r.data)-r.offset < recordHeaderSize {
		return nil, fmt.Errorf("truncated pcap record header at offset %d", r.offset)
	}

	hdr := r.data[r.offset : r.offset+recordHeaderSize]
	tsSec := binary.LittleEndian.Uint32(hdr[0:4])
	tsUsec := binary.LittleEndian.Uint32(hdr[4:8])
	capturedLength := int(binary.LittleEndian.Uint32(hdr[8:12]))
	originalLength := int(binary.LittleEndian.Uint32(hdr[12:16]))

	// truncated captures are never produced, a mismatch means corruption
	if capturedLength != originalLength {
		return nil, fmt.Errorf("pcap record captured length %d != original length %d", capturedLength, originalLength)
	}

	if len(r.data)-r.offset-recordHeaderSize < capturedLength {
		return nil, fmt.Errorf("truncated pcap record at offset %d", r.offset)
	}

	packet := r.data[r.offset+recordHeaderSize : r.offset+recordHeaderSize+capturedLength]
	r.offset += recordHeaderSize + capturedLength

	record := &Record{TsSec: tsSec, TsUsec: tsUsec}
	if err := record.parsePacket(packet); err != nil {
		return nil, err
	}
	return record, nil
}

// parsePacket decodes the TAP header, walks the TLV section and keeps the
// remainder as the OTA payload.
func (record *Record) parsePacket(packet []byte) error {
	if len(packet) < tapHeaderSize {
		return fmt.Errorf("truncated TAP header")
	}
	if packet[0] != tapVersion {
		return fmt.Errorf("unsupported TAP version %d", packet[0])
	}
	tlvWords := int(binary.LittleEndian.Uint16(packet[2:4]))

	tlvSize := tlvWords * 4
	if len(packet)-tapHeaderSize < tlvSize {
		return fmt.Errorf("truncated TAP TLV section")
	}
	section := packet[tapHeaderSize : tapHeaderSize+tlvSize]

	for pos := 0; pos < len(section); {
		if len(section)-pos < 4 {
			return fmt.Errorf("truncated TAP TLV at offset %d", pos)
		}
		tlvType := binary.LittleEndian.Uint16(section[pos : pos+2])
		tlvLength := int(binary.LittleEndian.Uint16(section[pos+2 : pos+4]))

		// values are padded to 32 bit word boundaries
		valueSize := (tlvLength + 3) &^ 3
		if len(section)-pos-4 < valueSize {
			return fmt.Errorf("truncated TAP TLV value at offset %d", pos)
		}
		value := section[pos+4 : pos+4+tlvLength]

		switch tlvType {
		case tlvTypeFCS:
			if tlvLength != 1 {
				return fmt.Errorf("unexpected FCS TLV length %d", tlvLength)
			}
			record.FCSType = value[0]
		case tlvTypeRSS:
			if tlvLength != 4 {
				return fmt.Errorf("unexpected RSS TLV length %d", tlvLength)
			}
			record.RSS = math.Float32frombits(binary.LittleEndian.Uint32(value))
		case tlvTypeRFInfo:
			if tlvLength != 8 {
				return fmt.Errorf("unexpected RF info TLV length %d", tlvLength)
			}
			record.Region = Region(binary.LittleEndian.Uint16(value[0:2]))
			record.DataRate = DataRate(binary.LittleEndian.Uint16(value[2:4]))
			record.FrequencyKHz = binary.LittleEndian.Uint32(value[4:8])
		default:
			return fmt.Errorf("unknown TAP TLV type %d", tlvType)
		}

		pos += 4 + valueSize
	}

	record.Payload = make([]byte, len(packet)-tapHeaderSize-tlvSize)
	copy(record.Payload, packet[tapHeaderSize+tlvSize:])
	return nil
}
