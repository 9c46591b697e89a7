package protocol

import (
	"encoding/binary"
	"fmt"
)

// DchHeader is the version-dependent portion of a DCH frame header. Keeping
// the two layouts as separate types makes states like "flags on a v2 frame"
// unrepresentable.
type DchHeader interface {
	Version() uint16
	FrameType() uint16
	SequenceNumber() uint16

	// size is the header size in bytes after the common prefix
	size() int
	encode(buf []byte)
}

// DchV2Header is the DCHv2 frame header: 48-bit timestamp, type, 8-bit
// sequence number.
type DchV2Header struct {
	Timestamp uint64 // microseconds since first boot of the board, 48 bits on the wire
	Type      uint16
	Sequence  uint8
}

// Version returns the DCH protocol version
func (h *DchV2Header) Version() uint16 { return DchVersion2 }

// FrameType returns the DCH frame type discriminator
func (h *DchV2Header) FrameType() uint16 { return h.Type }

// SequenceNumber returns the frame sequence number
func (h *DchV2Header) SequenceNumber() uint16 { return uint16(h.Sequence) }

func (h *DchV2Header) size() int { return 9 }

func (h *DchV2Header) encode(buf []byte) {
	buf[0] = byte(h.Timestamp)
	buf[1] = byte(h.Timestamp >> 8)
	buf[2] = byte(h.Timestamp >> 16)
	buf[3] = byte(h.Timestamp >> 24)
	buf[4] = byte(h.Timestamp >> 32)
	buf[5] = byte(h.Timestamp >> 40)
	binary.LittleEndian.PutUint16(buf[6:8], h.Type)
	buf[8] = h.Sequence
}

// DchV3Header is the DCHv3 frame header: 64-bit timestamp, type, flags,
// 16-bit sequence number.
type DchV3Header struct {
	Timestamp uint64 // nanoseconds since first boot of the board
	Type      uint16
	Flags     uint32
	Sequence  uint16
}

// Version returns the DCH protocol version
func (h *DchV3Header) Version() uint16 { return DchVersion3 }

// FrameType returns the DCH frame type discriminator
func (h *DchV3Header) FrameType() uint16 { return h.Type }

// SequenceNumber returns the frame sequence number
func (h *DchV3Header) SequenceNumber() uint16 { return h.Sequence }

func (h *DchV3Header) size() int { return 16 }

func (h *DchV3Header) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], h.Timestamp)
	binary.LittleEndian.PutUint16(buf[8:10], h.Type)
	binary.LittleEndian.PutUint32(buf[10:14], h.Flags)
	binary.LittleEndian.PutUint16(buf[14:16], h.Sequence)
}

// DchFrame is one debug channel frame carrying a PTI payload
type DchFrame struct {
	// Length is the declared length from the wire. It does not cover the
	// start and stop symbols, so the full frame occupies Length+2 bytes.
	Length  uint16
	Header  DchHeader
	Payload *PtiFrame
}

// WireSize returns the number of bytes the frame occupies on the wire
func (f *DchFrame) WireSize() int {
	return int(f.Length) + 2 // + 2 for the start and stop symbols
}

// TimestampMicros returns the frame timestamp in microseconds since board
// boot regardless of the header version. It panics on an unknown header
// type: Parse only ever produces v2 or v3 headers, so reaching the default
// branch is a programming error.
func (f *DchFrame) TimestampMicros() uint64 {
	switch h := f.Header.(type) {
	case *DchV2Header:
		return h.Timestamp
	case *DchV3Header:
		return h.Timestamp / 1000
	default:
		panic(fmt.Sprintf("protocol: timestamp conversion for unsupported DCH header %T", f.Header))
	}
}

// TimestampNanos returns the frame timestamp in nanoseconds since board boot
func (f *DchFrame) TimestampNanos() uint64 {
	switch h := f.Header.(type) {
	case *DchV2Header:
		return h.Timestamp * 1000
	case *DchV3Header:
		return h.Timestamp
	default:
		panic(fmt.Sprintf("protocol: timestamp conversion for unsupported DCH header %T", f.Header))
	}
}

// Parse parses a DCH frame from raw bytes. The buffer may extend past the
// frame: the declared length decides where the frame stops.
func (f *DchFrame) Parse(data []byte) error {
	if len(data) < DchCommonPrefixSize {
		return fmt.Errorf("DCH frame too short: %d bytes", len(data))
	}

	if data[0] != DchStartSymbol {
		return fmt.Errorf("invalid DCH start symbol: 0x%02X", data[0])
	}

	length := binary.LittleEndian.Uint16(data[1:3])
	version := binary.LittleEndian.Uint16(data[3:5])

	// the declared length does not count the start and stop symbols
	if len(data) < int(length)+2 {
		return fmt.Errorf("DCH frame length mismatch: declared %d, buffer %d", length, len(data))
	}

	stopIndex := int(length) + 1
	if data[stopIndex] != DchStopSymbol {
		return fmt.Errorf("invalid DCH stop symbol: 0x%02X", data[stopIndex])
	}

	var header DchHeader
	index := DchCommonPrefixSize

	switch version {
	case DchVersion2:
		if int(length) <= DchV2HeaderSize {
			return fmt.Errorf("DCHv2 frame carries no payload")
		}
		header = &DchV2Header{
			Timestamp: uint64(data[index]) |
				uint64(data[index+1])<<8 |
				uint64(data[index+2])<<16 |
				uint64(data[index+3])<<24 |
				uint64(data[index+4])<<32 |
				uint64(data[index+5])<<40,
			Type:     binary.LittleEndian.Uint16(data[index+6 : index+8]),
			Sequence: data[index+8],
		}
		index += 9

	case DchVersion3:
		if int(length) <= DchV3HeaderSize {
			return fmt.Errorf("DCHv3 frame carries no payload")
		}
		header = &DchV3Header{
			Timestamp: binary.LittleEndian.Uint64(data[index : index+8]),
			Type:      binary.LittleEndian.Uint16(data[index+8 : index+10]),
			Flags:     binary.LittleEndian.Uint32(data[index+10 : index+14]),
			Sequence:  binary.LittleEndian.Uint16(data[index+14 : index+16]),
		}
		index += 16

	default:
		return fmt.Errorf("unsupported DCH version: %d", version)
	}

	switch header.FrameType() {
	case DchTypePTITx, DchTypePTIRx, DchTypePTIOther:
	default:
		return fmt.Errorf("DCH frame type 0x%04X is not PTI", header.FrameType())
	}

	payload, err := ParsePtiFrame(data[index:stopIndex])
	if err != nil {
		return fmt.Errorf("PTI payload: %w", err)
	}

	f.Length = length
	f.Header = header
	f.Payload = payload

	return nil
}

// Encode encodes the DCH frame to raw bytes
func (f *DchFrame) Encode() ([]byte, error) {
	payload, err := f.Payload.Encode()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, DchCommonPrefixSize+f.Header.size())
	buf[0] = DchStartSymbol
	binary.LittleEndian.PutUint16(buf[1:3], f.Length)
	binary.LittleEndian.PutUint16(buf[3:5], f.Header.Version())
	f.Header.encode(buf[DchCommonPrefixSize:])

	buf = append(buf, payload...)
	buf = append(buf, DchStopSymbol)

	return buf, nil
}

// ParseDchFrame parses a DCH frame from raw bytes
func ParseDchFrame(data []byte) (*DchFrame, error) {
	f := &DchFrame{}
	if err := f.Parse(data); err != nil {
		return nil, err
	}
	return f, nil
}
