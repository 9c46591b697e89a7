package protocol

import (
	"fmt"
)

// DchPacket is one read from the debug channel transport. A single TCP read
// from the DCH port can contain several concatenated DCH frames.
type DchPacket struct {
	Frames []*DchFrame
}

// Parse parses a DCH packet from raw bytes. If any inner frame fails to
// parse the whole packet is rejected: a partially parsed read would leave
// the stream position ambiguous.
func (p *DchPacket) Parse(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty DCH packet")
	}

	if data[0] != DchStartSymbol || data[len(data)-1] != DchStopSymbol {
		return fmt.Errorf("buffer is not a DCH packet")
	}

	var frames []*DchFrame
	offset := 0
	for offset < len(data) {
		frame, err := ParseDchFrame(data[offset:])
		if err != nil {
			return fmt.Errorf("DCH frame %d at offset %d: %w", len(frames), offset, err)
		}
		frames = append(frames, frame)
		offset += frame.WireSize()
	}

	p.Frames = frames
	return nil
}

// Encode encodes the DCH packet to raw bytes
func (p *DchPacket) Encode() ([]byte, error) {
	var buf []byte
	for _, frame := range p.Frames {
		data, err := frame.Encode()
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
	}
	return buf, nil
}

// ParseDchPacket parses a DCH packet from raw bytes
func ParseDchPacket(data []byte) (*DchPacket, error) {
	p := &DchPacket{}
	if err := p.Parse(data); err != nil {
		return nil, err
	}
	return p, nil
}
