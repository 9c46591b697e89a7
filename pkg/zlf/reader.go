package zlf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/zwavetools/ztrace/pkg/protocol"
)

// Chunk is one decoded ZLF data chunk envelope
type Chunk struct {
	Timestamp uint64 // foreign epoch ticks, as stored on disk
	Direction byte
	Payload   []byte // raw DCH packet bytes
	APIType   byte
}

// Decode parses the chunk payload as a DCH packet. Only sniffer tagged
// chunks carry DCH traffic.
func (c *Chunk) Decode() (*protocol.DchPacket, error) {
	if c.APIType != APITypeZniffer {
		return nil, fmt.Errorf("chunk api type 0x%02X is not sniffer traffic", c.APIType)
	}
	return protocol.ParseDchPacket(c.Payload)
}

// Reader iterates over the chunks of a ZLF file. It is forward only and not
// restartable, mirroring how trace files are consumed.
type Reader struct {
	data   []byte
	offset int
}

// Open reads a ZLF file and validates its header
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZLF file: %w", err)
	}

	if len(data) < HeaderSize || !bytes.Equal(data[:HeaderSize], fileHeader()) {
		return nil, fmt.Errorf("%s is not a ZLF file", path)
	}

	return &Reader{data: data[HeaderSize:]}, nil
}

// NextChunk returns the next data chunk, or io.EOF once the file is
// exhausted. A chunk that extends past the end of the file means the capture
// was cut mid-write and is reported as an error.
func (r *Reader) NextChunk() (*Chunk, error) {
	if r.offset >= len(r.data) {
		return nil, io.EOF
	}

	if len(r.data)-r.offset < chunkHeaderSize+1 {
		return nil, fmt.Errorf("truncated ZLF chunk at offset %d", r.offset)
	}

	ts := binary.LittleEndian.Uint64(r.data[r.offset : r.offset+8])
	direction := r.data[r.offset+8]
	length := int(binary.LittleEndian.Uint32(r.data[r.offset+9 : r.offset+13]))

	if len(r.data)-r.offset < chunkHeaderSize+length+1 {
		return nil, fmt.Errorf("truncated ZLF chunk at offset %d", r.offset)
	}

	payload := make([]byte, length)
	copy(payload, r.data[r.offset+chunkHeaderSize:])
	apiType := r.data[r.offset+chunkHeaderSize+length]

	r.offset += chunkHeaderSize + length + 1

	return &Chunk{
		Timestamp: ts,
		Direction: direction,
		Payload:   payload,
		APIType:   apiType,
	}, nil
}
