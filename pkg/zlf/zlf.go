// Package zlf reads and writes ZLF sniffer trace files. A ZLF file is a
// fixed 2048 byte header followed by data chunks, each one wrapping a raw
// DCH packet exactly as it was read from the board.
package zlf

import (
	"encoding/binary"
	"time"
)

// HeaderSize is the fixed size of the ZLF file header
const HeaderSize = 2048

// headerVersion is the first byte of the header
const headerVersion = 0x68

// chunkHeaderSize covers the timestamp, direction and length fields
const chunkHeaderSize = 13

// APITypeZniffer tags chunks whose payload came from the sniffer interface
const APITypeZniffer = 0xF5

// Chunk direction/property byte values
const (
	DirectionRx = 0x00
	DirectionTx = 0x01
)

// The consumer of these files is a C# application which stores
// System.DateTime values: 100ns ticks since 0001-01-01 with the kind encoded
// in the top bits.
const (
	// ticksBetweenEpochs is the tick count from the .NET epoch to the Unix epoch
	ticksBetweenEpochs = 621355968000000000
	// utcKindBit marks the timestamp as UTC
	utcKindBit = uint64(1) << 63
)

// fileHeader returns the expected 2048 byte ZLF header: the version byte,
// zero padding and the two trailer bytes.
func fileHeader() []byte {
	h := make([]byte, HeaderSize)
	h[0] = headerVersion
	h[HeaderSize-2] = 0x23
	h[HeaderSize-1] = 0x12
	return h
}

// timestamp converts a host clock reading into the foreign tick format
func timestamp(t time.Time) uint64 {
	ticks := uint64(t.UnixNano()/100) | utcKindBit
	return ticks + ticksBetweenEpochs
}

// encodeChunk builds the on-disk envelope around a raw DCH packet
func encodeChunk(ts uint64, direction byte, payload []byte, apiType byte) []byte {
	chunk := make([]byte, 0, chunkHeaderSize+len(payload)+1)
	chunk = binary.LittleEndian.AppendUint64(chunk, ts)
	chunk = append(chunk, direction)
	chunk = binary.LittleEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, payload...)
	chunk = append(chunk, apiType)
	return chunk
}
