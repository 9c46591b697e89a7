package zlf

import (
	"fmt"
	"os"
	"time"
)

// Writer appends data chunks to a ZLF file. It is append only: the header is
// written once at creation and earlier bytes are never touched again.
type Writer struct {
	file *os.File
	now  func() time.Time
}

// Create creates a new ZLF file, overwriting any existing file at path, and
// writes the fixed header.
func Create(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create ZLF file: %w", err)
	}

	if _, err := file.Write(fileHeader()); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write ZLF header: %w", err)
	}

	return &Writer{file: file, now: time.Now}, nil
}

// AppendChunk appends one raw DCH packet, stamped with the current host
// time. The direction byte is always Rx: the sniffer only ever reports
// received traffic to us.
func (w *Writer) AppendChunk(raw []byte) error {
	chunk := encodeChunk(timestamp(w.now()), DirectionRx, raw, APITypeZniffer)
	if _, err := w.file.Write(chunk); err != nil {
		return fmt.Errorf("failed to append ZLF chunk: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (w *Writer) Close() error {
	return w.file.Close()
}
