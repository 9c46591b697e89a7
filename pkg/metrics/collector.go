package metrics

import (
	"sync"
)

// Collector collects ztrace capture metrics
type Collector struct {
	mu sync.RWMutex

	// Source metrics
	totalSources  uint64
	activeSources map[string]bool

	// Debug channel metrics
	chunksReceived uint64
	bytesReceived  uint64

	// Frame metrics
	framesDecoded uint64
	framesDropped uint64

	// Output metrics
	zlfChunksWritten   uint64
	pcapRecordsWritten uint64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		activeSources: make(map[string]bool),
	}
}

// SourceConnected records a capture source connection
func (c *Collector) SourceConnected(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalSources++
	c.activeSources[name] = true
}

// SourceDisconnected records a capture source disconnection
func (c *Collector) SourceDisconnected(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.activeSources, name)
}

// ChunkReceived records one debug channel read and its size
func (c *Collector) ChunkReceived(bytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chunksReceived++
	c.bytesReceived += bytes
}

// FramesDecoded records successfully decoded radio frames
func (c *Collector) FramesDecoded(count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.framesDecoded += count
}

// ChunkDropped records a chunk that failed to decode
func (c *Collector) ChunkDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.framesDropped++
}

// ZlfChunkWritten records a chunk appended to a ZLF trace file
func (c *Collector) ZlfChunkWritten() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.zlfChunksWritten++
}

// PcapRecordsWritten records packet records appended to a pcap file
func (c *Collector) PcapRecordsWritten(count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pcapRecordsWritten += count
}

// Reset clears the active source set (useful for testing)
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeSources = make(map[string]bool)
}

// Getters for metrics

// GetTotalSources returns total source connections
func (c *Collector) GetTotalSources() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalSources
}

// GetActiveSources returns the number of currently connected sources
func (c *Collector) GetActiveSources() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.activeSources)
}

// GetChunksReceived returns total chunks read from debug channels
func (c *Collector) GetChunksReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chunksReceived
}

// GetBytesReceived returns total bytes read from debug channels
func (c *Collector) GetBytesReceived() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytesReceived
}

// GetFramesDecoded returns total decoded radio frames
func (c *Collector) GetFramesDecoded() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.framesDecoded
}

// GetFramesDropped returns total chunks dropped on decode errors
func (c *Collector) GetFramesDropped() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.framesDropped
}

// GetZlfChunksWritten returns total chunks written to ZLF files
func (c *Collector) GetZlfChunksWritten() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.zlfChunksWritten
}

// GetPcapRecordsWritten returns total records written to pcap files
func (c *Collector) GetPcapRecordsWritten() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pcapRecordsWritten
}
