package database

import (
	"time"

	"gorm.io/gorm"
)

// CaptureSession represents one capture run against a single source
type CaptureSession struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	SourceName string    `gorm:"index;not null" json:"source_name"`
	SourceAddr string    `gorm:"size:64" json:"source_addr"`
	ZlfPath    string    `gorm:"size:255" json:"zlf_path"`
	PcapPath   string    `gorm:"size:255" json:"pcap_path"`
	StartedAt  time.Time `gorm:"index;not null" json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	ChunkCount int       `gorm:"default:0" json:"chunk_count"`
	FrameCount int       `gorm:"default:0" json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for CaptureSession
func (CaptureSession) TableName() string {
	return "capture_sessions"
}

// BeforeCreate hook to ensure StartedAt is set
func (s *CaptureSession) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	return nil
}

// FrameRecord represents one decoded radio frame
type FrameRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	SessionID    uint      `gorm:"index;not null" json:"session_id"`
	SourceName   string    `gorm:"index;size:64" json:"source_name"`
	Timestamp    int64     `gorm:"index;not null" json:"timestamp"` // host microseconds
	Direction    string    `gorm:"size:8" json:"direction"`         // rx or tx
	Region       string    `gorm:"size:16" json:"region"`
	Channel      uint8     `json:"channel"`
	FrequencyKHz uint32    `json:"frequency_khz"`
	RSSI         int16     `json:"rssi"` // dBm, 0 for transmitted frames
	Length       int       `gorm:"not null" json:"length"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for FrameRecord
func (FrameRecord) TableName() string {
	return "frame_records"
}
