package database

import (
	"time"

	"gorm.io/gorm"
)

// SessionRepository handles capture session database operations
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create adds a new capture session record
func (r *SessionRepository) Create(session *CaptureSession) error {
	return r.db.Create(session).Error
}

// End closes out a session with its final counters
func (r *SessionRepository) End(id uint, chunkCount, frameCount int) error {
	return r.db.Model(&CaptureSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ended_at":    time.Now(),
			"chunk_count": chunkCount,
			"frame_count": frameCount,
		}).Error
}

// GetRecent retrieves the most recent N sessions
func (r *SessionRepository) GetRecent(limit int) ([]CaptureSession, error) {
	var sessions []CaptureSession
	err := r.db.Order("started_at DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// GetBySource retrieves sessions for a specific source
func (r *SessionRepository) GetBySource(sourceName string, limit int) ([]CaptureSession, error) {
	var sessions []CaptureSession
	err := r.db.Where("source_name = ?", sourceName).
		Order("started_at DESC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// FrameRepository handles frame record database operations
type FrameRepository struct {
	db *gorm.DB
}

// NewFrameRepository creates a new frame repository
func NewFrameRepository(db *gorm.DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// Create adds a new frame record
func (r *FrameRepository) Create(frame *FrameRecord) error {
	return r.db.Create(frame).Error
}

// CreateBatch adds frame records in a single insert
func (r *FrameRepository) CreateBatch(frames []FrameRecord) error {
	if len(frames) == 0 {
		return nil
	}
	return r.db.Create(&frames).Error
}

// GetRecent retrieves the most recent N frames
func (r *FrameRepository) GetRecent(limit int) ([]FrameRecord, error) {
	var frames []FrameRecord
	err := r.db.Order("timestamp DESC").Limit(limit).Find(&frames).Error
	return frames, err
}

// GetRecentPaginated retrieves frames with pagination
func (r *FrameRepository) GetRecentPaginated(page, perPage int) ([]FrameRecord, int64, error) {
	var frames []FrameRecord
	var total int64

	if err := r.db.Model(&FrameRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	err := r.db.Order("timestamp DESC").
		Offset(offset).
		Limit(perPage).
		Find(&frames).Error

	return frames, total, err
}

// GetBySession retrieves frames for a specific capture session
func (r *FrameRepository) GetBySession(sessionID uint, limit int) ([]FrameRecord, error) {
	var frames []FrameRecord
	err := r.db.Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&frames).Error
	return frames, err
}

// CountBySession returns the number of frames in a session
func (r *FrameRepository) CountBySession(sessionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&FrameRecord{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan deletes frames recorded before the specified time
func (r *FrameRepository) DeleteOlderThan(before time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", before).Delete(&FrameRecord{})
	return result.RowsAffected, result.Error
}
