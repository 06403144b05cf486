package repository

import (
	"time"

	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRecordRepository defines the interface for delivery tracking
type NotificationRecordRepository interface {
	Create(digestID, channel, status string) error
	ListByDigest(digestID string) ([]digestdomain.NotificationRecord, error)
}

// notificationRecordRepository implements NotificationRecordRepository interface
type notificationRecordRepository struct {
	db *gorm.DB
}

// NewNotificationRecordRepository creates a new instance of notificationRecordRepository
func NewNotificationRecordRepository(db *gorm.DB) NotificationRecordRepository {
	return &notificationRecordRepository{
		db: db,
	}
}

func (r *notificationRecordRepository) Create(digestID, channel, status string) error {
	record := &digestdomain.NotificationRecord{
		ID:       uuid.New().String(),
		DigestID: digestID,
		Channel:  channel,
		Status:   status,
		SentAt:   time.Now(),
	}
	return r.db.Create(record).Error
}

func (r *notificationRecordRepository) ListByDigest(digestID string) ([]digestdomain.NotificationRecord, error) {
	var records []digestdomain.NotificationRecord
	err := r.db.Where("digest_id = ?", digestID).Order("sent_at desc").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
