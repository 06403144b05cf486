package repository

import (
	"time"

	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedMessageRepository defines the interface for the dedup ledger
type ProcessedMessageRepository interface {
	// ExistingIDs returns which of the given message ids are already
	// recorded for the account.
	ExistingIDs(accountID string, messageIDs []string) (map[string]bool, error)
	// Record inserts ledger entries for the given message ids. Already
	// recorded ids are skipped via the (account_id, message_id) unique index.
	Record(accountID string, messageIDs []string) error
	CountForAccount(accountID string) (int64, error)
}

// processedMessageRepository implements ProcessedMessageRepository interface
type processedMessageRepository struct {
	db *gorm.DB
}

// NewProcessedMessageRepository creates a new instance of processedMessageRepository
func NewProcessedMessageRepository(db *gorm.DB) ProcessedMessageRepository {
	return &processedMessageRepository{
		db: db,
	}
}

func (r *processedMessageRepository) ExistingIDs(accountID string, messageIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	var records []digestdomain.ProcessedMessage
	err := r.db.Where("account_id = ? AND message_id IN ?", accountID, messageIDs).Find(&records).Error
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		result[rec.MessageID] = true
	}
	return result, nil
}

func (r *processedMessageRepository) Record(accountID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	now := time.Now()
	records := make([]digestdomain.ProcessedMessage, 0, len(messageIDs))
	for _, id := range messageIDs {
		records = append(records, digestdomain.ProcessedMessage{
			ID:          uuid.New().String(),
			AccountID:   accountID,
			MessageID:   id,
			ProcessedAt: now,
		})
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(&records).Error
}

func (r *processedMessageRepository) CountForAccount(accountID string) (int64, error) {
	var count int64
	err := r.db.Model(&digestdomain.ProcessedMessage{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
