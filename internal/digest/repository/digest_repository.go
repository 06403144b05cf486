package repository

import (
	"errors"
	"time"

	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DigestRepository defines the interface for digest persistence
type DigestRepository interface {
	// CreateIfAbsent inserts the digest unless one already exists for the
	// same (account, date). With force it replaces the existing row.
	// Returns the stored digest and whether a new one was created.
	CreateIfAbsent(digest *digestdomain.Digest, force bool) (bool, *digestdomain.Digest, error)
	FindByID(id string) (*digestdomain.Digest, error)
	FindByAccountAndDate(accountID, date string) (*digestdomain.Digest, error)
	LatestForAccount(accountID string) (*digestdomain.Digest, error)
	ListByUser(userID string, limit int) ([]digestdomain.Digest, error)
}

// digestRepository implements DigestRepository interface
type digestRepository struct {
	db *gorm.DB
}

// NewDigestRepository creates a new instance of digestRepository
func NewDigestRepository(db *gorm.DB) DigestRepository {
	return &digestRepository{
		db: db,
	}
}

// CreateIfAbsent relies on the (account_id, date_processed) unique index,
// so the idempotency check is a single atomic insert rather than a racy
// read-then-write.
func (r *digestRepository) CreateIfAbsent(digest *digestdomain.Digest, force bool) (bool, *digestdomain.Digest, error) {
	if digest.ID == "" {
		digest.ID = uuid.New().String()
	}
	if digest.CreatedAt.IsZero() {
		digest.CreatedAt = time.Now()
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "date_processed"}},
		DoNothing: true,
	}
	if force {
		// Regenerate: the newer digest supersedes the stored one.
		conflict = clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "date_processed"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"id", "user_id", "overview", "insight", "important_items",
				"status", "suggestions", "email_count", "created_at",
			}),
		}
	}

	result := r.db.Clauses(conflict).Create(digest)
	if result.Error != nil {
		return false, nil, result.Error
	}

	if result.RowsAffected == 0 {
		existing, err := r.FindByAccountAndDate(digest.AccountID, digest.DateProcessed)
		if err != nil {
			return false, nil, err
		}
		return false, existing, nil
	}

	return true, digest, nil
}

func (r *digestRepository) FindByID(id string) (*digestdomain.Digest, error) {
	var digest digestdomain.Digest
	err := r.db.Where("id = ?", id).First(&digest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &digest, nil
}

func (r *digestRepository) FindByAccountAndDate(accountID, date string) (*digestdomain.Digest, error) {
	var digest digestdomain.Digest
	err := r.db.Where("account_id = ? AND date_processed = ?", accountID, date).
		Order("created_at desc").
		First(&digest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &digest, nil
}

func (r *digestRepository) LatestForAccount(accountID string) (*digestdomain.Digest, error) {
	var digest digestdomain.Digest
	err := r.db.Where("account_id = ?", accountID).
		Order("date_processed desc, created_at desc").
		First(&digest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &digest, nil
}

func (r *digestRepository) ListByUser(userID string, limit int) ([]digestdomain.Digest, error) {
	if limit <= 0 {
		limit = 30
	}
	var digests []digestdomain.Digest
	err := r.db.Where("user_id = ?", userID).
		Order("date_processed desc, created_at desc").
		Limit(limit).
		Find(&digests).Error
	if err != nil {
		return nil, err
	}
	return digests, nil
}
