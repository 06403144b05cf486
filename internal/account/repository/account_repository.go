package repository

import (
	"errors"
	"time"

	accountdomain "mailbrief-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for connected-account operations
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	FindByID(id string) (*accountdomain.Account, error)
	FindByUserID(userID string) ([]accountdomain.Account, error)
	ListUserIDs() ([]string, error)
	Update(account *accountdomain.Account) error
	UpdateTokens(accountID, accessToken string, expiresAt time.Time) error
	UpdateStatus(accountID string, status accountdomain.AccountStatus) error
	Delete(id string) error
}

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByUserID(userID string) ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.Where("user_id = ?", userID).Order("created_at asc").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListUserIDs returns the distinct owners of all connected accounts.
// Used by the daily scheduler to fan out digest generation.
func (r *accountRepository) ListUserIDs() ([]string, error) {
	var userIDs []string
	err := r.db.Model(&accountdomain.Account{}).Distinct("user_id").Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *accountRepository) Update(account *accountdomain.Account) error {
	account.UpdatedAt = time.Now()
	return r.db.Save(account).Error
}

// UpdateTokens persists a refreshed access token and its expiry.
// Only the credential manager calls this.
func (r *accountRepository) UpdateTokens(accountID, accessToken string, expiresAt time.Time) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"token_expires_at": expiresAt,
			"status":           accountdomain.StatusActive,
			"updated_at":       time.Now(),
		}).Error
}

func (r *accountRepository) UpdateStatus(accountID string, status accountdomain.AccountStatus) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *accountRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&accountdomain.Account{}).Error
}
