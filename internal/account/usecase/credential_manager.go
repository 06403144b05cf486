package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountdomain "mailbrief-backend/internal/account/domain"
	"mailbrief-backend/internal/account/repository"
)

// expiryBuffer guards against tokens expiring while a request is in
// flight: a token within 5 minutes of expiry is treated as expired.
const expiryBuffer = 5 * time.Minute

// ErrNoCredentials means the account has no tokens to work with at all.
var ErrNoCredentials = errors.New("account has no stored credentials")

// TokenRefresher exchanges a refresh token for a fresh access token and
// expiry. The Gmail provider implements it against Google's token
// endpoint.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, account *accountdomain.Account) (string, time.Time, error)
}

// RevocationChecker reports whether a refresh failure means the grant
// itself was revoked (as opposed to a transient provider error).
type RevocationChecker func(err error) bool

// CredentialManager owns the token lifecycle for connected accounts.
// No other component mutates token fields.
type CredentialManager struct {
	accountRepo repository.AccountRepository
	refresher   TokenRefresher
	revoked     RevocationChecker
	now         func() time.Time
}

// NewCredentialManager creates a new CredentialManager.
func NewCredentialManager(accountRepo repository.AccountRepository, refresher TokenRefresher, revoked RevocationChecker) *CredentialManager {
	if revoked == nil {
		revoked = func(error) bool { return false }
	}
	return &CredentialManager{
		accountRepo: accountRepo,
		refresher:   refresher,
		revoked:     revoked,
		now:         time.Now,
	}
}

// GetValidCredentials returns the account with a usable access token,
// refreshing first when the stored token is expired or inside the expiry
// buffer. A nil account with an error means the account is unusable for
// this cycle; a single refresh failure does not mark the account
// permanently invalid unless the provider revoked the grant.
func (m *CredentialManager) GetValidCredentials(ctx context.Context, account *accountdomain.Account) (*accountdomain.Account, error) {
	if account == nil {
		return nil, ErrNoCredentials
	}

	// Password-auth accounts (IMAP) carry no expiring token.
	if !account.UsesOAuth() {
		if account.IMAPPassword == "" {
			return nil, ErrNoCredentials
		}
		return account, nil
	}

	if account.AccessToken == "" && account.RefreshToken == "" {
		return nil, ErrNoCredentials
	}

	if !m.tokenExpired(account) {
		return account, nil
	}

	if account.RefreshToken == "" {
		return nil, fmt.Errorf("access token expired and no refresh token stored")
	}

	accessToken, expiresAt, err := m.refresher.RefreshToken(ctx, account)
	if err != nil {
		log.Printf("[Credentials] Refresh failed for account %s: %v", account.ID, err)
		if m.revoked(err) {
			// The provider revoked the refresh token; the account needs
			// to be reconnected.
			if uErr := m.accountRepo.UpdateStatus(account.ID, accountdomain.StatusError); uErr != nil {
				log.Printf("[Credentials] Failed to mark account %s as errored: %v", account.ID, uErr)
			}
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	if err := m.accountRepo.UpdateTokens(account.ID, accessToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	account.AccessToken = accessToken
	account.TokenExpiresAt = expiresAt
	account.Status = accountdomain.StatusActive
	return account, nil
}

func (m *CredentialManager) tokenExpired(account *accountdomain.Account) bool {
	return m.now().After(account.TokenExpiresAt.Add(-expiryBuffer))
}
