package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	accountusecase "mailbrief-backend/internal/account/usecase"
	digestdomain "mailbrief-backend/internal/digest/domain"
	"mailbrief-backend/internal/digest/repository"

	accountdomain "mailbrief-backend/internal/account/domain"
	accountrepo "mailbrief-backend/internal/account/repository"
)

// digestUsecase implements DigestUsecase
type digestUsecase struct {
	accountRepo accountrepo.AccountRepository
	digestRepo  repository.DigestRepository
	credentials *accountusecase.CredentialManager
	ledger      *Ledger
	summarizer  *Summarizer
	providers   map[string]digestdomain.MessageProvider
	now         func() time.Time
}

// NewDigestUsecase creates a new instance of digestUsecase. Providers are
// keyed by account provider name ("google", "imap").
func NewDigestUsecase(
	accountRepo accountrepo.AccountRepository,
	digestRepo repository.DigestRepository,
	credentials *accountusecase.CredentialManager,
	ledger *Ledger,
	summarizer *Summarizer,
	providers map[string]digestdomain.MessageProvider,
) DigestUsecase {
	return &digestUsecase{
		accountRepo: accountRepo,
		digestRepo:  digestRepo,
		credentials: credentials,
		ledger:      ledger,
		summarizer:  summarizer,
		providers:   providers,
		now:         time.Now,
	}
}

// GenerateAccountSummary runs the full pipeline for one account:
// credentials -> fetch -> dedup filter -> summarize -> persist -> record
// ledger, strictly in that order. Any stage failure short-circuits the
// remaining stages for this account only.
func (u *digestUsecase) GenerateAccountSummary(ctx context.Context, userID, accountID string, window digestdomain.FetchWindow, force bool) AccountSummaryResult {
	account, err := u.accountRepo.FindByID(accountID)
	if err != nil {
		return failedResult(accountID, "", &digestdomain.PersistenceError{Op: "load account", Err: err})
	}
	if account == nil || account.UserID != userID {
		return failedResult(accountID, "", fmt.Errorf("account not found"))
	}

	today := u.now()
	dateKey := digestdomain.DateKey(today)

	// Idempotency short-circuit: skip the fetch entirely when today's
	// digest already exists and no regenerate was requested.
	if !force {
		existing, err := u.digestRepo.FindByAccountAndDate(accountID, dateKey)
		if err != nil {
			return failedResult(accountID, account.Email, &digestdomain.PersistenceError{Op: "check existing digest", Err: err})
		}
		if existing != nil {
			return AccountSummaryResult{
				AccountID:     accountID,
				Email:         account.Email,
				Success:       true,
				AlreadyExists: true,
				Message:       "digest already exists for today",
				Digest:        existing,
			}
		}
	}

	account, err = u.credentials.GetValidCredentials(ctx, account)
	if err != nil {
		return failedResult(accountID, "", &digestdomain.CredentialError{AccountID: accountID, Err: err})
	}

	provider, ok := u.providers[account.Provider]
	if !ok {
		return failedResult(accountID, account.Email, fmt.Errorf("no message provider for %q", account.Provider))
	}

	fetched, err := provider.FetchMessages(ctx, account, window)
	if err != nil {
		return failedResult(accountID, account.Email, &digestdomain.FetchError{AccountID: accountID, Err: err})
	}

	unprocessed, err := u.ledger.FilterUnprocessed(accountID, fetched.Messages)
	if err != nil {
		return failedResult(accountID, account.Email, &digestdomain.PersistenceError{Op: "filter processed messages", Err: err})
	}

	log.Printf("[Orchestrator] Account %s: %d fetched, %d unprocessed", accountID, len(fetched.Messages), len(unprocessed))

	digest, err := u.summarizer.Summarize(ctx, unprocessed, today)
	if err != nil {
		return failedResult(accountID, account.Email, err)
	}

	digest.UserID = userID
	digest.AccountID = accountID

	created, stored, err := u.digestRepo.CreateIfAbsent(digest, force)
	if err != nil {
		return failedResult(accountID, account.Email, &digestdomain.PersistenceError{Op: "store digest", Err: err})
	}

	if !created {
		// A concurrent run won the insert; its digest stands.
		return AccountSummaryResult{
			AccountID:     accountID,
			Email:         account.Email,
			Success:       true,
			AlreadyExists: true,
			Message:       "digest already exists for today",
			Digest:        stored,
		}
	}

	if err := u.ledger.RecordProcessed(accountID, unprocessed); err != nil {
		// The digest is stored; a ledger write failure only risks
		// re-summarizing these messages next cycle.
		log.Printf("[Orchestrator] Failed to record ledger entries for account %s: %v", accountID, err)
	}

	return AccountSummaryResult{
		AccountID: accountID,
		Email:     account.Email,
		Success:   true,
		Message:   fmt.Sprintf("digest created from %d messages", len(unprocessed)),
		Digest:    stored,
		Stats:     &fetched.Stats,
	}
}

// GenerateAllAccountSummaries fans out over every account of the user.
// One account's failure is recorded in its result entry and never
// prevents the remaining accounts from being processed. A failure to
// list the accounts at all is returned as an error so callers can tell
// a store outage apart from a user with no connected accounts.
func (u *digestUsecase) GenerateAllAccountSummaries(ctx context.Context, userID string, window digestdomain.FetchWindow, force bool) (AllSummariesResult, error) {
	accounts, err := u.accountRepo.FindByUserID(userID)
	if err != nil {
		log.Printf("[Orchestrator] Failed to list accounts for user %s: %v", userID, err)
		return AllSummariesResult{}, &digestdomain.PersistenceError{Op: "list accounts", Err: err}
	}

	result := AllSummariesResult{
		TotalAccounts: len(accounts),
		Results:       make([]AccountSummaryResult, 0, len(accounts)),
	}

	for _, account := range accounts {
		entry := u.generateIsolated(ctx, userID, account, window, force)
		if entry.Success {
			result.SuccessfulAccounts++
		}
		result.Results = append(result.Results, entry)
	}

	return result, nil
}

// generateIsolated shields the fan-out from anything a single account's
// pipeline might panic on.
func (u *digestUsecase) generateIsolated(ctx context.Context, userID string, account accountdomain.Account, window digestdomain.FetchWindow, force bool) (entry AccountSummaryResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Orchestrator] Panic processing account %s: %v", account.ID, r)
			entry = failedResult(account.ID, account.Email, fmt.Errorf("internal error: %v", r))
		}
	}()

	return u.GenerateAccountSummary(ctx, userID, account.ID, window, force)
}

// GetUserSummaryStatus reports each account's latest digest and whether
// today's digest exists yet.
func (u *digestUsecase) GetUserSummaryStatus(ctx context.Context, userID string) (*UserSummaryStatus, error) {
	accounts, err := u.accountRepo.FindByUserID(userID)
	if err != nil {
		return nil, &digestdomain.PersistenceError{Op: "list accounts", Err: err}
	}

	today := digestdomain.DateKey(u.now())
	status := &UserSummaryStatus{Accounts: make([]AccountDigestStatus, 0, len(accounts))}

	for _, account := range accounts {
		latest, err := u.digestRepo.LatestForAccount(account.ID)
		if err != nil {
			return nil, &digestdomain.PersistenceError{Op: "load latest digest", Err: err}
		}

		status.Accounts = append(status.Accounts, AccountDigestStatus{
			AccountID:      account.ID,
			Email:          account.Email,
			LatestDigest:   latest,
			HasTodayDigest: latest != nil && latest.DateProcessed == today,
		})
	}

	return status, nil
}

func failedResult(accountID, email string, err error) AccountSummaryResult {
	return AccountSummaryResult{
		AccountID: accountID,
		Email:     email,
		Success:   false,
		Message:   "digest generation failed",
		Error:     err.Error(),
	}
}
