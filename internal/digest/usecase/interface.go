package usecase

import (
	"context"

	digestdomain "mailbrief-backend/internal/digest/domain"
)

// AccountSummaryResult is the per-account outcome of digest generation.
// Expected failures surface here as Success=false with an Error string;
// the pipeline never panics across this boundary.
type AccountSummaryResult struct {
	AccountID     string                   `json:"account_id"`
	Email         string                   `json:"email"`
	Success       bool                     `json:"success"`
	AlreadyExists bool                     `json:"already_exists,omitempty"`
	Message       string                   `json:"message"`
	Error         string                   `json:"error,omitempty"`
	Digest        *digestdomain.Digest     `json:"digest,omitempty"`
	Stats         *digestdomain.FetchStats `json:"stats,omitempty"`
}

// AllSummariesResult aggregates the multi-account fan-out.
type AllSummariesResult struct {
	TotalAccounts      int                    `json:"total_accounts"`
	SuccessfulAccounts int                    `json:"successful_accounts"`
	Results            []AccountSummaryResult `json:"results"`
}

// AccountDigestStatus reports the latest digest state for one account.
type AccountDigestStatus struct {
	AccountID      string               `json:"account_id"`
	Email          string               `json:"email"`
	LatestDigest   *digestdomain.Digest `json:"latest_digest,omitempty"`
	HasTodayDigest bool                 `json:"has_today_digest"`
}

// UserSummaryStatus is the per-user digest overview.
type UserSummaryStatus struct {
	Accounts []AccountDigestStatus `json:"accounts"`
}

// DigestUsecase composes credentials, fetching, deduplication,
// summarization and persistence for one account or all of a user's
// accounts.
type DigestUsecase interface {
	GenerateAccountSummary(ctx context.Context, userID, accountID string, window digestdomain.FetchWindow, force bool) AccountSummaryResult
	GenerateAllAccountSummaries(ctx context.Context, userID string, window digestdomain.FetchWindow, force bool) (AllSummariesResult, error)
	GetUserSummaryStatus(ctx context.Context, userID string) (*UserSummaryStatus, error)
}
