package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	accountdomain "mailbrief-backend/internal/account/domain"
	accountusecase "mailbrief-backend/internal/account/usecase"
	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccountRepo struct {
	accounts []accountdomain.Account
	listErr  error
}

func (r *stubAccountRepo) Create(account *accountdomain.Account) error { return nil }

func (r *stubAccountRepo) FindByID(id string) (*accountdomain.Account, error) {
	for i := range r.accounts {
		if r.accounts[i].ID == id {
			return &r.accounts[i], nil
		}
	}
	return nil, nil
}

func (r *stubAccountRepo) FindByUserID(userID string) ([]accountdomain.Account, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []accountdomain.Account
	for _, a := range r.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) ListUserIDs() ([]string, error) { return nil, nil }

func (r *stubAccountRepo) Update(account *accountdomain.Account) error { return nil }

func (r *stubAccountRepo) UpdateTokens(accountID, accessToken string, expiresAt time.Time) error {
	return nil
}

func (r *stubAccountRepo) UpdateStatus(accountID string, status accountdomain.AccountStatus) error {
	return nil
}

func (r *stubAccountRepo) Delete(id string) error { return nil }

type stubDigestRepo struct {
	stored  map[string]*digestdomain.Digest // keyed by accountID + "/" + date
	creates int
}

func newStubDigestRepo() *stubDigestRepo {
	return &stubDigestRepo{stored: make(map[string]*digestdomain.Digest)}
}

func (r *stubDigestRepo) CreateIfAbsent(digest *digestdomain.Digest, force bool) (bool, *digestdomain.Digest, error) {
	key := digest.AccountID + "/" + digest.DateProcessed
	if existing, ok := r.stored[key]; ok && !force {
		return false, existing, nil
	}
	r.creates++
	if digest.ID == "" {
		digest.ID = key
	}
	r.stored[key] = digest
	return true, digest, nil
}

func (r *stubDigestRepo) FindByID(id string) (*digestdomain.Digest, error) {
	for _, d := range r.stored {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, nil
}

func (r *stubDigestRepo) FindByAccountAndDate(accountID, date string) (*digestdomain.Digest, error) {
	return r.stored[accountID+"/"+date], nil
}

func (r *stubDigestRepo) LatestForAccount(accountID string) (*digestdomain.Digest, error) {
	var latest *digestdomain.Digest
	for _, d := range r.stored {
		if d.AccountID != accountID {
			continue
		}
		if latest == nil || d.DateProcessed > latest.DateProcessed {
			latest = d
		}
	}
	return latest, nil
}

func (r *stubDigestRepo) ListByUser(userID string, limit int) ([]digestdomain.Digest, error) {
	var out []digestdomain.Digest
	for _, d := range r.stored {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type stubProcessedRepo struct {
	existing map[string]bool // accountID + "/" + messageID
	recorded map[string][]string
}

func newStubProcessedRepo(seen ...string) *stubProcessedRepo {
	repo := &stubProcessedRepo{
		existing: make(map[string]bool),
		recorded: make(map[string][]string),
	}
	for _, key := range seen {
		repo.existing[key] = true
	}
	return repo
}

func (r *stubProcessedRepo) ExistingIDs(accountID string, messageIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range messageIDs {
		if r.existing[accountID+"/"+id] {
			out[id] = true
		}
	}
	return out, nil
}

func (r *stubProcessedRepo) Record(accountID string, messageIDs []string) error {
	r.recorded[accountID] = append(r.recorded[accountID], messageIDs...)
	for _, id := range messageIDs {
		r.existing[accountID+"/"+id] = true
	}
	return nil
}

func (r *stubProcessedRepo) CountForAccount(accountID string) (int64, error) {
	return int64(len(r.recorded[accountID])), nil
}

// stubProvider routes fetches through a per-account function so one
// account can fail while others succeed.
type stubProvider struct {
	fetch map[string]func() (*digestdomain.FetchResult, error)
}

func (p *stubProvider) FetchMessages(ctx context.Context, account *accountdomain.Account, window digestdomain.FetchWindow) (*digestdomain.FetchResult, error) {
	fn, ok := p.fetch[account.ID]
	if !ok {
		return &digestdomain.FetchResult{}, nil
	}
	return fn()
}

func fetchResultOf(messages ...*digestdomain.Message) func() (*digestdomain.FetchResult, error) {
	return func() (*digestdomain.FetchResult, error) {
		return &digestdomain.FetchResult{
			Messages: messages,
			Stats:    digestdomain.FetchStats{Total: len(messages)},
		}, nil
	}
}

func imapAccount(id, userID, email string) accountdomain.Account {
	return accountdomain.Account{
		ID:           id,
		UserID:       userID,
		Email:        email,
		Provider:     accountdomain.ProviderIMAP,
		IMAPPassword: "secret",
		Status:       accountdomain.StatusActive,
	}
}

func newTestUsecase(t *testing.T, accounts []accountdomain.Account, digestRepo *stubDigestRepo, processedRepo *stubProcessedRepo, provider *stubProvider) *digestUsecase {
	t.Helper()

	accountRepo := &stubAccountRepo{accounts: accounts}
	credentials := accountusecase.NewCredentialManager(accountRepo, nil, nil)
	summarizer := NewSummarizer(&fakeGenerator{response: validModelOutput})

	u := NewDigestUsecase(
		accountRepo,
		digestRepo,
		credentials,
		NewLedger(processedRepo),
		summarizer,
		map[string]digestdomain.MessageProvider{accountdomain.ProviderIMAP: provider},
	).(*digestUsecase)

	u.now = func() time.Time { return time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC) }
	return u
}

func TestGenerateAccountSummarySuccess(t *testing.T) {
	accounts := []accountdomain.Account{imapAccount("acc-1", "user-1", "me@example.com")}
	digestRepo := newStubDigestRepo()
	processedRepo := newStubProcessedRepo("acc-1/m2") // m2 already summarized
	provider := &stubProvider{fetch: map[string]func() (*digestdomain.FetchResult, error){
		"acc-1": fetchResultOf(
			testMessage("m1", "a@b.c", "first", "body one"),
			testMessage("m2", "a@b.c", "second", "body two"),
			testMessage("m3", "a@b.c", "third", "body three"),
		),
	}}

	u := newTestUsecase(t, accounts, digestRepo, processedRepo, provider)

	result := u.GenerateAccountSummary(context.Background(), "user-1", "acc-1", digestdomain.ParseWindow("today", 0), false)

	require.True(t, result.Success, result.Error)
	assert.False(t, result.AlreadyExists)
	require.NotNil(t, result.Digest)
	assert.Equal(t, "user-1", result.Digest.UserID)
	assert.Equal(t, "acc-1", result.Digest.AccountID)
	assert.Equal(t, "2026-08-31", result.Digest.DateProcessed)
	assert.Equal(t, 2, result.Digest.EmailCount, "already-summarized message is filtered out")
	assert.ElementsMatch(t, []string{"m1", "m3"}, processedRepo.recorded["acc-1"])
}

func TestGenerateAccountSummaryIdempotent(t *testing.T) {
	accounts := []accountdomain.Account{imapAccount("acc-1", "user-1", "me@example.com")}
	digestRepo := newStubDigestRepo()
	processedRepo := newStubProcessedRepo()

	fetches := 0
	provider := &stubProvider{fetch: map[string]func() (*digestdomain.FetchResult, error){
		"acc-1": func() (*digestdomain.FetchResult, error) {
			fetches++
			return fetchResultOf(testMessage("m1", "a@b.c", "hello", "body"))()
		},
	}}

	u := newTestUsecase(t, accounts, digestRepo, processedRepo, provider)
	window := digestdomain.ParseWindow("today", 0)

	first := u.GenerateAccountSummary(context.Background(), "user-1", "acc-1", window, false)
	second := u.GenerateAccountSummary(context.Background(), "user-1", "acc-1", window, false)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.True(t, second.AlreadyExists)
	assert.Equal(t, first.Digest.ID, second.Digest.ID)
	assert.Equal(t, 1, fetches, "existing digest must short-circuit before the fetch")
	assert.Equal(t, 1, digestRepo.creates)
}

func TestGenerateAccountSummaryForceRegenerates(t *testing.T) {
	accounts := []accountdomain.Account{imapAccount("acc-1", "user-1", "me@example.com")}
	digestRepo := newStubDigestRepo()
	processedRepo := newStubProcessedRepo()
	provider := &stubProvider{fetch: map[string]func() (*digestdomain.FetchResult, error){
		"acc-1": fetchResultOf(testMessage("m1", "a@b.c", "hello", "body")),
	}}

	u := newTestUsecase(t, accounts, digestRepo, processedRepo, provider)
	window := digestdomain.ParseWindow("today", 0)

	first := u.GenerateAccountSummary(context.Background(), "user-1", "acc-1", window, false)
	require.True(t, first.Success)

	forced := u.GenerateAccountSummary(context.Background(), "user-1", "acc-1", window, true)
	require.True(t, forced.Success)
	assert.False(t, forced.AlreadyExists)
	assert.Equal(t, 2, digestRepo.creates)
}

func TestGenerateAccountSummaryWrongOwner(t *testing.T) {
	accounts := []accountdomain.Account{imapAccount("acc-1", "user-1", "me@example.com")}
	u := newTestUsecase(t, accounts, newStubDigestRepo(), newStubProcessedRepo(), &stubProvider{})

	result := u.GenerateAccountSummary(context.Background(), "someone-else", "acc-1", digestdomain.ParseWindow("today", 0), false)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestGenerateAllAccountSummariesIsolatesFailures(t *testing.T) {
	accounts := []accountdomain.Account{
		imapAccount("acc-1", "user-1", "one@example.com"),
		imapAccount("acc-2", "user-1", "two@example.com"),
		imapAccount("acc-3", "user-1", "three@example.com"),
	}
	digestRepo := newStubDigestRepo()
	provider := &stubProvider{fetch: map[string]func() (*digestdomain.FetchResult, error){
		"acc-1": fetchResultOf(testMessage("m1", "a@b.c", "hello", "body")),
		"acc-2": func() (*digestdomain.FetchResult, error) {
			return nil, errors.New("imap server unreachable")
		},
		"acc-3": func() (*digestdomain.FetchResult, error) {
			panic("unexpected provider bug")
		},
	}}

	u := newTestUsecase(t, accounts, digestRepo, newStubProcessedRepo(), provider)

	result, err := u.GenerateAllAccountSummaries(context.Background(), "user-1", digestdomain.ParseWindow("today", 0), false)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalAccounts)
	assert.Equal(t, 1, result.SuccessfulAccounts)
	require.Len(t, result.Results, 3)

	byAccount := map[string]AccountSummaryResult{}
	for _, entry := range result.Results {
		byAccount[entry.AccountID] = entry
	}

	assert.True(t, byAccount["acc-1"].Success)
	assert.False(t, byAccount["acc-2"].Success)
	assert.Contains(t, byAccount["acc-2"].Error, "unreachable")
	assert.False(t, byAccount["acc-3"].Success, "a panicking provider must not take down the fan-out")
}

func TestGenerateAllAccountSummariesListFailure(t *testing.T) {
	accountRepo := &stubAccountRepo{listErr: errors.New("database unavailable")}
	credentials := accountusecase.NewCredentialManager(accountRepo, nil, nil)
	summarizer := NewSummarizer(&fakeGenerator{response: validModelOutput})

	u := NewDigestUsecase(
		accountRepo,
		newStubDigestRepo(),
		credentials,
		NewLedger(newStubProcessedRepo()),
		summarizer,
		map[string]digestdomain.MessageProvider{accountdomain.ProviderIMAP: &stubProvider{}},
	)

	result, err := u.GenerateAllAccountSummaries(context.Background(), "user-1", digestdomain.ParseWindow("today", 0), false)

	require.Error(t, err, "a store outage must not look like a user with no accounts")
	var pErr *digestdomain.PersistenceError
	assert.ErrorAs(t, err, &pErr)
	assert.Empty(t, result.Results)
}

func TestGenerateAllAccountSummariesNoAccounts(t *testing.T) {
	u := newTestUsecase(t, nil, newStubDigestRepo(), newStubProcessedRepo(), &stubProvider{})

	result, err := u.GenerateAllAccountSummaries(context.Background(), "user-1", digestdomain.ParseWindow("today", 0), false)

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalAccounts)
}

func TestGetUserSummaryStatus(t *testing.T) {
	accounts := []accountdomain.Account{
		imapAccount("acc-1", "user-1", "one@example.com"),
		imapAccount("acc-2", "user-1", "two@example.com"),
	}
	digestRepo := newStubDigestRepo()
	digestRepo.stored["acc-1/2026-08-31"] = &digestdomain.Digest{
		ID: "d1", AccountID: "acc-1", UserID: "user-1", DateProcessed: "2026-08-31",
	}
	digestRepo.stored["acc-2/2026-08-29"] = &digestdomain.Digest{
		ID: "d2", AccountID: "acc-2", UserID: "user-1", DateProcessed: "2026-08-29",
	}

	u := newTestUsecase(t, accounts, digestRepo, newStubProcessedRepo(), &stubProvider{})

	status, err := u.GetUserSummaryStatus(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, status.Accounts, 2)

	byAccount := map[string]AccountDigestStatus{}
	for _, entry := range status.Accounts {
		byAccount[entry.AccountID] = entry
	}

	assert.True(t, byAccount["acc-1"].HasTodayDigest)
	assert.False(t, byAccount["acc-2"].HasTodayDigest)
	assert.Equal(t, "d2", byAccount["acc-2"].LatestDigest.ID)
}
