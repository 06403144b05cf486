package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	accountdomain "mailbrief-backend/internal/account/domain"
	digestdomain "mailbrief-backend/internal/digest/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// FetchOptions bound the listing and detail phases of a fetch.
type FetchOptions struct {
	MaxResults  int // overall cap on listed message ids
	MaxPages    int // hard safety cap on list pages
	BatchSize   int // detail requests per batch
	Concurrency int // concurrent detail requests within a batch
}

// DefaultFetchOptions mirror the Gmail API limits the service was tuned
// against (500 ids per list page, 10 concurrent detail gets).
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		MaxResults:  100,
		MaxPages:    10,
		BatchSize:   20,
		Concurrency: 10,
	}
}

// Service is the Gmail message provider. A single value is constructed at
// startup and passed into each call; tests substitute a fake provider
// behind the domain.MessageProvider interface instead of touching global
// state.
type Service struct {
	clientID     string
	clientSecret string
	opts         FetchOptions
	onTokenFresh digestdomain.TokenUpdateFunc
}

var _ digestdomain.MessageProvider = (*Service)(nil)

// NewService creates the Gmail provider with the OAuth client identity.
func NewService(clientID, clientSecret string, opts FetchOptions) *Service {
	if opts.MaxResults <= 0 {
		opts = DefaultFetchOptions()
	}
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		opts:         opts,
	}
}

// SetTokenUpdateFunc wires the callback that persists tokens refreshed
// mid-request by the underlying oauth2 transport.
func (s *Service) SetTokenUpdateFunc(fn digestdomain.TokenUpdateFunc) {
	s.onTokenFresh = fn
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	callback digestdomain.TokenUpdateFunc

	// mu guards current: Token is called from every concurrent detail
	// fetch sharing the HTTP client.
	mu      sync.Mutex
	current *oauth2.Token
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	fresh := s.current.AccessToken != t.AccessToken
	if fresh {
		s.current = t
	}
	s.mu.Unlock()

	if fresh && s.callback != nil {
		if err := s.callback(t.AccessToken, t.Expiry); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func (s *Service) gmailService(ctx context.Context, account *accountdomain.Account) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       account.TokenExpiresAt,
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: s.onTokenFresh,
	}

	client := oauth2.NewClient(ctx, wrapped)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// FetchMessages retrieves messages for the account over the date window.
// Listing is sequential (each page depends on the previous continuation
// token); detail fetching runs in fixed-size batches with a semaphore
// bounding concurrent requests, so the provider never sees more than
// Concurrency in-flight gets at once.
func (s *Service) FetchMessages(ctx context.Context, account *accountdomain.Account, window digestdomain.FetchWindow) (*digestdomain.FetchResult, error) {
	srv, err := s.gmailService(ctx, account)
	if err != nil {
		return nil, err
	}

	ids, err := s.listMessageIDs(srv, window)
	if err != nil {
		// A listing failure aborts the fetch for this account.
		return nil, fmt.Errorf("unable to list messages: %v", err)
	}

	messages := s.fetchDetails(srv, ids)
	stats := computeStats(messages)

	log.Printf("[Gmail] Fetched %d/%d messages for %s (text=%d html=%d)",
		len(messages), len(ids), account.Email, stats.WithText, stats.WithHTML)

	return &digestdomain.FetchResult{Messages: messages, Stats: stats}, nil
}

// listMessageIDs walks the paginated list endpoint until the window is
// exhausted, the result cap is reached, or the page safety cap trips.
func (s *Service) listMessageIDs(srv *gmail.Service, window digestdomain.FetchWindow) ([]string, error) {
	user := "me"
	query := fmt.Sprintf("newer_than:%dd", window.LookbackDays())

	var ids []string
	pageToken := ""

	for page := 0; page < s.opts.MaxPages; page++ {
		remaining := s.opts.MaxResults - len(ids)
		if remaining <= 0 {
			break
		}

		perPage := int64(remaining)
		if perPage > 500 {
			perPage = 500 // Gmail API maximum
		}

		listQuery := srv.Users.Messages.List(user).Q(query).MaxResults(perPage)
		if pageToken != "" {
			listQuery = listQuery.PageToken(pageToken)
		}

		resp, err := listQuery.Do()
		if err != nil {
			return nil, err
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return ids, nil
}

// fetchDetails resolves ids to full messages. Batches run one after
// another; requests within a batch share a semaphore. A failed get drops
// that message only.
func (s *Service) fetchDetails(srv *gmail.Service, ids []string) []*digestdomain.Message {
	user := "me"
	messages := make([]*digestdomain.Message, 0, len(ids))

	for start := 0; start < len(ids); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		type fetchResult struct {
			message *digestdomain.Message
			err     error
		}

		resultChan := make(chan fetchResult, len(batch))
		semaphore := make(chan struct{}, s.opts.Concurrency)

		for _, id := range batch {
			go func(msgID string) {
				semaphore <- struct{}{}        // Acquire
				defer func() { <-semaphore }() // Release

				fullMsg, err := srv.Users.Messages.Get(user, msgID).Format("full").Do()
				if err != nil {
					resultChan <- fetchResult{nil, err}
					return
				}
				resultChan <- fetchResult{convertMessage(fullMsg), nil}
			}(id)
		}

		for range batch {
			result := <-resultChan
			if result.err != nil {
				// Tolerated: the message may have been deleted between
				// list and get, or a transient error hit this id.
				log.Printf("[Gmail] Dropping message after detail fetch error: %v", result.err)
				continue
			}
			messages = append(messages, result.message)
		}
	}

	return messages
}

func computeStats(messages []*digestdomain.Message) digestdomain.FetchStats {
	stats := digestdomain.FetchStats{Total: len(messages)}
	totalPreview := 0
	for _, m := range messages {
		if m.HasText {
			stats.WithText++
		}
		if m.HasHTML {
			stats.WithHTML++
		}
		totalPreview += len(m.Preview)
	}
	if len(messages) > 0 {
		stats.AvgPreviewLength = float64(totalPreview) / float64(len(messages))
	}
	return stats
}

// SendEmail delivers a digest notification email through the account's own
// mailbox.
func (s *Service) SendEmail(ctx context.Context, account *accountdomain.Account, to, subject, body string) error {
	srv, err := s.gmailService(ctx, account)
	if err != nil {
		return err
	}

	var emailMsg bytes.Buffer
	emailMsg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	emailMsg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	emailMsg.WriteString("MIME-Version: 1.0\r\n")
	emailMsg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	emailMsg.WriteString(body)

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(emailMsg.Bytes()),
	}

	if _, err := srv.Users.Messages.Send("me", msg).Do(); err != nil {
		return fmt.Errorf("unable to send message: %v", err)
	}

	return nil
}

// ExchangeCode trades an authorization code for OAuth tokens and resolves
// the mailbox address the grant belongs to.
func (s *Service) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, string, error) {
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     google.Endpoint,
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, "", fmt.Errorf("unable to create Gmail service: %v", err)
	}

	profile, err := srv.Users.GetProfile("me").Do()
	if err != nil {
		return nil, "", fmt.Errorf("unable to resolve mailbox address: %v", err)
	}

	return token, profile.EmailAddress, nil
}

// RevokedGrant reports whether the provider rejected the refresh token
// itself, meaning the account needs to be reconnected.
func RevokedGrant(err error) bool {
	if err == nil {
		return false
	}
	if retrieve, ok := err.(*oauth2.RetrieveError); ok {
		return retrieve.ErrorCode == "invalid_grant"
	}
	return false
}

// RefreshToken exchanges the stored refresh token for a new access token
// and expiry using the provider's token endpoint.
func (s *Service) RefreshToken(ctx context.Context, account *accountdomain.Account) (string, time.Time, error) {
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	// Expiry in the past forces the token source to hit the refresh
	// endpoint instead of returning the cached access token.
	stale := &oauth2.Token{
		RefreshToken: account.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	}

	fresh, err := config.TokenSource(ctx, stale).Token()
	if err != nil {
		return "", time.Time{}, err
	}

	return fresh.AccessToken, fresh.Expiry, nil
}
