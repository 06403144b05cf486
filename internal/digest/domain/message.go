package domain

import (
	"context"
	"time"

	accountdomain "mailbrief-backend/internal/account/domain"
)

// Message is a single retrieved mail item. Immutable once fetched; it is
// never persisted beyond the summarization step except by id in the
// processed-message ledger.
type Message struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	ReceivedAt time.Time `json:"received_at"`
	// Content is the best-available body: text/plain preferred,
	// stripped text/html fallback, provider snippet as last resort.
	Content string   `json:"content"`
	Preview string   `json:"preview"`
	HasText bool     `json:"has_text"`
	HasHTML bool     `json:"has_html"`
	Labels  []string `json:"labels,omitempty"`
}

// FetchStats are diagnostic quality numbers for one fetch cycle.
type FetchStats struct {
	Total            int     `json:"total"`
	WithText         int     `json:"with_text"`
	WithHTML         int     `json:"with_html"`
	AvgPreviewLength float64 `json:"avg_preview_length"`
}

// FetchResult bundles retrieved messages with their quality stats.
type FetchResult struct {
	Messages []*Message `json:"messages"`
	Stats    FetchStats `json:"stats"`
}

// Window modes for message retrieval
const (
	WindowToday        = "today"
	WindowInitialSetup = "initial_setup"
	WindowDays         = "days"
)

// initialSetupDays is the short lookback used once when an account is
// newly connected.
const initialSetupDays = 3

// FetchWindow describes the date range a fetch should cover.
type FetchWindow struct {
	Mode string `json:"mode"`
	Days int    `json:"days,omitempty"`
}

// ParseWindow maps a caller-supplied range string ("today",
// "initial_setup" or a day count) onto a FetchWindow.
func ParseWindow(mode string, days int) FetchWindow {
	switch mode {
	case WindowInitialSetup:
		return FetchWindow{Mode: WindowInitialSetup, Days: initialSetupDays}
	case WindowDays:
		if days <= 0 {
			days = 1
		}
		return FetchWindow{Mode: WindowDays, Days: days}
	default:
		return FetchWindow{Mode: WindowToday, Days: 1}
	}
}

// LookbackDays returns the number of days the window spans.
func (w FetchWindow) LookbackDays() int {
	if w.Days <= 0 {
		return 1
	}
	return w.Days
}

// MessageProvider retrieves messages for an account over a date window.
// Implementations: Gmail API provider and IMAP provider.
type MessageProvider interface {
	FetchMessages(ctx context.Context, account *accountdomain.Account, window FetchWindow) (*FetchResult, error)
}

// TokenUpdateFunc is called when a provider refreshes the account's
// access token mid-request so the new token can be persisted.
type TokenUpdateFunc func(accessToken string, expiry time.Time) error
