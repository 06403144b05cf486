package usecase

import (
	digestdomain "mailbrief-backend/internal/digest/domain"
	"mailbrief-backend/internal/digest/repository"
)

// Ledger filters fetched messages against the processed-message records
// so each message is summarized at most once per account. Filtering and
// recording are separate operations; the orchestrator records only after
// a summarization batch succeeded.
type Ledger struct {
	processedRepo repository.ProcessedMessageRepository
}

// NewLedger creates a new Ledger.
func NewLedger(processedRepo repository.ProcessedMessageRepository) *Ledger {
	return &Ledger{processedRepo: processedRepo}
}

// FilterUnprocessed returns the messages whose ids are not yet recorded
// for the account.
func (l *Ledger) FilterUnprocessed(accountID string, messages []*digestdomain.Message) ([]*digestdomain.Message, error) {
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}

	existing, err := l.processedRepo.ExistingIDs(accountID, ids)
	if err != nil {
		return nil, err
	}

	unprocessed := make([]*digestdomain.Message, 0, len(messages))
	for _, m := range messages {
		if !existing[m.ID] {
			unprocessed = append(unprocessed, m)
		}
	}
	return unprocessed, nil
}

// RecordProcessed writes ledger entries for every message in a completed
// summarization batch.
func (l *Ledger) RecordProcessed(accountID string, messages []*digestdomain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return l.processedRepo.Record(accountID, ids)
}
