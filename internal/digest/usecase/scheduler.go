package usecase

import (
	"context"
	"log"
	"time"

	accountrepo "mailbrief-backend/internal/account/repository"
	digestdomain "mailbrief-backend/internal/digest/domain"
)

// DigestNotifier dispatches generated digests over the user's enabled
// channels. Implemented by the notification dispatcher.
type DigestNotifier interface {
	NotifyAll(ctx context.Context, userID string, digests []*digestdomain.Digest)
}

// Scheduler triggers the daily digest run for every user with connected
// accounts.
type Scheduler struct {
	interval    time.Duration
	accountRepo accountrepo.AccountRepository
	digests     DigestUsecase
	notifier    DigestNotifier
	stop        chan struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(interval time.Duration, accountRepo accountrepo.AccountRepository, digests DigestUsecase, notifier DigestNotifier) *Scheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		interval:    interval,
		accountRepo: accountRepo,
		digests:     digests,
		notifier:    notifier,
	}
}

// Start begins the ticking loop in a background goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}()

	log.Printf("[Scheduler] Started with interval %s", s.interval)
}

// Stop halts the ticking loop.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	userIDs, err := s.accountRepo.ListUserIDs()
	if err != nil {
		log.Printf("[Scheduler] Failed to list users: %v", err)
		return
	}

	log.Printf("[Scheduler] Running daily digest for %d users", len(userIDs))

	window := digestdomain.ParseWindow(digestdomain.WindowToday, 0)
	for _, userID := range userIDs {
		result, err := s.digests.GenerateAllAccountSummaries(ctx, userID, window, false)
		if err != nil {
			log.Printf("[Scheduler] Skipping user %s: %v", userID, err)
			continue
		}
		log.Printf("[Scheduler] User %s: %d/%d accounts succeeded", userID, result.SuccessfulAccounts, result.TotalAccounts)

		if s.notifier == nil {
			continue
		}

		digests := make([]*digestdomain.Digest, 0, len(result.Results))
		for i := range result.Results {
			entry := result.Results[i]
			// Freshly created digests only; re-notifying an existing
			// digest every cycle would double-send.
			if entry.Success && !entry.AlreadyExists && entry.Digest != nil {
				digests = append(digests, entry.Digest)
			}
		}
		s.notifier.NotifyAll(ctx, userID, digests)
	}
}
