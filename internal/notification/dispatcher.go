package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	accountdomain "mailbrief-backend/internal/account/domain"
	accountrepo "mailbrief-backend/internal/account/repository"
	authdomain "mailbrief-backend/internal/auth/domain"
	authrepo "mailbrief-backend/internal/auth/repository"
	digestdomain "mailbrief-backend/internal/digest/domain"
	digestrepo "mailbrief-backend/internal/digest/repository"
	"mailbrief-backend/pkg/fcm"
)

// Supported notification channels
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelPush     = "push"
)

// Result is the outcome of one notify call.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EmailSender delivers a digest email through the account's own mailbox.
type EmailSender interface {
	SendEmail(ctx context.Context, account *accountdomain.Account, to, subject, body string) error
}

// TextSender delivers a plain text message to a phone number.
type TextSender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// PushSender delivers a push notification to device tokens.
type PushSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.Notification) ([]string, error)
}

// Dispatcher formats digests into channel-specific content and sends
// them, gated by the user's channel preferences and digest severity.
type Dispatcher struct {
	userRepo    authrepo.UserRepository
	accountRepo accountrepo.AccountRepository
	fcmRepo     authrepo.FCMTokenRepository
	recordRepo  digestrepo.NotificationRecordRepository
	email       EmailSender
	whatsapp    TextSender
	push        PushSender
}

// NewDispatcher creates a new Dispatcher. Any sender may be nil when the
// channel is not configured.
func NewDispatcher(
	userRepo authrepo.UserRepository,
	accountRepo accountrepo.AccountRepository,
	fcmRepo authrepo.FCMTokenRepository,
	recordRepo digestrepo.NotificationRecordRepository,
	email EmailSender,
	whatsapp TextSender,
	push PushSender,
) *Dispatcher {
	return &Dispatcher{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		fcmRepo:     fcmRepo,
		recordRepo:  recordRepo,
		email:       email,
		whatsapp:    whatsapp,
		push:        push,
	}
}

// Notify sends one digest over one channel. A disabled channel is not an
// error: the call succeeds with a "disabled" message and performs no
// send. Every send attempt is recorded regardless of outcome.
func (d *Dispatcher) Notify(ctx context.Context, userID string, digest *digestdomain.Digest, channel string) Result {
	user, err := d.userRepo.FindByID(userID)
	if err != nil || user == nil {
		return Result{Success: false, Message: "user not found"}
	}

	switch channel {
	case ChannelEmail:
		if !user.EmailNotifications {
			return Result{Success: true, Message: "email notifications disabled"}
		}
		return d.record(digest, channel, d.sendEmail(ctx, user, digest))

	case ChannelWhatsApp:
		if !user.WhatsAppNotifications {
			return Result{Success: true, Message: "whatsapp notifications disabled"}
		}
		if user.WhatsAppNumber == "" {
			return Result{Success: false, Message: "no whatsapp number configured"}
		}
		return d.record(digest, channel, d.sendWhatsApp(ctx, user, digest))

	case ChannelPush:
		if !user.PushNotifications {
			return Result{Success: true, Message: "push notifications disabled"}
		}
		return d.record(digest, channel, d.sendPush(ctx, user, digest))

	default:
		return Result{Success: false, Message: fmt.Sprintf("unknown channel %q", channel)}
	}
}

// NotifyAll sends digests over every enabled channel, skipping all_clear
// digests to avoid notification fatigue.
func (d *Dispatcher) NotifyAll(ctx context.Context, userID string, digests []*digestdomain.Digest) {
	for _, digest := range digests {
		if digest.Status == digestdomain.StatusAllClear {
			continue
		}
		for _, channel := range []string{ChannelEmail, ChannelWhatsApp, ChannelPush} {
			result := d.Notify(ctx, userID, digest, channel)
			if !result.Success {
				log.Printf("[Dispatcher] %s delivery failed for digest %s: %s", channel, digest.ID, result.Message)
			}
		}
	}
}

func (d *Dispatcher) record(digest *digestdomain.Digest, channel string, sendErr error) Result {
	status := digestdomain.DeliverySent
	if sendErr != nil {
		status = digestdomain.DeliveryFailed
	}

	if d.recordRepo != nil {
		if err := d.recordRepo.Create(digest.ID, channel, status); err != nil {
			log.Printf("[Dispatcher] Failed to record %s delivery for digest %s: %v", channel, digest.ID, err)
		}
	}

	if sendErr != nil {
		return Result{Success: false, Message: fmt.Sprintf("%s delivery failed: %v", channel, sendErr)}
	}
	return Result{Success: true, Message: fmt.Sprintf("digest sent via %s", channel)}
}

func (d *Dispatcher) sendEmail(ctx context.Context, user *authdomain.User, digest *digestdomain.Digest) error {
	if d.email == nil {
		return fmt.Errorf("email channel not configured")
	}

	account, err := d.accountRepo.FindByID(digest.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %s not found", digest.AccountID)
	}

	subject := fmt.Sprintf("%s Inbox digest for %s", statusEmoji(digest.Status), digest.DateProcessed)
	return d.email.SendEmail(ctx, account, user.Email, subject, FormatDigest(digest))
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, user *authdomain.User, digest *digestdomain.Digest) error {
	if d.whatsapp == nil {
		return fmt.Errorf("whatsapp channel not configured")
	}
	return d.whatsapp.SendMessage(ctx, user.WhatsAppNumber, FormatDigest(digest))
}

func (d *Dispatcher) sendPush(ctx context.Context, user *authdomain.User, digest *digestdomain.Digest) error {
	if d.push == nil {
		return fmt.Errorf("push channel not configured")
	}

	tokens, err := d.fcmRepo.GetTokensByUserID(user.ID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no registered devices")
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	failed, err := d.push.SendToDevices(ctx, tokenStrings, fcm.Notification{
		Title: fmt.Sprintf("%s Inbox digest", statusEmoji(digest.Status)),
		Body:  digest.Insight,
		Data:  map[string]string{"digest_id": digest.ID},
	})
	if err != nil {
		return err
	}

	// Stale tokens are pruned rather than treated as delivery failures.
	for _, token := range failed {
		if dErr := d.fcmRepo.DeleteToken(token); dErr != nil {
			log.Printf("[Dispatcher] Failed to prune stale device token: %v", dErr)
		}
	}

	return nil
}

// FormatDigest renders the digest as a plain text message shared by the
// email and WhatsApp channels.
func FormatDigest(digest *digestdomain.Digest) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s Inbox digest for %s (%d emails)\n\n", statusEmoji(digest.Status), digest.DateProcessed, digest.EmailCount))

	for _, bullet := range digest.Overview {
		b.WriteString("- " + bullet + "\n")
	}

	b.WriteString("\n" + digest.Insight + "\n")

	if len(digest.ImportantItems) > 0 {
		b.WriteString("\nWorth your attention:\n")
		items := digest.ImportantItems
		if len(items) > 5 {
			items = items[:5]
		}
		for i, item := range items {
			b.WriteString(fmt.Sprintf("%d. %s (from %s): %s\n", i+1, item.Subject, item.Sender, item.Reason))
		}
	}

	if len(digest.Suggestions) > 0 {
		b.WriteString("\nTip: " + digest.Suggestions[0] + "\n")
	}

	return b.String()
}

func statusEmoji(status digestdomain.InboxStatus) string {
	switch status {
	case digestdomain.StatusAttentionNeeded:
		return "🔴"
	case digestdomain.StatusWorthALook:
		return "🟡"
	default:
		return "🟢"
	}
}
