package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	digestdomain "mailbrief-backend/internal/digest/domain"
	"mailbrief-backend/pkg/ai"
)

// contentCharCap bounds each message's contribution to the prompt.
const contentCharCap = 1000

const messageSeparator = "\n\n---\n\n"

const digestInstruction = `You are an email assistant that writes a short daily inbox digest.
Analyze the emails and respond with a single JSON object, no other text, using exactly this shape:
{
  "overview": ["3 to 5 short bullet strings summarizing the day"],
  "insight": "one sentence with the most useful observation",
  "important_emails": [{"subject": "...", "sender": "...", "reason": "why it matters"}],
  "inbox_status": "attention_needed" | "worth_a_look" | "all_clear",
  "suggestions": ["up to 3 short suggested actions"]
}
Rules:
- overview must contain between 3 and 5 strings
- important_emails must contain at most 5 entries, only genuinely important ones
- suggestions must contain at most 3 strings and may be empty
- inbox_status must be exactly one of the three values above`

// Summarizer builds a bounded prompt from unsummarized messages, invokes
// the language model and validates its structured output.
type Summarizer struct {
	generator ai.DigestGenerator
}

// NewSummarizer creates a new Summarizer.
func NewSummarizer(generator ai.DigestGenerator) *Summarizer {
	return &Summarizer{generator: generator}
}

// modelDigest is the raw shape the model is instructed to return.
type modelDigest struct {
	Overview        []string                     `json:"overview"`
	Insight         string                       `json:"insight"`
	ImportantEmails []digestdomain.ImportantItem `json:"important_emails"`
	InboxStatus     string                       `json:"inbox_status"`
	Suggestions     []string                     `json:"suggestions"`
}

// Summarize produces a digest for the given messages and calendar day.
// With zero messages it short-circuits to a deterministic all-clear
// digest without invoking the model. A schema violation in the model
// output returns a *domain.ValidationError and no digest.
func (s *Summarizer) Summarize(ctx context.Context, messages []*digestdomain.Message, date time.Time) (*digestdomain.Digest, error) {
	if len(messages) == 0 {
		return emptyInboxDigest(date), nil
	}

	prompt := buildPrompt(messages, date)

	raw, err := s.generator.GenerateDigest(ctx, digestInstruction, prompt)
	if err != nil {
		return nil, fmt.Errorf("digest generation failed: %w", err)
	}

	parsed, vErr := validateDigest(raw)
	if vErr != nil {
		log.Printf("[Summarizer] Model output rejected: %v", vErr)
		return nil, vErr
	}

	return &digestdomain.Digest{
		DateProcessed:  digestdomain.DateKey(date),
		Overview:       parsed.Overview,
		Insight:        parsed.Insight,
		ImportantItems: parsed.ImportantEmails,
		Status:         digestdomain.InboxStatus(parsed.InboxStatus),
		Suggestions:    parsed.Suggestions,
		EmailCount:     len(messages),
	}, nil
}

// emptyInboxDigest is the deterministic no-mail digest. It must be
// byte-for-byte reproducible for the same empty input.
func emptyInboxDigest(date time.Time) *digestdomain.Digest {
	return &digestdomain.Digest{
		DateProcessed: digestdomain.DateKey(date),
		Overview:      []string{"No emails received today"},
		Insight:       "Your inbox was quiet today.",
		Status:        digestdomain.StatusAllClear,
		Suggestions:   []string{"Enjoy the quiet inbox"},
		EmailCount:    0,
	}
}

// buildPrompt renders each message as From / Subject / Content with the
// content truncated to keep the prompt bounded.
func buildPrompt(messages []*digestdomain.Message, date time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Emails received on %s (%d total):\n\n", date.Format("Monday, January 2 2006"), len(messages)))

	rendered := make([]string, 0, len(messages))
	for _, m := range messages {
		content := truncateAtRune(m.Content, contentCharCap)
		if content == "" {
			content = m.Preview
		}
		rendered = append(rendered, fmt.Sprintf("From: %s\nSubject: %s\nContent: %s", m.From, m.Subject, content))
	}

	b.WriteString(strings.Join(rendered, messageSeparator))
	return b.String()
}

// truncateAtRune cuts s to at most limit bytes, backing up so a
// multi-byte rune is never split at the cut point.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// validateDigest enforces the digest schema independently of the model's
// instructions. Over-length lists are rejected, not truncated: a model
// that ignored the caps produced output that should not be trusted
// downstream.
func validateDigest(raw string) (*modelDigest, *digestdomain.ValidationError) {
	var parsed modelDigest
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, &digestdomain.ValidationError{Field: "response", Reason: fmt.Sprintf("unparsable JSON: %v", err)}
	}

	if len(parsed.Overview) < 3 || len(parsed.Overview) > 5 {
		return nil, &digestdomain.ValidationError{Field: "overview", Reason: fmt.Sprintf("expected 3-5 entries, got %d", len(parsed.Overview))}
	}
	for i, entry := range parsed.Overview {
		if strings.TrimSpace(entry) == "" {
			return nil, &digestdomain.ValidationError{Field: "overview", Reason: fmt.Sprintf("entry %d is empty", i)}
		}
	}

	if strings.TrimSpace(parsed.Insight) == "" {
		return nil, &digestdomain.ValidationError{Field: "insight", Reason: "missing or empty"}
	}

	if len(parsed.ImportantEmails) > 5 {
		return nil, &digestdomain.ValidationError{Field: "important_emails", Reason: fmt.Sprintf("expected at most 5 entries, got %d", len(parsed.ImportantEmails))}
	}
	for i, item := range parsed.ImportantEmails {
		if strings.TrimSpace(item.Subject) == "" && strings.TrimSpace(item.Sender) == "" {
			return nil, &digestdomain.ValidationError{Field: "important_emails", Reason: fmt.Sprintf("entry %d has neither subject nor sender", i)}
		}
	}

	status := digestdomain.InboxStatus(parsed.InboxStatus)
	if !status.IsValid() {
		return nil, &digestdomain.ValidationError{Field: "inbox_status", Reason: fmt.Sprintf("%q is not a valid status", parsed.InboxStatus)}
	}

	if len(parsed.Suggestions) > 3 {
		return nil, &digestdomain.ValidationError{Field: "suggestions", Reason: fmt.Sprintf("expected at most 3 entries, got %d", len(parsed.Suggestions))}
	}

	return &parsed, nil
}
