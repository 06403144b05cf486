package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
	lastDoc  string
}

func (f *fakeGenerator) GenerateDigest(ctx context.Context, instruction, content string) (string, error) {
	f.calls++
	f.lastDoc = content
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testMessage(id, from, subject, content string) *digestdomain.Message {
	return &digestdomain.Message{
		ID:      id,
		From:    from,
		Subject: subject,
		Content: content,
		Preview: content,
	}
}

const validModelOutput = `{
	"overview": ["Three newsletters arrived", "One invoice is due", "A meeting was rescheduled"],
	"insight": "The invoice from Acme needs payment this week.",
	"important_emails": [{"subject": "Invoice #42", "sender": "billing@acme.com", "reason": "payment due"}],
	"inbox_status": "worth_a_look",
	"suggestions": ["Pay the Acme invoice"]
}`

func TestSummarizeEmptyInboxSkipsModel(t *testing.T) {
	gen := &fakeGenerator{response: validModelOutput}
	s := NewSummarizer(gen)
	date := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	first, err := s.Summarize(context.Background(), nil, date)
	require.NoError(t, err)
	second, err := s.Summarize(context.Background(), []*digestdomain.Message{}, date)
	require.NoError(t, err)

	assert.Equal(t, 0, gen.calls, "empty inbox must not invoke the model")
	assert.Equal(t, digestdomain.StatusAllClear, first.Status)
	assert.Equal(t, 0, first.EmailCount)
	assert.Equal(t, "2026-08-31", first.DateProcessed)
	assert.NotEmpty(t, first.Insight)
	assert.Equal(t, first, second, "empty-inbox digest must be deterministic")
}

func TestSummarizeValidOutput(t *testing.T) {
	gen := &fakeGenerator{response: validModelOutput}
	s := NewSummarizer(gen)
	date := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	messages := []*digestdomain.Message{
		testMessage("m1", "billing@acme.com", "Invoice #42", "Please pay by Friday."),
		testMessage("m2", "news@daily.com", "Morning brief", "Top stories today."),
	}

	digest, err := s.Summarize(context.Background(), messages, date)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "2026-08-31", digest.DateProcessed)
	assert.Len(t, digest.Overview, 3)
	assert.Equal(t, digestdomain.StatusWorthALook, digest.Status)
	assert.Equal(t, 2, digest.EmailCount)
	require.Len(t, digest.ImportantItems, 1)
	assert.Equal(t, "Invoice #42", digest.ImportantItems[0].Subject)
}

func TestSummarizeGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	s := NewSummarizer(gen)

	_, err := s.Summarize(context.Background(), []*digestdomain.Message{testMessage("m1", "a@b.c", "hi", "body")}, time.Now())
	require.Error(t, err)

	var vErr *digestdomain.ValidationError
	assert.False(t, errors.As(err, &vErr), "a transport error is not a validation error")
}

func TestSummarizeRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{
			name:  "not json",
			raw:   "here is your digest!",
			field: "response",
		},
		{
			name:  "too few overview entries",
			raw:   `{"overview": ["one", "two"], "insight": "x", "inbox_status": "all_clear"}`,
			field: "overview",
		},
		{
			name:  "too many overview entries",
			raw:   `{"overview": ["1", "2", "3", "4", "5", "6"], "insight": "x", "inbox_status": "all_clear"}`,
			field: "overview",
		},
		{
			name:  "blank overview entry",
			raw:   `{"overview": ["one", "  ", "three"], "insight": "x", "inbox_status": "all_clear"}`,
			field: "overview",
		},
		{
			name:  "missing insight",
			raw:   `{"overview": ["1", "2", "3"], "insight": "", "inbox_status": "all_clear"}`,
			field: "insight",
		},
		{
			name: "too many important emails",
			raw: `{"overview": ["1", "2", "3"], "insight": "x", "inbox_status": "all_clear",
				"important_emails": [{"subject":"a"},{"subject":"b"},{"subject":"c"},{"subject":"d"},{"subject":"e"},{"subject":"f"}]}`,
			field: "important_emails",
		},
		{
			name: "important email without subject or sender",
			raw: `{"overview": ["1", "2", "3"], "insight": "x", "inbox_status": "all_clear",
				"important_emails": [{"reason": "because"}]}`,
			field: "important_emails",
		},
		{
			name:  "invalid status",
			raw:   `{"overview": ["1", "2", "3"], "insight": "x", "inbox_status": "panic_now"}`,
			field: "inbox_status",
		},
		{
			name:  "too many suggestions",
			raw:   `{"overview": ["1", "2", "3"], "insight": "x", "inbox_status": "all_clear", "suggestions": ["a", "b", "c", "d"]}`,
			field: "suggestions",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{response: tc.raw}
			s := NewSummarizer(gen)

			digest, err := s.Summarize(context.Background(), []*digestdomain.Message{testMessage("m1", "a@b.c", "hi", "body")}, time.Now())
			require.Error(t, err)
			assert.Nil(t, digest, "rejected output must not produce a digest")

			var vErr *digestdomain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	long := strings.Repeat("a", contentCharCap) + "TRUNCATED-MARKER"
	messages := []*digestdomain.Message{
		testMessage("m1", "sender@example.com", "Long one", long),
		testMessage("m2", "other@example.com", "Short one", "tiny"),
	}

	prompt := buildPrompt(messages, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))

	assert.NotContains(t, prompt, "TRUNCATED-MARKER")
	assert.Contains(t, prompt, "From: sender@example.com")
	assert.Contains(t, prompt, "Subject: Short one")
	assert.Contains(t, prompt, messageSeparator)
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	// The rune straddles the byte cap; a byte-indexed cut would leave an
	// invalid UTF-8 sequence in the prompt.
	content := strings.Repeat("a", contentCharCap-1) + "世"
	messages := []*digestdomain.Message{testMessage("m1", "a@b.c", "multibyte tail", content)}

	prompt := buildPrompt(messages, time.Now())

	assert.True(t, utf8.ValidString(prompt))
	assert.NotContains(t, prompt, "世")
}

func TestTruncateAtRune(t *testing.T) {
	assert.Equal(t, "short", truncateAtRune("short", 10))
	assert.Equal(t, "ab", truncateAtRune("abc", 2))
	assert.Equal(t, "a", truncateAtRune("a世", 2))
	assert.Equal(t, "a世", truncateAtRune("a世", 4))
}

func TestBuildPromptFallsBackToPreview(t *testing.T) {
	msg := &digestdomain.Message{From: "a@b.c", Subject: "empty body", Preview: "snippet only"}

	prompt := buildPrompt([]*digestdomain.Message{msg}, time.Now())

	assert.Contains(t, prompt, "Content: snippet only")
}
