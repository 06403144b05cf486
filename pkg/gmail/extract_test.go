package gmail

import (
	"encoding/base64"
	"strings"
	"testing"
	"unicode/utf8"

	digestdomain "mailbrief-backend/internal/digest/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func textPart(mimeType, body string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Body:     &gmail.MessagePartBody{Data: encodeBody(body)},
	}
}

func TestConvertMessagePrefersPlainText(t *testing.T) {
	msg := &gmail.Message{
		Id:           "msg-1",
		ThreadId:     "thread-1",
		InternalDate: 1756627200000, // 2025-08-31T08:00:00Z in millis
		LabelIds:     []string{"INBOX", "IMPORTANT"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "subject", Value: "Quarterly report"},
				{Name: "From", Value: "boss@example.com"},
			},
			Parts: []*gmail.MessagePart{
				textPart("text/plain", "Here is the quarterly report."),
				textPart("text/html", "<p>Here is the <b>quarterly</b> report.</p>"),
			},
		},
	}

	converted := convertMessage(msg)

	assert.Equal(t, "msg-1", converted.ID)
	assert.Equal(t, "thread-1", converted.ThreadID)
	assert.Equal(t, "Quarterly report", converted.Subject, "header lookup is case-insensitive")
	assert.Equal(t, "boss@example.com", converted.From)
	assert.Equal(t, "Here is the quarterly report.", converted.Content)
	assert.True(t, converted.HasText)
	assert.True(t, converted.HasHTML)
	assert.Equal(t, []string{"INBOX", "IMPORTANT"}, converted.Labels)
}

func TestConvertMessageHTMLOnlyFallback(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-2",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*gmail.MessagePart{
				textPart("text/html", "<html><body><p>Your order has <strong>shipped</strong>.</p></body></html>"),
			},
		},
	}

	converted := convertMessage(msg)

	assert.False(t, converted.HasText)
	assert.True(t, converted.HasHTML)
	assert.Contains(t, converted.Content, "shipped")
	assert.NotContains(t, converted.Content, "<p>")
	assert.NotContains(t, converted.Content, "<strong>")
}

func TestConvertMessageNestedMultipart(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-3",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						textPart("text/plain", "Nested body text."),
					},
				},
				{
					MimeType: "application/pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
				},
			},
		},
	}

	converted := convertMessage(msg)

	assert.Equal(t, "Nested body text.", converted.Content)
	assert.True(t, converted.HasText)
}

func TestConvertMessageSinglePartBody(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-4",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: encodeBody("Plain single-part body.")},
		},
	}

	converted := convertMessage(msg)

	assert.Equal(t, "Plain single-part body.", converted.Content)
}

func TestConvertMessageSnippetLastResort(t *testing.T) {
	msg := &gmail.Message{
		Id:      "msg-5",
		Snippet: "snippet text from provider",
		Payload: &gmail.MessagePart{MimeType: "multipart/mixed"},
	}

	converted := convertMessage(msg)

	assert.Equal(t, "snippet text from provider", converted.Content)
	assert.False(t, converted.HasText)
	assert.False(t, converted.HasHTML)
}

func TestMakePreview(t *testing.T) {
	short := makePreview("hello   \n\t world")
	assert.Equal(t, "hello world", short)

	long := makePreview(strings.Repeat("word ", 100))
	require.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, long, previewLength+3)
}

func TestMakePreviewKeepsRunesIntact(t *testing.T) {
	// 100 three-byte runes put the cap mid-rune.
	long := makePreview(strings.Repeat("世", 100))

	assert.True(t, utf8.ValidString(long))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestComputeStats(t *testing.T) {
	messages := []*digestdomain.Message{
		{HasText: true, Preview: "1234"},
		{HasHTML: true, Preview: "12345678"},
		{HasText: true, HasHTML: true, Preview: ""},
	}

	stats := computeStats(messages)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.WithText)
	assert.Equal(t, 2, stats.WithHTML)
	assert.Equal(t, 4.0, stats.AvgPreviewLength)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := computeStats(nil)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.AvgPreviewLength)
}
