package gmail

import (
	"encoding/base64"
	"strings"
	"time"
	"unicode/utf8"

	digestdomain "mailbrief-backend/internal/digest/domain"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"google.golang.org/api/gmail/v1"
)

const previewLength = 200

func convertMessage(msg *gmail.Message) *digestdomain.Message {
	subject := getHeader(msg.Payload.Headers, "Subject")
	from := getHeader(msg.Payload.Headers, "From")

	content, hasText, hasHTML := extractContent(msg.Payload)
	if content == "" {
		// Last resort: the provider-supplied snippet.
		content = msg.Snippet
	}

	return &digestdomain.Message{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Subject:    subject,
		From:       from,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
		Content:    content,
		Preview:    makePreview(content),
		HasText:    hasText,
		HasHTML:    hasHTML,
		Labels:     msg.LabelIds,
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// extractContent walks the (possibly recursive) MIME tree. The first
// text/plain part wins; text/html converted to plain text is the
// fallback.
func extractContent(payload *gmail.MessagePart) (content string, hasText, hasHTML bool) {
	plain, html := findBodies(payload)
	hasText = plain != ""
	hasHTML = html != ""

	if plain != "" {
		return plain, hasText, hasHTML
	}
	if html != "" {
		return stripHTML(html), hasText, hasHTML
	}
	return "", hasText, hasHTML
}

func findBodies(payload *gmail.MessagePart) (plain, html string) {
	if payload == nil {
		return "", ""
	}

	// Single-part message: the payload itself carries the body.
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			if payload.MimeType == "text/html" {
				return "", string(data)
			}
			return string(data), ""
		}
	}

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			switch part.MimeType {
			case "text/plain":
				if plain == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						plain = string(data)
					}
				}
			case "text/html":
				if html == "" && part.Body != nil && part.Body.Data != "" {
					if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
						html = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)

	return plain, html
}

// stripHTML converts an HTML body to readable text. Markdown conversion
// keeps link text and list structure that a bare tag-strip would mangle.
func stripHTML(html string) string {
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		// Crude fallback: drop everything that looks like a tag.
		var b strings.Builder
		inTag := false
		for _, r := range html {
			switch {
			case r == '<':
				inTag = true
			case r == '>':
				inTag = false
				b.WriteByte(' ')
			case !inTag:
				b.WriteRune(r)
			}
		}
		text = b.String()
	}
	return strings.Join(strings.Fields(text), " ")
}

// makePreview collapses whitespace and truncates to the preview cap used
// in prompts when full content is later truncated. The cut backs up to a
// rune boundary so a multi-byte character is never split.
func makePreview(content string) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	if len(collapsed) > previewLength {
		cut := previewLength
		for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
			cut--
		}
		return collapsed[:cut] + "..."
	}
	return collapsed
}
