package imap

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	accountdomain "mailbrief-backend/internal/account/domain"
	digestdomain "mailbrief-backend/internal/digest/domain"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"
)

const previewLength = 200

// Service is the IMAP message provider for accounts connected with a
// server address and password instead of OAuth.
type Service struct {
	maxResults int
}

var _ digestdomain.MessageProvider = (*Service)(nil)

// NewService creates the IMAP provider.
func NewService(maxResults int) *Service {
	if maxResults <= 0 {
		maxResults = 100
	}
	return &Service{maxResults: maxResults}
}

// FetchMessages searches INBOX for messages received within the window
// and fetches envelopes plus bodies in one pipelined command.
func (s *Service) FetchMessages(ctx context.Context, account *accountdomain.Account, window digestdomain.FetchWindow) (*digestdomain.FetchResult, error) {
	c, err := client.DialTLS(account.IMAPHost, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s failed: %w", account.IMAPHost, err)
	}
	defer c.Logout()

	username := account.IMAPUsername
	if username == "" {
		username = account.Email
	}
	if err := c.Login(username, account.IMAPPassword); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("select INBOX failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = time.Now().AddDate(0, 0, -window.LookbackDays())

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if len(seqNums) > s.maxResults {
		// Newest messages sit at the end of the sequence.
		seqNums = seqNums[len(seqNums)-s.maxResults:]
	}

	messages := make([]*digestdomain.Message, 0, len(seqNums))
	if len(seqNums) > 0 {
		seqset := new(imap.SeqSet)
		seqset.AddNum(seqNums...)

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

		msgChan := make(chan *imap.Message, 10)
		done := make(chan error, 1)
		go func() {
			done <- c.Fetch(seqset, items, msgChan)
		}()

		for msg := range msgChan {
			converted, cErr := convertMessage(msg, section)
			if cErr != nil {
				// Tolerated: an unparsable message drops out of the result.
				log.Printf("[IMAP] Dropping message after parse error: %v", cErr)
				continue
			}
			messages = append(messages, converted)
		}

		if err := <-done; err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}
	}

	stats := computeStats(messages)
	log.Printf("[IMAP] Fetched %d messages for %s (text=%d html=%d)",
		len(messages), account.Email, stats.WithText, stats.WithHTML)

	return &digestdomain.FetchResult{Messages: messages, Stats: stats}, nil
}

func convertMessage(msg *imap.Message, section *imap.BodySectionName) (*digestdomain.Message, error) {
	if msg.Envelope == nil {
		return nil, fmt.Errorf("message %d has no envelope", msg.SeqNum)
	}

	from := ""
	if len(msg.Envelope.From) > 0 {
		addr := msg.Envelope.From[0]
		from = fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
		from = strings.TrimSpace(from)
	}

	plain, html := extractBodies(msg.GetBody(section))

	content := plain
	hasText := plain != ""
	hasHTML := html != ""
	if content == "" && html != "" {
		content = stripHTML(html)
	}

	// Message-ID headers are unique per mailbox, which is what the dedup
	// ledger keys on.
	id := msg.Envelope.MessageId
	if id == "" {
		id = fmt.Sprintf("uid-%d", msg.Uid)
	}

	return &digestdomain.Message{
		ID:         id,
		Subject:    msg.Envelope.Subject,
		From:       from,
		ReceivedAt: msg.Envelope.Date,
		Content:    content,
		Preview:    makePreview(content),
		HasText:    hasText,
		HasHTML:    hasHTML,
	}, nil
}

func extractBodies(r io.Reader) (plain, html string) {
	if r == nil {
		return "", ""
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", ""
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			if plain == "" {
				plain = string(body)
			}
		case "text/html":
			if html == "" {
				html = string(body)
			}
		}
	}

	return plain, html
}

func stripHTML(html string) string {
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(text), " ")
}

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
