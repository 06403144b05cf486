package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service sends text messages through the WhatsApp Cloud API.
type Service struct {
	token   string
	phoneID string
	client  *http.Client
}

// NewService registers the API token and sending phone number id.
func NewService(token, phoneID string) *Service {
	return &Service{
		token:   token,
		phoneID: phoneID,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the channel can send at all.
func (s *Service) Configured() bool {
	return s.token != "" && s.phoneID != ""
}

// SendMessage delivers a plain text message to the given number.
func (s *Service) SendMessage(ctx context.Context, to, body string) error {
	if !s.Configured() {
		return fmt.Errorf("whatsapp sender misconfigured")
	}

	url := fmt.Sprintf("https://graph.facebook.com/v19.0/%s/messages", s.phoneID)

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
