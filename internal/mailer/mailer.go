// Package mailer delivers rendered emails to an external provider.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"collector/pkg/logger"
	"collector/pkg/network"
)

const sendTimeout = 15 * time.Second

// Message is a single outgoing email.
type Message struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	Text      string `json:"text,omitempty"`
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PermanentError marks a rejection that will not succeed on retry.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("provider rejected message: status %d: %s", e.StatusCode, e.Body)
}

// IsPermanent reports whether err should stop further delivery attempts.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// OAuthConfig holds client-credentials settings for the provider API.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c OAuthConfig) enabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

// HTTPSender posts messages as JSON to a provider endpoint.
type HTTPSender struct {
	endpoint string
	from     string
	client   *http.Client
}

// NewHTTPSender builds a sender for endpoint. When oauth is configured the
// client fetches and refreshes bearer tokens through the client-credentials flow.
func NewHTTPSender(ctx context.Context, clientFactory *network.ClientFactory, endpoint, from string, oauth OAuthConfig) *HTTPSender {
	if clientFactory == nil {
		clientFactory = network.NewClientFactory(nil, nil)
	}
	client := clientFactory.NewHTTPClient(ctx, sendTimeout)
	if oauth.enabled() {
		creds := &clientcredentials.Config{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			TokenURL:     oauth.TokenURL,
			Scopes:       oauth.Scopes,
		}
		client = creds.Client(context.WithValue(ctx, oauth2.HTTPClient, client))
		client.Timeout = sendTimeout
	}
	return &HTTPSender{endpoint: endpoint, from: from, client: client}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.from
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if msg.MessageID != "" {
		req.Header.Set("Idempotency-Key", msg.MessageID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	text := strings.TrimSpace(string(body))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &PermanentError{StatusCode: resp.StatusCode, Body: text}
	}
	return fmt.Errorf("provider status %d: %s", resp.StatusCode, text)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	From string
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = s.From
	}
	logger.Info("email not delivered, no provider configured",
		"module", "mailer",
		"action", "send",
		"resource", "email",
		"result", "skipped",
		"message_id", msg.MessageID,
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}
