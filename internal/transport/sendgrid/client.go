// Package sendgrid implements the outbound email transport against the
// SendGrid v3 Mail Send API using provider-side dynamic templates.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httpretry"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
)

const defaultBaseURL = "https://api.sendgrid.com/v3"

// Client sends templated email through SendGrid. It implements
// campaign.Transport.
type Client struct {
	apiKey    string
	baseURL   string
	fromEmail string
	fromName  string
	client    httpretry.HTTPDoer
}

// NewClient creates a SendGrid transport client.
func NewClient(apiKey, fromEmail, fromName string) *Client {
	return &Client{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    httpretry.NewRetryClient(&http.Client{Timeout: 30 * time.Second}, 3),
	}
}

// SetBaseURL overrides the API endpoint (tests, provider stubs).
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// SendTemplate delivers one message from a dynamic template and returns the
// provider-assigned message id. A missing API key fails fast here, at the
// operation boundary, so a misconfigured deploy cannot silently drop mail.
func (c *Client) SendTemplate(ctx context.Context, msg *campaign.Message) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("sendgrid api key not configured")
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{
				"to":                    []map[string]string{{"email": msg.ToEmail, "name": msg.ToName}},
				"dynamic_template_data": msg.Data,
				"subject":               msg.Subject,
			},
		},
		"from":        map[string]string{"email": c.fromEmail, "name": c.fromName},
		"template_id": msg.TemplateID,
		"tracking_settings": map[string]any{
			"click_tracking": map[string]bool{"enable": true},
			"open_tracking":  map[string]bool{"enable": true},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, string(respBody))
	}

	messageID := resp.Header.Get("X-Message-Id")
	if messageID == "" {
		messageID = uuid.New().String()
	}

	logger.Debug("message sent", "recipient", msg.ToEmail, "message_id", messageID)
	return messageID, nil
}
