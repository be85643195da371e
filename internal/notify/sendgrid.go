package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sn-foods/commerce-api/internal/config"
	"github.com/sn-foods/commerce-api/internal/domain"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.sendgrid.com"

// SendError reports a failed dispatch. The response body text is kept so
// provider-side rejections are diagnosable from logs alone.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email dispatch failed with status %d: %s", e.StatusCode, e.Body)
}

// Client dispatches transactional email through the SendGrid v3 API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	fromName   string
	enabled    bool

	inviteSignInURL string

	logger *zap.Logger
}

// NewClient creates a new SendGrid client
func NewClient(cfg *config.EmailConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.TimeoutDuration()},
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		enabled:    cfg.Enabled,

		inviteSignInURL: cfg.InviteSignInURL,

		logger: logger,
	}
}

// WithBaseURL overrides the API endpoint, used in tests
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// mail/send request payload, SendGrid v3 shape
type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// SendOrderApproval sends the order approval email. A non-2xx response is
// returned as a SendError carrying the provider's response body.
func (c *Client) SendOrderApproval(ctx context.Context, recipient domain.Recipient, order *domain.Order) error {
	if !c.enabled {
		c.logger.Info("email dispatch disabled, skipping approval email",
			zap.String("order_number", order.OrderNumber),
			zap.String("recipient", recipient.Email),
		)
		return nil
	}

	subject, html := ApprovalEmail(recipient, order)
	return c.send(ctx, recipient, subject, html)
}

// SendUserInvite sends the invitation email for an admin-issued invitation.
func (c *Client) SendUserInvite(ctx context.Context, invitation *domain.UserInvitation) error {
	if !c.enabled {
		c.logger.Info("email dispatch disabled, skipping invite email",
			zap.String("recipient", invitation.Email),
		)
		return nil
	}

	recipient := domain.Recipient{Email: invitation.Email, Name: invitation.FullName}
	subject, html := InviteEmail(invitation, c.inviteSignInURL)
	return c.send(ctx, recipient, subject, html)
}

func (c *Client) send(ctx context.Context, recipient domain.Recipient, subject, html string) error {
	payload := sendRequest{
		Personalizations: []personalization{
			{To: []emailAddress{{Email: recipient.Email, Name: recipient.Name}}},
		},
		From:    emailAddress{Email: c.fromEmail, Name: c.fromName},
		Subject: subject,
		Content: []content{{Type: "text/html", Value: html}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &SendError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	return nil
}
