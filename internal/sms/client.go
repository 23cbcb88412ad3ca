package sms

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

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

const defaultUserAgent = "amaraspa-scheduling/0.1"

// Config controls how the gateway client behaves. Credentials are injected
// here rather than read from ambient globals.
type Config struct {
	BaseURL    string
	APIKey     string
	SenderCode string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
}

// Client posts messages to the clinic's SMS gateway.
type Client struct {
	baseURL    string
	apiKey     string
	senderCode string
	httpClient *http.Client
	logger     *logging.Logger
	userAgent  string
}

// SendResponse is the gateway's acknowledgement of one message.
type SendResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// NewClient creates a configured gateway client with sane defaults.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sms: API key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("sms: gateway base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		senderCode: cfg.SenderCode,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  userAgent,
	}, nil
}

// Send posts one message. A non-2xx response or transport error is returned
// as an error; the caller decides whether it is worth retrying.
func (c *Client) Send(ctx context.Context, to, body string) (*SendResponse, error) {
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("sms: destination required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("sms: body required")
	}

	payload, err := json.Marshal(struct {
		Sender  string `json:"sender"`
		To      string `json:"to"`
		Message string `json:"message"`
	}{
		Sender:  c.senderCode,
		To:      to,
		Message: body,
	})
	if err != nil {
		return nil, fmt.Errorf("sms: marshal send body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("sms: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("sms: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}

	var parsed SendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("sms: decode response: %w", err)
	}
	if parsed.Status == "" {
		parsed.Status = "queued"
	}
	return &parsed, nil
}

type apiError struct {
	StatusCode int    `json:"-"`
	Title      string `json:"title,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (e *apiError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("sms: %s (status=%d)", e.Detail, e.StatusCode)
	}
	if e.Title != "" {
		return fmt.Sprintf("sms: %s (status=%d)", e.Title, e.StatusCode)
	}
	return fmt.Sprintf("sms: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &apiError{StatusCode: status, Detail: strings.TrimSpace(string(body))}
	}
	parsed.StatusCode = status
	return &parsed
}
