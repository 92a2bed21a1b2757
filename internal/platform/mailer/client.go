package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/edusync/moodle-sync/internal/platform/envutil"
	"github.com/edusync/moodle-sync/internal/platform/httpx"
	"github.com/edusync/moodle-sync/internal/platform/logger"
)

// Client sends operator alert mail when a sync run fails.
type Client interface {
	SendAlert(ctx context.Context, subject, body string) error
}

type Config struct {
	APIKey     string
	BaseURL    string
	Sender     string
	Recipients []string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	recipients := []string{}
	for _, r := range strings.Split(os.Getenv("MOODLE_ERROR_MAIL_RECIPIENTS"), ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("MAIL_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("MAIL_BASE_URL")),
		Sender:     strings.TrimSpace(os.Getenv("MOODLE_ERROR_MAIL_SENDER")),
		Recipients: recipients,
		Timeout:    time.Duration(envutil.Int("MAIL_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries: envutil.Int("MAIL_MAX_RETRIES", 4),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing MAIL_API_KEY")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	return &client{
		log:        log.With("client", "MailerClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type emailAddress struct {
	Email string `json:"email"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

func (c *client) SendAlert(ctx context.Context, subject, body string) error {
	if strings.TrimSpace(c.cfg.Sender) == "" {
		return fmt.Errorf("mailer: sender required (set MOODLE_ERROR_MAIL_SENDER)")
	}
	if len(c.cfg.Recipients) == 0 {
		return fmt.Errorf("mailer: recipients required (set MOODLE_ERROR_MAIL_RECIPIENTS)")
	}
	if strings.TrimSpace(subject) == "" {
		return fmt.Errorf("mailer: subject required")
	}

	to := make([]emailAddress, 0, len(c.cfg.Recipients))
	for _, r := range c.cfg.Recipients {
		to = append(to, emailAddress{Email: r})
	}

	wire := mailSendRequest{
		Personalizations: []personalization{{To: to}},
		From:             emailAddress{Email: c.cfg.Sender},
		Subject:          strings.TrimSpace(subject),
		Content:          []mailContent{{Type: "text/plain", Value: body}},
	}

	return c.do(ctx, "/v3/mail/send", wire)
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("mailer http %d: %s", e.StatusCode, msg)
}

func (c *client) do(ctx context.Context, path string, body any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := c.doOnce(ctx, path, body)
		if err == nil {
			return nil
		}

		retryable := httpx.IsRetryableError(err)
		var he *HTTPError
		if errors.As(err, &he) {
			retryable = httpx.IsRetryableHTTPStatus(he.StatusCode)
		}
		if !retryable || attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("mail send retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}
