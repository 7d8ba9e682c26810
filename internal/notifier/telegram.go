package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/applynow/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers alerts through the Telegram Bot API sendMessage method.
type TelegramNotifier struct {
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewTelegramNotifier returns a notifier that sends as the bot identified by
// token. Sends are throttled to perSecond messages per second.
func NewTelegramNotifier(token string, perSecond float64, httpClient *http.Client, logger *slog.Logger) *TelegramNotifier {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &TelegramNotifier{
		token:      token,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		logger:     logger,
	}
}

type telegramRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts text to the chat of subscriberID. A 429 is retried once after
// the advertised delay.
func (t *TelegramNotifier) Send(ctx context.Context, subscriberID int64, text string) error {
	body, err := json.Marshal(telegramRequest{
		ChatID:                subscriberID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	retryAfter, err := t.post(ctx, body)
	if err == nil {
		t.logger.Debug("telegram message sent", "user_id", subscriberID)
		return nil
	}
	if retryAfter <= 0 {
		return err
	}

	t.logger.Warn("telegram rate limited, retrying", "user_id", subscriberID, "retry_after", retryAfter)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryAfter):
	}

	if _, err := t.post(ctx, body); err != nil {
		return fmt.Errorf("telegram retry: %w", err)
	}
	t.logger.Debug("telegram message sent", "user_id", subscriberID, "retried", true)
	return nil
}

// post sends one request. On a 429 it returns the delay to wait before retrying.
func (t *TelegramNotifier) post(ctx context.Context, body []byte) (time.Duration, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, nil
	}

	var tr telegramResponse
	json.NewDecoder(resp.Body).Decode(&tr)
	httpErr := &model.HTTPError{
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("telegram: %s", tr.Description),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		secs := tr.Parameters.RetryAfter
		if secs <= 0 {
			secs, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
		}
		if secs <= 0 {
			secs = 1
		}
		httpErr.RetryAfter = time.Duration(secs) * time.Second
		return httpErr.RetryAfter, httpErr
	}
	return 0, httpErr
}
