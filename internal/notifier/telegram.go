// Package notifier delivers operator-facing messages. Delivery is
// best-effort everywhere: callers discard the error explicitly.
package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Notifier interface {
	Enabled() bool
	Send(ctx context.Context, text string) error
}

type Telegram struct {
	Token  string
	ChatID string
	HTTP   *http.Client

	// BaseURL is overridable for tests.
	BaseURL string
}

func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		BaseURL: "https://api.telegram.org",
	}
}

func (t *Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != ""
}

// Send posts a sendMessage form. The response body is ignored beyond the
// status code; the bot API is fire-and-forget for this tool.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return fmt.Errorf("telegram not configured")
	}
	form := url.Values{}
	form.Set("chat_id", t.ChatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := t.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 2048))
	if res.StatusCode >= 300 {
		return fmt.Errorf("telegram status %d", res.StatusCode)
	}
	return nil
}
