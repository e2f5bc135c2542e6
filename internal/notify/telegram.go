package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TelegramSink posts message text to a Telegram chat through the bot API.
type TelegramSink struct {
	Token   string
	ChatID  string
	BaseURL string
	Client  *http.Client
}

// NewTelegramSink creates a sink for the bot token and chat.
func NewTelegramSink(token, chatID string) *TelegramSink {
	return &TelegramSink{
		Token:   token,
		ChatID:  chatID,
		BaseURL: "https://api.telegram.org",
		Client:  &http.Client{},
	}
}

func (s *TelegramSink) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("chat_id", s.ChatID)
	form.Set("text", msg.Text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.BaseURL, "/"), s.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram send: status %d", resp.StatusCode)
	}
	return nil
}
