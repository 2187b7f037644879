package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shopify-price-manager/internal/config"
)

// Notifier delivers a human readable message to an out-of-band channel.
type Notifier interface {
	Notify(message string) error
}

type telegramRequest struct {
	ChatId string `json:"chat_id"`
	Text   string `json:"text"`
}

const (
	iconError   = "❌"
	iconSuccess = "✅"

	telegramAPIBase = "https://api.telegram.org"
)

type TelegramNotifier struct {
	creds      config.TelegramBotConfig
	baseURL    string
	httpClient *http.Client
}

// NewTelegramNotifier returns nil when the bot credentials are incomplete.
func NewTelegramNotifier(creds config.TelegramBotConfig, httpClient *http.Client) *TelegramNotifier {
	if creds.ChatId == "" || creds.Token == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TelegramNotifier{creds: creds, baseURL: telegramAPIBase, httpClient: httpClient}
}

func (t *TelegramNotifier) Notify(message string) error {
	if t == nil {
		return nil
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.baseURL, "/"), t.creds.Token)

	bodyBytes, err := json.Marshal(telegramRequest{
		ChatId: t.creds.ChatId,
		Text:   message,
	})
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Post(url, "application/json", bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram send failed: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func formatMessage(icon, level, value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		v = "-"
	}
	return fmt.Sprintf("%s %s: %s", icon, level, v)
}
