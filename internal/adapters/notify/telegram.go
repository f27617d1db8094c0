package notify

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

	"github.com/alejandrodnm/whalewatch/internal/domain"
	"golang.org/x/time/rate"
)

// ErrNotConfigured indica que faltan el token o el chat id.
var ErrNotConfigured = errors.New("telegram: bot token or chat id not configured")

const defaultTelegramBase = "https://api.telegram.org"

// Telegram implementa ports.Notifier enviando cada alerta con sendMessage.
type Telegram struct {
	http    *http.Client
	base    string
	token   string
	chatID  string
	limiter *rate.Limiter
	format  FormatOptions
}

// NewTelegram crea el notificador. Con base vacío usa la API pública.
func NewTelegram(base, token, chatID string, format FormatOptions) *Telegram {
	if base == "" {
		base = defaultTelegramBase
	}
	return &Telegram{
		http:   &http.Client{Timeout: 10 * time.Second},
		base:   strings.TrimRight(base, "/"),
		token:  token,
		chatID: chatID,
		// Telegram permite ~1 msg/s por chat; burst para ráfagas cortas.
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		format:  format,
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify envía la alerta. Nunca reintenta: el scanner loguea el error y sigue.
func (t *Telegram) Notify(ctx context.Context, signal domain.AlertSignal) error {
	if t.token == "" || t.chatID == "" {
		return ErrNotConfigured
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram.Notify: rate limiter: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  FormatMessage(signal, t.format),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram.Notify: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram.Notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// El error de net/http incluye la URL con el token.
		return fmt.Errorf("telegram.Notify: send: %s", strings.ReplaceAll(err.Error(), t.token, "<token>"))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var out sendMessageResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = string(raw)
		}
		return fmt.Errorf("telegram.Notify: status %d: %s", resp.StatusCode, desc)
	}
	return nil
}
