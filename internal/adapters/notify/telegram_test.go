package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/whalewatch/internal/adapters/notify"
	"github.com/alejandrodnm/whalewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_Notify_Sends(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botTOKEN123/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram(srv.URL, "TOKEN123", "-10042", notify.FormatOptions{})
	require.NoError(t, tg.Notify(context.Background(), makeSignal(domain.ClassSingle)))

	assert.Equal(t, "-10042", got["chat_id"])
	assert.Equal(t, true, got["disable_web_page_preview"])
	assert.Contains(t, got["text"], "🐋 Whale Alert")
}

func TestTelegram_Notify_NotConfigured(t *testing.T) {
	tg := notify.NewTelegram("", "", "", notify.FormatOptions{})
	err := tg.Notify(context.Background(), makeSignal(domain.ClassSingle))
	assert.ErrorIs(t, err, notify.ErrNotConfigured)
}

func TestTelegram_Notify_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	tg := notify.NewTelegram(srv.URL, "TOKEN123", "-1", notify.FormatOptions{})
	err := tg.Notify(context.Background(), makeSignal(domain.ClassSingle))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_Notify_NetworkErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tg := notify.NewTelegram(url, "SECRET-TOKEN", "-1", notify.FormatOptions{})
	err := tg.Notify(context.Background(), makeSignal(domain.ClassSingle))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TOKEN")
}
