package logging

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"shopify-price-manager/internal/config"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingNotifier) Notify(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return r.err
}

func TestLogger_ForwardsErrorsAndSuccessOnly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	notifier := &recordingNotifier{}
	logger := New(zap.New(core), notifier).With(zap.String("store", "alpha"))

	logger.Log("sync started")
	logger.LogWarning("low points")
	logger.LogError("sync failed", errors.New("boom"))
	logger.LogSuccess("sync completed")

	require.Equal(t, 4, logs.Len())
	entry := logs.All()[2]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "alpha", entry.ContextMap()["store"])
	assert.Equal(t, "boom", entry.ContextMap()["error"])

	assert.Equal(t, []string{
		"❌ ERROR: sync failed: boom",
		"✅ SUCCESS: sync completed",
	}, notifier.messages)
}

func TestLogger_NotifierFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core), &recordingNotifier{err: errors.New("offline")})

	logger.LogSuccess("done")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "telegram notification failed", logs.All()[1].Message)
}

func TestTelegramNotifier_Notify(t *testing.T) {
	var got telegramRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.TelegramBotConfig{ChatId: "42", Token: "secret"}, srv.Client())
	require.NotNil(t, n)
	n.baseURL = srv.URL

	require.NoError(t, n.Notify("hello"))
	assert.Equal(t, "/botsecret/sendMessage", path)
	assert.Equal(t, telegramRequest{ChatId: "42", Text: "hello"}, got)
}

func TestTelegramNotifier_MissingCredentials(t *testing.T) {
	assert.Nil(t, NewTelegramNotifier(config.TelegramBotConfig{Token: "x"}, nil))
}

func TestTelegramNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad chat", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.TelegramBotConfig{ChatId: "1", Token: "t"}, srv.Client())
	n.baseURL = srv.URL
	assert.ErrorContains(t, n.Notify("x"), "telegram send failed")
}
