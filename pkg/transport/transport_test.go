package transport_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gustolabs/fluxo/pkg/models"
	"github.com/gustolabs/fluxo/pkg/transport"
)

func TestHTTPSender_Send(t *testing.T) {
	var received transport.Message

	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := transport.NewHTTPSender(slog.Default(), server.URL, "secret-key")

	err := sender.Send(context.Background(), transport.Message{
		To:      "ana@example.com",
		Subject: "Bem-vinda!",
		Body:    "Olá Ana",
		Channel: models.ChannelEmail,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-key", authHeader)
	assert.Equal(t, "ana@example.com", received.To)
	assert.Equal(t, "Olá Ana", received.Body)
}

func TestHTTPSender_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender := transport.NewHTTPSender(slog.Default(), server.URL, "")

	err := sender.Send(context.Background(), transport.Message{To: "ana@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMemorySender(t *testing.T) {
	sender := transport.NewMemorySender()
	sender.FailFor["broken@example.com"] = true

	require.NoError(t, sender.Send(context.Background(), transport.Message{To: "ana@example.com"}))
	assert.ErrorIs(t, sender.Send(context.Background(), transport.Message{To: "broken@example.com"}), transport.ErrSendFailed)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)
}
