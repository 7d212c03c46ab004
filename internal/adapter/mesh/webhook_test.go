package mesh

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSink_Deliver(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 5*time.Second, true)
	require.NoError(t, s.Deliver(context.Background(), "⚠️Flash Flood Watch", 3))

	assert.Equal(t, Payload{Channel: 3, Text: "⚠️Flash Flood Watch", WantAck: true}, got)
}

func TestWebhookSink_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "radio offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 5*time.Second, false)
	err := s.Deliver(context.Background(), "hello", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "radio offline")
}

func TestWebhookSink_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, 50*time.Millisecond, false)
	err := s.Deliver(context.Background(), "hello", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestWebhookSink_Validate(t *testing.T) {
	assert.Error(t, NewWebhookSink("", time.Second, false).Validate())
	assert.NoError(t, NewWebhookSink("http://gateway.local/send", time.Second, false).Validate())
}
