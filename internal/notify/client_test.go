package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyCompletionRequest(t *testing.T) {
	var gotPath, gotToken, gotContentType string
	var gotBody emailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("x-apigateway-token")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token", discardLogger())
	err := client.NotifyCompletion(context.Background(), "user@example.com", "My Video", "abc_My_Video_frames.zip")
	require.NoError(t, err)

	assert.Equal(t, "/notification/send-email", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "user@example.com", gotBody.To)
	assert.Equal(t, "Processing Completed: My Video", gotBody.Subject)
	assert.Contains(t, gotBody.Body, "abc_My_Video_frames.zip")
}

func TestNotifyFailureIncludesError(t *testing.T) {
	var gotBody emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token", discardLogger())
	err := client.NotifyFailure(context.Background(), "user@example.com", "Broken Video", "no frames extracted")
	require.NoError(t, err)

	assert.Equal(t, "Processing Failed: Broken Video", gotBody.Subject)
	assert.Contains(t, gotBody.Body, "no frames extracted")
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "wrong-token", discardLogger())
	err := client.NotifyCompletion(context.Background(), "user@example.com", "T", "a.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestUnconfiguredClientSkipsSilently(t *testing.T) {
	client := NewClient("", "", discardLogger())
	assert.False(t, client.Configured())

	err := client.NotifyCompletion(context.Background(), "user@example.com", "T", "a.zip")
	assert.NoError(t, err)
}
