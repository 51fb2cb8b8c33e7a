package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mizan/internal/relay"
	"mizan/internal/testsupport"
)

func TestExtractReply(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"output field", `{"output":"hello"}`, "hello"},
		{"reply field", `{"reply":"hi there"}`, "hi there"},
		{"response field", `{"response":"ok"}`, "ok"},
		{"message field", `{"message":"done"}`, "done"},
		{"output wins over message", `{"message":"no","output":"yes"}`, "yes"},
		{"bare string body", `"plain answer"`, "plain answer"},
		{"empty object", `{}`, ""},
		{"non-string field", `{"output":42}`, ""},
		{"invalid json", `<html>`, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, relay.ExtractReply([]byte(tc.body)))
		})
	}
}

func TestSend(t *testing.T) {
	logger := testsupport.GetLogger()

	t.Run("forwards the message and returns the reply", func(t *testing.T) {
		var received relay.Message
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"output": "the answer"})
		}))
		defer server.Close()

		client := relay.NewClient(server.URL, 5*time.Second, logger)
		reply, err := client.Send(context.Background(), relay.Message{
			Message:   "a question",
			SessionID: "s1",
		})

		require.NoError(t, err)
		assert.Equal(t, "the answer", reply)
		assert.Equal(t, "a question", received.Message)
		assert.Equal(t, "s1", received.SessionID)
	})

	t.Run("upstream error status falls back, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := relay.NewClient(server.URL, 5*time.Second, logger)
		reply, err := client.Send(context.Background(), relay.Message{Message: "q", SessionID: "s"})

		require.NoError(t, err)
		assert.Equal(t, relay.FallbackReply, reply)
	})

	t.Run("unparseable body falls back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>oops</html>"))
		}))
		defer server.Close()

		client := relay.NewClient(server.URL, 5*time.Second, logger)
		reply, err := client.Send(context.Background(), relay.Message{Message: "q", SessionID: "s"})

		require.NoError(t, err)
		assert.Equal(t, relay.FallbackReply, reply)
	})

	t.Run("unreachable upstream falls back", func(t *testing.T) {
		client := relay.NewClient("http://127.0.0.1:1", time.Second, logger)
		reply, err := client.Send(context.Background(), relay.Message{Message: "q", SessionID: "s"})

		require.NoError(t, err)
		assert.Equal(t, relay.FallbackReply, reply)
	})

	t.Run("missing configuration is an error", func(t *testing.T) {
		client := relay.NewClient("", time.Second, logger)
		assert.False(t, client.Configured())

		_, err := client.Send(context.Background(), relay.Message{Message: "q", SessionID: "s"})
		assert.ErrorIs(t, err, relay.ErrNotConfigured)
	})
}
