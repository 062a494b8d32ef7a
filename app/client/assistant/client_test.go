package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"lawline/app/config"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiText struct {
	Value       string   `json:"value"`
	Annotations []string `json:"annotations"`
}

type apiContent struct {
	Type string  `json:"type"`
	Text apiText `json:"text"`
}

type apiMessage struct {
	ID        string       `json:"id"`
	Object    string       `json:"object"`
	CreatedAt int64        `json:"created_at"`
	ThreadID  string       `json:"thread_id"`
	Role      string       `json:"role"`
	Content   []apiContent `json:"content"`
}

func threadMessage(id, role, text string) apiMessage {
	return apiMessage{
		ID:        id,
		Object:    "thread.message",
		CreatedAt: 1700000000,
		ThreadID:  "thread-1",
		Role:      role,
		Content: []apiContent{
			{Type: "text", Text: apiText{Value: text, Annotations: []string{}}},
		},
	}
}

// messagesHandler serves the thread message list the way the engine does:
// a window of at most limit items, optionally reversed, optionally starting
// past the after cursor.
func messagesHandler(t *testing.T, all []apiMessage, requests *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		query := r.URL.Query()

		page := append([]apiMessage(nil), all...)
		if query.Get("order") == "desc" {
			for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
				page[i], page[j] = page[j], page[i]
			}
		}

		if after := query.Get("after"); after != "" {
			start := 0
			for i, msg := range page {
				if msg.ID == after {
					start = i + 1
				}
			}
			page = page[start:]
		}

		limit, _ := strconv.Atoi(query.Get("limit"))
		if limit <= 0 {
			limit = len(page)
		}

		hasMore := len(page) > limit
		if hasMore {
			page = page[:limit]
		}

		response := map[string]any{
			"object":   "list",
			"data":     page,
			"has_more": hasMore,
		}
		if len(page) > 0 {
			response["first_id"] = page[0].ID
			response["last_id"] = page[len(page)-1].ID
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}
}

func testClient(baseURL string, pageSize int) *Client {
	clientConfig := openai.DefaultConfig("sk-test")
	clientConfig.BaseURL = baseURL

	return &Client{
		cfg: &config.Config{
			OpenAI: config.OpenAI{Token: "sk-test", AssistantID: "asst-1"},
			Chat:   config.Chat{HistoryLimit: pageSize},
		},
		api: openai.NewClientWithConfig(clientConfig),
	}
}

func fiveMessages() []apiMessage {
	return []apiMessage{
		threadMessage("msg-1", RoleUser, "hello"),
		threadMessage("msg-2", RoleAssistant, "hi, how can I help?"),
		threadMessage("msg-3", RoleUser, "I need a visa extension"),
		threadMessage("msg-4", RoleAssistant, "sure, let me explain"),
		threadMessage("msg-5", RoleUser, "my number is 0812345678"),
	}
}

func TestMessagesAfterPagesThroughLongThreads(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/threads/thread-1/messages", messagesHandler(t, fiveMessages(), &requests))
	server := httptest.NewServer(mux)
	defer server.Close()

	// Thread longer than one page: every message must still come back.
	client := testClient(server.URL+"/v1", 2)

	messages, err := client.MessagesAfter(context.Background(), "thread-1", "")
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, "msg-1", messages[0].ID)
	assert.Equal(t, "msg-5", messages[4].ID)
	assert.Equal(t, "my number is 0812345678", messages[4].Text)
	assert.Equal(t, int32(3), requests.Load(), "two full pages plus the final short one")
}

func TestMessagesAfterStartsPastTheCursor(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/threads/thread-1/messages", messagesHandler(t, fiveMessages(), &requests))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL+"/v1", 2)

	messages, err := client.MessagesAfter(context.Background(), "thread-1", "msg-3")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "msg-4", messages[0].ID)
	assert.Equal(t, "msg-5", messages[1].ID)
}

func TestListMessagesReturnsChronologicalOrder(t *testing.T) {
	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/threads/thread-1/messages", messagesHandler(t, fiveMessages(), &requests))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(server.URL+"/v1", 50)

	messages, err := client.ListMessages(context.Background(), "thread-1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, "msg-1", messages[0].ID)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, "msg-5", messages[4].ID)
}
