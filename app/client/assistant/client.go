package assistant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lawline/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/sashabaranov/go-openai"
)

const requestTimeout = 30 * time.Second

// Client wraps the OpenAI assistants thread API. Conversations live entirely
// on the engine side; callers only hold the opaque conversation id.
type Client struct {
	cfg *config.Config
	api *openai.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	clientConfig := openai.DefaultConfig(cfg.OpenAI.Token)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: requestTimeout,
	}

	return &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	return thread.ID, nil
}

func (c *Client) AppendMessage(ctx context.Context, convID, role, text string) error {
	_, err := c.api.CreateMessage(ctx, convID, openai.MessageRequest{
		Role:    role,
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

func (c *Client) StartRun(ctx context.Context, convID string) (string, error) {
	run, err := c.api.CreateRun(ctx, convID, openai.RunRequest{
		AssistantID: c.cfg.OpenAI.AssistantID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return run.ID, nil
}

func (c *Client) RunState(ctx context.Context, convID, runID string) (RunState, error) {
	run, err := c.api.RetrieveRun(ctx, convID, runID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve run: %w", err)
	}

	return stateFromAPI(run.Status), nil
}

func (c *Client) CancelRun(ctx context.Context, convID, runID string) error {
	if _, err := c.api.CancelRun(ctx, convID, runID); err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}

	return nil
}

// ListMessages returns up to limit messages in chronological order. The
// engine serves newest-first, so the page is reversed before returning.
func (c *Client) ListMessages(ctx context.Context, convID string, limit int) ([]Message, error) {
	order := "desc"

	list, err := c.api.ListMessage(ctx, convID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	result := make([]Message, 0, len(list.Messages))
	for _, msg := range list.Messages {
		result = append(result, fromAPI(msg))
	}

	return pie.Reverse(result), nil
}

// MessagesAfter returns every message strictly after the given message id in
// chronological order, paging through the engine until the tail is
// exhausted. An empty afterID starts from the beginning of the thread. This
// is the delta primitive: the suffix is keyed on a message id, never on a
// count against a truncated window.
func (c *Client) MessagesAfter(ctx context.Context, convID, afterID string) ([]Message, error) {
	order := "asc"
	pageSize := c.cfg.Chat.HistoryLimit

	var result []Message

	cursor := afterID
	for {
		var after *string
		if cursor != "" {
			after = &cursor
		}

		list, err := c.api.ListMessage(ctx, convID, &pageSize, &order, after, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages after %q: %w", cursor, err)
		}

		for _, msg := range list.Messages {
			result = append(result, fromAPI(msg))
		}

		if !list.HasMore || len(list.Messages) == 0 {
			return result, nil
		}

		cursor = list.Messages[len(list.Messages)-1].ID
	}
}

// LatestAssistantText returns the newest assistant message of the
// conversation. A completed run that produced nothing is an error, not an
// empty answer.
func (c *Client) LatestAssistantText(ctx context.Context, convID string) (string, error) {
	messages, err := c.ListMessages(ctx, convID, 5)
	if err != nil {
		return "", err
	}

	assistantMessages := pie.Filter(messages, func(m Message) bool {
		return m.Role == RoleAssistant && m.Text != ""
	})
	if len(assistantMessages) == 0 {
		return "", fmt.Errorf("no assistant message found in conversation %s", convID)
	}

	return assistantMessages[len(assistantMessages)-1].Text, nil
}

func fromAPI(msg openai.Message) Message {
	return Message{
		ID:        msg.ID,
		Role:      msg.Role,
		Text:      messageText(msg),
		CreatedAt: time.Unix(int64(msg.CreatedAt), 0),
	}
}

func messageText(msg openai.Message) string {
	for _, content := range msg.Content {
		if content.Type == "text" && content.Text != nil {
			return content.Text.Value
		}
	}

	return ""
}
