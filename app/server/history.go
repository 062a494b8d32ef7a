package server

import (
	"html/template"
	"log/slog"

	_ "embed"

	"lawline/app/client/assistant"
	"lawline/app/util/textutil"

	"github.com/gofiber/fiber/v2"
)

//go:embed history.html.tmpl
var historyTemplateText string

var historyTemplate = template.Must(template.New("history").Parse(historyTemplateText))

type historyEntry struct {
	Label string
	Text  string
	Time  string
}

type historyPage struct {
	ConversationID string
	Entries        []historyEntry
}

// handleHistory renders the read-only conversation viewer used by deep
// links in relay notifications.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	convID := c.Params("id")

	messages, err := s.history.ListMessages(c.Context(), convID, s.cfg.Chat.HistoryLimit)
	if err != nil {
		slog.Warn("Failed to load history", "conversation", convID, "error", err)

		return c.Status(fiber.StatusNotFound).SendString("Conversation not found")
	}

	page := historyPage{ConversationID: convID}
	for _, msg := range messages {
		label := "Client"
		if msg.Role == assistant.RoleAssistant {
			label = "Bot"
		}

		page.Entries = append(page.Entries, historyEntry{
			Label: label,
			Text:  textutil.Normalize(msg.Text),
			Time:  msg.CreatedAt.Format("02.01.2006 15:04"),
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)

	return historyTemplate.Execute(c, page)
}
