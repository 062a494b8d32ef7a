package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lawline/app/client/assistant"
	"lawline/app/config"
	"lawline/app/service/chat"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/samber/do"
)

// ChatService handles one inbound message and always produces a user-safe
// reply.
type ChatService interface {
	HandleMessage(ctx context.Context, convID, text string) chat.Reply
}

// History reads the full message list for the viewer page.
type History interface {
	ListMessages(ctx context.Context, convID string, limit int) ([]assistant.Message, error)
}

// Server is the thin HTTP edge: routing, CORS and request parsing. All
// behavior lives in the services underneath.
type Server struct {
	cfg     *config.Config
	chatSvc ChatService
	history History

	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	s := &Server{
		cfg:     do.MustInvoke[*config.Config](di),
		chatSvc: do.MustInvoke[*chat.Service](di),
		history: do.MustInvoke[*assistant.Client](di),
	}

	s.app = newApp(s)

	return s, nil
}

func newApp(s *Server) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/", s.handleStatus)
	app.Post("/chat", s.handleChat)
	app.Get("/history/:id", s.handleHistory)

	return app
}

// Run serves until the app context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- s.app.Listen(fmt.Sprintf(":%d", s.cfg.Server.Port))
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		return nil
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// handleChat always answers 200: engine-side trouble degrades to a neutral
// reply so the embedding front-end keeps working.
func (s *Server) handleChat(c *fiber.Ctx) error {
	requestID := uuid.NewString()

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Warn("Malformed chat request", "request", requestID, "error", err)

		return c.JSON(chatResponse{
			Response: "Please send a message so I can help you.",
		})
	}

	start := time.Now()
	reply := s.chatSvc.HandleMessage(c.Context(), req.ConversationID, req.Message)

	slog.Info("Handled chat message",
		"request", requestID,
		"conversation", reply.ConversationID,
		"duration", time.Since(start),
	)

	return c.JSON(chatResponse{
		Response:       reply.Text,
		ConversationID: reply.ConversationID,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "lawline",
	})
}
