package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/pmguide"
	"github.com/aretw0/pmguide/internal/logging"
	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FlowURI is the resource exposing the certification flow overview.
const FlowURI = "pmguide://flow"

// Engine is the dialogue surface exposed as MCP tools.
type Engine interface {
	Chat(ctx context.Context, sessionID, userID, message string) (*domain.ChatResponse, error)
	Session(ctx context.Context, sessionID string) (*domain.ConversationContext, error)
	Reset(ctx context.Context, sessionID string) error
	Knowledge() *knowledge.Base
}

// Server wraps the Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	validator *validator.Validator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithValidator replaces the default message validator.
func WithValidator(v *validator.Validator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		validator: validator.New(),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("pmguide-mcp", strings.TrimSpace(pmguide.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

var (
	sendMessageTool = mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to the Privacy Mark certification guide and get its reply. The session is created on first use."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithString("user_id", mcp.Description("Optional user identifier for attribution")),
		mcp.WithOutputSchema[domain.ChatResponse](),
	)
	getSessionTool = mcp.NewTool("get_session",
		mcp.WithDescription("Get the progress and message count of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
	)
	resetSessionTool = mcp.NewTool("reset_session",
		mcp.WithDescription("Delete a session so the next message starts over."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
	)
	searchFAQTool = mcp.NewTool("search_faq",
		mcp.WithDescription("Search the FAQ of the Privacy Mark knowledge base."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or keywords")),
	)
	nextStepTool = mcp.NewTool("next_step",
		mcp.WithDescription("Describe the step that follows the given certification step. Unknown steps return the whole flow."),
		mcp.WithString("step_id", mcp.Required(), mcp.Description("Current step ID, e.g. onsite_audit")),
	)
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(sendMessageTool, mcp.NewStructuredToolHandler(s.handleSendMessage))
	s.mcpServer.AddTool(getSessionTool, s.handleGetSession)
	s.mcpServer.AddTool(resetSessionTool, s.handleResetSession)
	s.mcpServer.AddTool(searchFAQTool, s.handleSearchFAQ)
	s.mcpServer.AddTool(nextStepTool, s.handleNextStep)
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.ChatResponse, error) {
	sessionID, _ := args["session_id"].(string)
	message, _ := args["message"].(string)
	userID, _ := args["user_id"].(string)

	in, err := s.validator.ChatMessage(validator.ChatMessage{Message: message, SessionID: sessionID, UserID: userID})
	if err != nil {
		s.logger.Warn("MCP send_message: input rejected", "err", err, "size", len(message))
		return domain.ChatResponse{}, err
	}

	resp, err := s.engine.Chat(ctx, in.SessionID, in.UserID, in.Message)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("chat failed: %w", err)
	}
	return *resp, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	cc, err := s.engine.Session(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", sessionID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"sessionId":           cc.SessionID,
		"applicationProgress": cc.Progress,
		"messageCount":        len(cc.History),
	})
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	if err := s.engine.Reset(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return mcp.NewToolResultText("セッションがリセットされました"), nil
}

func (s *Server) handleSearchFAQ(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	faq, ok := s.engine.Knowledge().SearchFAQ(query)
	if !ok {
		return mcp.NewToolResultText("No matching FAQ entry."), nil
	}
	return jsonResult(faq)
}

func (s *Server) handleNextStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stepID, err := request.RequireString("step_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: step_id"), nil
	}
	return jsonResult(s.engine.Knowledge().NextStep(stepID))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowURI, "Privacy Mark certification flow",
		mcp.WithResourceDescription("Ordered steps, total duration and critical points"),
		mcp.WithMIMEType("application/json"),
	), s.readFlow)
}

func (s *Server) readFlow(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(s.engine.Knowledge().FlowOverview())
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FlowURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
