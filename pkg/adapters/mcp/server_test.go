package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/pmguide"
	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionID = "6f1c1e9a-3d56-4b8f-9d2a-2f1d8c7b5a40"

func newTestServer() *Server {
	return NewServer(pmguide.New())
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	for _, tool := range []mcp.Tool{sendMessageTool, getSessionTool, resetSessionTool, searchFAQTool, nextStepTool} {
		assert.NotEmpty(t, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.Equal(t, "send_message", sendMessageTool.Name)
	assert.Contains(t, sendMessageTool.InputSchema.Required, "session_id")
}

func TestSendMessageAndSession(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	args := map[string]any{"session_id": sessionID, "message": "必要な書類は？"}
	resp, err := s.handleSendMessage(ctx, callRequest(args), args)
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "必要書類")
	assert.NotEmpty(t, resp.Attachments)

	res, err := s.handleGetSession(ctx, callRequest(map[string]any{"session_id": sessionID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var summary struct {
		MessageCount int `json:"messageCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &summary))
	assert.Equal(t, 2, summary.MessageCount)

	res, err = s.handleResetSession(ctx, callRequest(map[string]any{"session_id": sessionID}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetSession(ctx, callRequest(map[string]any{"session_id": sessionID}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSendMessage_Invalid(t *testing.T) {
	s := newTestServer()
	args := map[string]any{"session_id": "nope", "message": ""}
	_, err := s.handleSendMessage(context.Background(), callRequest(args), args)
	var verr *validator.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Details, 2)
}

func TestSearchFAQ(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleSearchFAQ(ctx, callRequest(map[string]any{"query": "プライバシーマーク取得にかかる期間はどれくらいですか"}))
	require.NoError(t, err)
	var faq domain.FAQ
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &faq))
	assert.Equal(t, "faq_001", faq.ID)

	res, err = s.handleSearchFAQ(ctx, callRequest(map[string]any{"query": "zzz"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No matching FAQ entry.", textOf(t, res))

	res, err = s.handleSearchFAQ(ctx, callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNextStep(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleNextStep(ctx, callRequest(map[string]any{"step_id": "onsite_audit"}))
	require.NoError(t, err)
	var info knowledge.NextStepInfo
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &info))
	assert.Equal(t, "審査結果通知", info.NextStep)

	res, err = s.handleNextStep(ctx, callRequest(map[string]any{"step_id": "nowhere"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &info))
	require.NotNil(t, info.Overview)
	assert.Len(t, info.Overview.Steps, 7)
}

func TestReadFlow(t *testing.T) {
	s := newTestServer()
	contents, err := s.readFlow(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, FlowURI, text.URI)

	var overview knowledge.FlowOverview
	require.NoError(t, json.Unmarshal([]byte(text.Text), &overview))
	assert.Equal(t, "6-12ヶ月", overview.TotalDuration)
}
