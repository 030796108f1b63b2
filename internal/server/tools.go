package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/auditlog"
	"github.com/oemwatch/alertassist/internal/engine"
	apperrors "github.com/oemwatch/alertassist/internal/errors"
)

// Tool is the interface every MCP tool implements.
type Tool interface {
	Name() string
	Description() string
	InputSchema() interface{}
	Annotations() *mcp.ToolAnnotations
	Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error)
}

// readOnlyAnnotations returns annotations for tools that never mutate state.
func readOnlyAnnotations(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          title,
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false), // the alert table is a bounded system
	}
}

func boolPtr(b bool) *bool { return &b }

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	text := err.Error()
	if se, ok := err.(*apperrors.StructuredError); ok {
		text = se.ToJSON()
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

func getStringParam(arguments map[string]interface{}, name string, required bool) (string, error) {
	v, ok := arguments[name]
	if !ok {
		if required {
			return "", apperrors.NewInvalidInput(fmt.Sprintf("missing required parameter %q", name))
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apperrors.NewInvalidInput(fmt.Sprintf("parameter %q must be a string", name))
	}
	return s, nil
}

// AskTool processes one conversation turn against the alert table.
type AskTool struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewAskTool creates the ask tool.
func NewAskTool(eng *engine.Engine, logger *zap.Logger) *AskTool {
	return &AskTool{engine: eng, logger: logger}
}

// Name returns the tool name
func (t *AskTool) Name() string { return "ask_alerts" }

// Description returns the tool description
func (t *AskTool) Description() string {
	return "Ask a natural-language question about the operational alert table. " +
		"Supports follow-ups within a session ('show me 20', 'only critical', 'this database')."
}

// Annotations returns tool hints
func (t *AskTool) Annotations() *mcp.ToolAnnotations {
	return readOnlyAnnotations("Ask About Alerts")
}

// InputSchema returns the input schema
func (t *AskTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "The natural-language question, e.g. 'how many standby alerts?'",
			},
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Opaque conversation identifier; follow-ups must reuse it",
			},
		},
		"required": []string{"question", "session_id"},
	}
}

// Execute processes the turn.
func (t *AskTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	question, err := getStringParam(arguments, "question", true)
	if err != nil {
		return errorResult(err), nil
	}
	sessionID, err := getStringParam(arguments, "session_id", true)
	if err != nil {
		return errorResult(err), nil
	}

	answer, err := t.engine.Ask(ctx, sessionID, question)
	if err != nil {
		return errorResult(err), nil
	}

	payload, err := json.Marshal(answer)
	if err != nil {
		return errorResult(apperrors.NewInternal("failed to encode answer")), nil
	}
	return textResult(string(payload)), nil
}

// ResetSessionTool clears a session's context and fact ledger.
type ResetSessionTool struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewResetSessionTool creates the reset tool.
func NewResetSessionTool(eng *engine.Engine, logger *zap.Logger) *ResetSessionTool {
	return &ResetSessionTool{engine: eng, logger: logger}
}

// Name returns the tool name
func (t *ResetSessionTool) Name() string { return "reset_session" }

// Description returns the tool description
func (t *ResetSessionTool) Description() string {
	return "Clear a session's conversation context and fact ledger; the next question starts fresh."
}

// Annotations returns tool hints
func (t *ResetSessionTool) Annotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		Title:          "Reset Session",
		IdempotentHint: true,
	}
}

// InputSchema returns the input schema
func (t *ResetSessionTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "The session to reset",
			},
		},
		"required": []string{"session_id"},
	}
}

// Execute resets the session.
func (t *ResetSessionTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	sessionID, err := getStringParam(arguments, "session_id", true)
	if err != nil {
		return errorResult(err), nil
	}
	t.engine.Store().Reset(sessionID)
	return textResult(fmt.Sprintf(`{"session_id":%q,"reset":true}`, sessionID)), nil
}

// SessionSummaryTool reports a session's current context and recent facts.
type SessionSummaryTool struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewSessionSummaryTool creates the summary tool.
func NewSessionSummaryTool(eng *engine.Engine, logger *zap.Logger) *SessionSummaryTool {
	return &SessionSummaryTool{engine: eng, logger: logger}
}

// Name returns the tool name
func (t *SessionSummaryTool) Name() string { return "session_summary" }

// Description returns the tool description
func (t *SessionSummaryTool) Description() string {
	return "Inspect a session's active topic, filters, turn history, and recorded facts."
}

// Annotations returns tool hints
func (t *SessionSummaryTool) Annotations() *mcp.ToolAnnotations {
	return readOnlyAnnotations("Session Summary")
}

// InputSchema returns the input schema
func (t *SessionSummaryTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "The session to inspect",
			},
		},
		"required": []string{"session_id"},
	}
}

// Execute returns the session snapshot.
func (t *SessionSummaryTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	sessionID, err := getStringParam(arguments, "session_id", true)
	if err != nil {
		return errorResult(err), nil
	}

	snapshot := t.engine.Store().Get(sessionID)
	summary := map[string]interface{}{
		"context": snapshot,
		"facts":   t.engine.Store().Ledger(sessionID).Facts(),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return errorResult(apperrors.NewInternal("failed to encode session summary")), nil
	}
	return textResult(string(payload)), nil
}

// AuditLogTool returns recent turn audit entries.
type AuditLogTool struct {
	audit  *auditlog.Logger
	logger *zap.Logger
}

// NewAuditLogTool creates the audit log tool.
func NewAuditLogTool(audit *auditlog.Logger, logger *zap.Logger) *AuditLogTool {
	return &AuditLogTool{audit: audit, logger: logger}
}

// Name returns the tool name
func (t *AuditLogTool) Name() string { return "get_audit_log" }

// Description returns the tool description
func (t *AuditLogTool) Description() string {
	return "Return the most recent turn audit entries: question, intent, resolution state, trust mode, violations."
}

// Annotations returns tool hints
func (t *AuditLogTool) Annotations() *mcp.ToolAnnotations {
	return readOnlyAnnotations("Get Audit Log")
}

// InputSchema returns the input schema
func (t *AuditLogTool) InputSchema() interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum entries to return (default 50)",
			},
		},
	}
}

// Execute returns recent audit entries.
func (t *AuditLogTool) Execute(ctx context.Context, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
	limit := 50
	if v, ok := arguments["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	payload, err := json.Marshal(t.audit.Recent(limit))
	if err != nil {
		return errorResult(apperrors.NewInternal("failed to encode audit log")), nil
	}
	return textResult(string(payload)), nil
}
