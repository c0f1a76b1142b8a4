// ABOUTME: MCP-compatible HTTP server for the business-intelligence toolset.
// ABOUTME: Implements Streamable HTTP transport with per-session auth and quota metering.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sjcripps/mcp-business-intelligence/internal/auth"
	"github.com/sjcripps/mcp-business-intelligence/internal/oauth"
	"github.com/sjcripps/mcp-business-intelligence/internal/store"
	"github.com/sjcripps/mcp-business-intelligence/internal/tools"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// sseKeepaliveInterval paces comment frames on the server-push stream.
const sseKeepaliveInterval = 15 * time.Second

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// Gateway-specific error codes. Missing credential is deliberately
// distinct from authorization failure so a discovery client knows it
// never presented anything.
const (
	CodeMissingCredential   = -32001
	CodeAuthorizationFailed = -32002
	CodeUnknownSession      = -32003
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Config holds configuration for the MCP server.
type Config struct {
	Tools      *tools.Registry
	Authorizer *auth.Authorizer
	Store      store.Store
	Logger     *slog.Logger
	ServerName string
	Version    string
}

// Server implements the MCP Streamable HTTP endpoint: the request
// router of the gateway. Every inbound request is classified first,
// then authorized, then admitted to a session or the toolset.
type Server struct {
	tools      *tools.Registry
	authorizer *auth.Authorizer
	store      store.Store
	logger     *slog.Logger
	serverName string
	version    string
	sessions   *SessionRegistry
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = "bi-gateway"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	return &Server{
		tools:      cfg.Tools,
		authorizer: cfg.Authorizer,
		store:      cfg.Store,
		logger:     logger.With("component", "mcp"),
		serverName: serverName,
		version:    version,
		sessions:   NewSessionRegistry(logger),
	}, nil
}

// Sessions exposes the session registry (for shutdown and monitoring).
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Shutdown closes every live session, best-effort.
func (s *Server) Shutdown() {
	s.sessions.CloseAll()
}

// Handler returns the HTTP handler for the /mcp endpoint supporting
// POST, GET, and DELETE per the Streamable HTTP transport.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handlePost(w, r)
		case http.MethodGet:
			s.handleGet(w, r)
		case http.MethodDelete:
			s.handleDelete(w, r)
		default:
			w.Header().Set("Allow", "POST, GET, DELETE")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDelete tears down a session. Closing an unknown session is a
// successful no-op so teardown can be retried safely.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	s.sessions.Close(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handleGet serves the session-bound server-push stream as SSE.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, open := <-sess.Stream():
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-sess.Done():
			return
		case <-r.Context().Done():
			return
		}
	}
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// Null correlation identifier: the request never parsed
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	// Validate protocol version header (not required on initialize)
	if req.Method != "initialize" && protoVersion != "" {
		if !supportedProtocolVersions[protoVersion] {
			http.Error(w, "Bad Request: unsupported Mcp-Protocol-Version", http.StatusBadRequest)
			return
		}
	}

	// Handle notifications: accept and return HTTP 202 with no body
	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	credential := auth.ExtractCredential(r)

	s.logger.Debug("MCP request",
		"method", req.Method,
		"session_id", sessionID,
		"has_credential", credential != "",
	)

	switch classify(req.Method, sessionID, credential != "") {
	case classDiscovery:
		s.handleDiscovery(w, req)
	case classBootstrap:
		s.handleBootstrap(w, r, req, credential)
	case classContinuation:
		s.handleContinuation(w, r, req, sessionID, credential)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest,
			"request must carry a session or be an initialize operation", nil)
	}
}

// handleDiscovery serves credential-less capability probing. An
// initialize here creates a discovery session that must still pass
// authorization before any tool call is accepted on it.
func (s *Server) handleDiscovery(w http.ResponseWriter, req JSONRPCRequest) {
	switch req.Method {
	case "initialize":
		sess, err := s.sessions.Create("", true)
		if err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "failed to create session", nil)
			return
		}
		w.Header().Set("Mcp-Session-Id", sess.ID)
		s.sendJSONRPCResult(w, req.ID, s.initializeResult())
	case "tools/list":
		// Tool catalog is open to passive scanners
		s.sendJSONRPCResult(w, req.ID, s.listToolsResult())
	case "ping":
		s.sendJSONRPCResult(w, req.ID, map[string]any{})
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleBootstrap authorizes the credential, records one usage event,
// and creates a session bound to the credential.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, credential string) {
	ctx := r.Context()

	decision := s.authorizer.Authorize(ctx, credential)
	if !decision.Valid {
		s.sendDenial(w, req.ID, decision)
		return
	}

	if err := s.recordUsage(ctx, credential); err != nil {
		s.sendUsageError(w, req.ID, err)
		return
	}

	sess, err := s.sessions.Create(credential, false)
	if err != nil {
		s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "failed to create session", nil)
		return
	}

	s.logger.Info("session bootstrapped",
		"session_id", sess.ID,
		"tier", decision.Tier,
		"name", decision.Name,
	)

	w.Header().Set("Mcp-Session-Id", sess.ID)
	s.sendJSONRPCResult(w, req.ID, s.initializeResult())
}

// handleContinuation forwards a request to an existing session.
func (s *Server) handleContinuation(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, sessionID, credential string) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		// Session expired or invalid - client must re-initialize
		s.sendJSONRPCError(w, req.ID, CodeUnknownSession, "unknown session", nil)
		return
	}
	sess.Touch()

	switch req.Method {
	case "tools/list":
		s.sendJSONRPCResult(w, req.ID, s.listToolsResult())
	case "tools/call":
		s.handleToolsCall(w, r, req, sess, credential)
	case "ping":
		s.sendJSONRPCResult(w, req.ID, map[string]any{})
	case "initialize":
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "session already initialized", nil)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleToolsCall authorizes, meters, and dispatches one tool
// invocation. Tool execution runs after every lock is released.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, sess *Session, credential string) {
	ctx := r.Context()

	// Tool calls always need a credential, even on sessions that were
	// bootstrapped anonymously for discovery.
	if credential == "" {
		credential = sess.Credential
	}
	if credential == "" {
		oauth.Challenge(w)
		s.sendJSONRPCError(w, req.ID, CodeMissingCredential, "credential required for tool calls", nil)
		return
	}

	decision := s.authorizer.Authorize(ctx, credential)
	if !decision.Valid {
		s.sendDenial(w, req.ID, decision)
		return
	}

	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}
	if s.tools.Get(params.Name) == nil {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool not found", nil)
		return
	}

	if err := s.recordUsage(ctx, credential); err != nil {
		s.sendUsageError(w, req.ID, err)
		return
	}

	requestID := uuid.New().String()
	input := params.Arguments
	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}

	s.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
		"session_id", sess.ID,
	)

	output, err := s.tools.Dispatch(ctx, params.Name, input)
	if err != nil {
		s.handleToolError(w, req.ID, params.Name, requestID, err)
		return
	}

	s.sendJSONRPCResult(w, req.ID, MCPCallToolResult{
		Content: []MCPContent{{Type: "text", Text: output}},
	})
}

// recordUsage meters one quota-consuming event against the credential's
// underlying key. The store only increments while the account is under
// its limit, so two requests racing for the last quota slot cannot both
// get it; the loser sees store.ErrQuotaExhausted.
func (s *Server) recordUsage(ctx context.Context, credential string) error {
	return s.store.RecordUsage(ctx, s.authorizer.ResolveKey(credential))
}

// sendUsageError maps a metering failure onto the wire. Losing the race
// for the last quota slot is a quota denial; anything else is internal.
func (s *Server) sendUsageError(w http.ResponseWriter, id json.RawMessage, err error) {
	if errors.Is(err, store.ErrQuotaExhausted) {
		s.sendJSONRPCError(w, id, CodeAuthorizationFailed,
			"monthly quota exhausted; upgrade at /api/upgrade", nil)
		return
	}
	s.logger.Error("failed to record usage", "error", err)
	s.sendJSONRPCError(w, id, JSONRPCInternalError, "failed to record usage", nil)
}

// initializeResult is the initialize handshake response body.
func (s *Server) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.serverName,
			"version": s.version,
		},
	}
}

// listToolsResult builds the tools/list response body.
func (s *Server) listToolsResult() MCPListToolsResult {
	all := s.tools.List()
	result := MCPListToolsResult{Tools: make([]MCPToolInfo, len(all))}
	for i, tool := range all {
		result.Tools[i] = MCPToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}
	return result
}

// sendDenial maps an authorization Decision onto the wire error codes.
func (s *Server) sendDenial(w http.ResponseWriter, id json.RawMessage, decision auth.Decision) {
	switch decision.Reason {
	case auth.ReasonMissingCredential:
		oauth.Challenge(w)
		s.sendJSONRPCError(w, id, CodeMissingCredential, "credential required", nil)
	case auth.ReasonQuotaExceeded:
		s.sendJSONRPCError(w, id, CodeAuthorizationFailed,
			fmt.Sprintf("monthly quota exhausted for tier %q; upgrade at /api/upgrade", decision.Tier), nil)
	case auth.ReasonInternal:
		s.sendJSONRPCError(w, id, JSONRPCInternalError, "internal error", nil)
	default:
		oauth.Challenge(w)
		s.sendJSONRPCError(w, id, CodeAuthorizationFailed, "authorization failed", nil)
	}
}

// handleToolError downgrades collaborator failures to a generic
// internal error; the detail is logged, never echoed to the client.
func (s *Server) handleToolError(w http.ResponseWriter, id json.RawMessage, toolName, requestID string, err error) {
	s.logger.Warn("tool execution failed",
		"tool_name", toolName,
		"request_id", requestID,
		"error", err,
	)

	code := JSONRPCInternalError
	message := "tool execution failed"
	if errors.Is(err, tools.ErrToolNotFound) {
		code = JSONRPCInvalidParams
		message = "tool not found"
	} else if errors.Is(err, tools.ErrInvalidInput) {
		code = JSONRPCInvalidParams
		message = err.Error()
	}

	s.sendJSONRPCError(w, id, code, message, nil)
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
