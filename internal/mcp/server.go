// Package mcp exposes the dashboard's tasks and notes as MCP tools, over
// Streamable HTTP for signed-in users and over stdio for the CLI.
package mcp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/logutil"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

const (
	serverName    = "agent-dashboard"
	serverVersion = "1.0.0"

	mcpDebugBodyLogLimitBytes = 8 * 1024
)

// NewMCPServer builds an SDK server with the toolset's tools and prompt
// bound to handler.
func NewMCPServer(handler *Handler, toolset Toolset) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		},
		nil, // Use default options
	)
	for _, tool := range ToolDefinitions(toolset) {
		mcp.AddTool(mcpServer, tool, handler.createToolHandler(tool.Name))
	}
	registerPrompts(mcpServer, toolset)
	return mcpServer
}

// Server serves MCP over Streamable HTTP. It must sit behind the session
// middleware; each request gets a server bound to the caller's workspace.
type Server struct {
	httpHandler http.Handler
}

// NewServer creates the HTTP MCP endpoint over manager.
func NewServer(manager *workspace.Manager, toolset Toolset) *Server {
	httpHandler := mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server {
			userID := auth.GetUserID(r.Context())
			handler := NewHandler(func(ctx context.Context) (*workspace.Workspace, error) {
				return manager.For(ctx, userID)
			})
			return NewMCPServer(handler, toolset)
		},
		&mcp.StreamableHTTPOptions{
			// JSONResponse: true returns application/json responses
			// This is simpler for clients that don't support SSE streaming
			JSONResponse: true,

			// Stateless: each request is authenticated independently by its
			// session cookie and gets a fresh server.
			Stateless: true,
		},
	)
	return &Server{httpHandler: httpHandler}
}

// ServeStdio runs an MCP server for one workspace over stdin/stdout until
// ctx is cancelled or the client disconnects.
func ServeStdio(ctx context.Context, resolve Resolver, toolset Toolset) error {
	return NewMCPServer(NewHandler(resolve), toolset).Run(ctx, &mcp.StdioTransport{})
}

type mcpResponseLogger struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
	body       []byte
	truncated  bool
}

func newMCPResponseLogger(w http.ResponseWriter) *mcpResponseLogger {
	return &mcpResponseLogger{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           make([]byte, 0, 512),
	}
}

func (w *mcpResponseLogger) WriteHeader(code int) {
	if w.wrote {
		return
	}
	w.statusCode = code
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *mcpResponseLogger) Write(p []byte) (int, error) {
	w.wrote = true
	if len(w.body) < mcpDebugBodyLogLimitBytes {
		remaining := mcpDebugBodyLogLimitBytes - len(w.body)
		if len(p) <= remaining {
			w.body = append(w.body, p...)
		} else {
			w.body = append(w.body, p[:remaining]...)
			w.truncated = true
		}
	} else {
		w.truncated = true
	}
	return w.ResponseWriter.Write(p)
}

func (w *mcpResponseLogger) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func mcpDebugEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("DEBUG")))
	switch v {
	case "1", "true", "yes", "on", "debug":
		return true
	default:
		return false
	}
}

func formatBodyForLog(b []byte, truncated bool) string {
	if len(b) == 0 {
		return ""
	}
	text := logutil.RedactJSONForLog(b)
	if truncated {
		return text + " [truncated]"
	}
	return text
}

// formatMCPHeadersForLog renders request headers with credentials redacted.
func formatMCPHeadersForLog(headers http.Header) string {
	return logutil.FormatHeadersForLog(headers)
}

// ServeHTTP implements http.Handler for the Streamable HTTP transport.
// A panicking or silent delegate still produces a 500 response.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := obs.From(r.Context()).With("pkg", "mcp")
	debug := mcpDebugEnabled()

	var reqBody []byte
	if debug && r.Body != nil && r.Method == http.MethodPost {
		var err error
		reqBody, err = io.ReadAll(io.LimitReader(r.Body, mcpDebugBodyLogLimitBytes+1))
		if err != nil {
			logger.Error("mcp_request_body_read_failed", "error", err)
		}
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
	}
	if debug {
		logger.Debug("mcp_request",
			"method", r.Method,
			"headers", formatMCPHeadersForLog(r.Header),
			"body", formatBodyForLog(reqBody, len(reqBody) > mcpDebugBodyLogLimitBytes),
		)
	}

	respLogger := newMCPResponseLogger(w)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("mcp_handler_panic", "panic", rec)
			if !respLogger.wrote {
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}
		if !respLogger.wrote {
			logger.Error("mcp_handler_no_response", "method", r.Method)
			http.Error(w, "MCP handler returned without writing response", http.StatusInternalServerError)
			return
		}
		if respLogger.statusCode >= http.StatusBadRequest {
			logger.Warn("mcp_request_failed",
				"method", r.Method,
				"status", respLogger.statusCode,
				"response", formatBodyForLog(respLogger.body, respLogger.truncated),
			)
		} else if debug {
			logger.Debug("mcp_response",
				"status", respLogger.statusCode,
				"content_type", respLogger.Header().Get("Content-Type"),
				"body", formatBodyForLog(respLogger.body, respLogger.truncated),
			)
		}
	}()

	s.httpHandler.ServeHTTP(respLogger, r)
}
