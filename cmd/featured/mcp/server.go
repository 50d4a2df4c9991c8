// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/featured-io/featured/lib/feature"
	"github.com/featured-io/featured/lib/toolerror"
	"github.com/featured-io/featured/lib/version"
)

// Server exposes the feature backlog as MCP tools over JSON-RPC 2.0 on
// newline-delimited stdio.
type Server struct {
	tools       []tool
	toolsByName map[string]*tool
	logger      *slog.Logger
	initialized bool
}

// tool is one entry in the server's catalog. The handler decodes the
// raw JSON arguments, applies defaults, and returns the structured
// result payload.
type tool struct {
	name        string
	title       string
	description string
	inputSchema json.RawMessage
	annotations *toolAnnotations
	handler     func(ctx context.Context, arguments json.RawMessage) (any, error)
}

// NewServer creates an MCP server serving the feature tool catalog
// backed by the given store.
func NewServer(store *feature.Store, logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	s.tools = featureTools(store)

	s.toolsByName = make(map[string]*tool, len(s.tools))
	for i := range s.tools {
		s.toolsByName[s.tools[i].name] = &s.tools[i]
	}

	return s
}

// Run processes JSON-RPC 2.0 requests from input and writes responses
// to output until input reaches EOF or ctx is cancelled. Each request
// occupies a single line (newline-delimited JSON-RPC, not
// Content-Length framed). Tool handlers run with ctx.
func (s *Server) Run(ctx context.Context, input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	// Bulk-create payloads can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	encoder := json.NewEncoder(output)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if writeErr := writeError(encoder, json.RawMessage("null"), codeParseError, "parse error: "+err.Error()); writeErr != nil {
				return writeErr
			}
			continue
		}

		if req.JSONRPC != "2.0" {
			if !req.isNotification() {
				if writeErr := writeError(encoder, req.ID, codeInvalidRequest, "unsupported JSON-RPC version"); writeErr != nil {
					return writeErr
				}
			}
			continue
		}

		// Notifications have no ID and receive no response.
		if req.isNotification() {
			continue
		}

		if err := s.dispatch(ctx, encoder, &req); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// dispatch routes a JSON-RPC request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req *request) error {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(encoder, req)
	case "ping":
		return s.handlePing(encoder, req)
	case "tools/list":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsList(encoder, req)
	case "tools/call":
		if !s.initialized {
			return writeError(encoder, req.ID, codeInvalidRequest, "server not initialized (call initialize first)")
		}
		return s.handleToolsCall(ctx, encoder, req)
	default:
		return writeError(encoder, req.ID, codeMethodNotFound, "unknown method: "+req.Method)
	}
}

func (s *Server) handleInitialize(encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for initialize")
	}

	var params initializeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid initialize params: "+err.Error())
	}

	// The MCP specification says the server responds with its own
	// protocol version and the client decides whether it can proceed.
	// We do not reject clients that request a different version —
	// all MCP versions are additive, so older clients will simply
	// ignore fields they don't recognize.
	s.initialized = true
	s.logger.Info("client initialized",
		"client", params.ClientInfo.Name,
		"client_version", params.ClientInfo.Version,
	)

	return writeResult(encoder, req.ID, initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: serverCapabilities{
			Tools: &toolCapability{},
		},
		ServerInfo: serverInfo{
			Name:    "featured",
			Version: version.Short(),
		},
	})
}

func (s *Server) handlePing(encoder *json.Encoder, req *request) error {
	return writeResult(encoder, req.ID, map[string]any{})
}

func (s *Server) handleToolsList(encoder *json.Encoder, req *request) error {
	descriptions := make([]toolDescription, 0, len(s.tools))
	for _, t := range s.tools {
		descriptions = append(descriptions, toolDescription{
			Name:        t.name,
			Title:       t.title,
			Description: t.description,
			InputSchema: t.inputSchema,
			Annotations: t.annotations,
		})
	}
	return writeResult(encoder, req.ID, toolsListResult{Tools: descriptions})
}

func (s *Server) handleToolsCall(ctx context.Context, encoder *json.Encoder, req *request) error {
	if len(req.Params) == 0 {
		return writeError(encoder, req.ID, codeInvalidParams, "params required for tools/call")
	}

	var params toolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return writeError(encoder, req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}

	t, ok := s.toolsByName[params.Name]
	if !ok {
		return writeError(encoder, req.ID, codeInvalidParams, "unknown tool: "+params.Name)
	}

	payload, runErr := t.handler(ctx, params.Arguments)
	result, err := buildToolResult(payload, runErr)
	if err != nil {
		return writeError(encoder, req.ID, codeInternalError, "encoding tool result: "+err.Error())
	}

	if runErr != nil {
		s.logger.Warn("tool call failed", "tool", t.name, "error", runErr)
	}

	return writeResult(encoder, req.ID, result)
}

// buildToolResult assembles a toolsCallResult from a handler's payload
// and optional error. Successful payloads appear both as
// structuredContent and as a serialized-JSON text block.
func buildToolResult(payload any, runErr error) (toolsCallResult, error) {
	if runErr != nil {
		return toolsCallResult{
			Content:   []contentBlock{{Type: "text", Text: runErr.Error()}},
			IsError:   true,
			ErrorInfo: classifyError(runErr),
		}, nil
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return toolsCallResult{}, err
	}
	return toolsCallResult{
		Content:           []contentBlock{{Type: "text", Text: string(serialized)}},
		StructuredContent: payload,
	}, nil
}

// classifyError extracts structured error metadata from an error.
// Context cancellation maps to unavailable so agents know the call may
// be retried on a fresh connection; anything without a toolerror
// category is internal.
func classifyError(err error) *errorInfo {
	var toolErr *toolerror.Error
	if errors.As(err, &toolErr) {
		return &errorInfo{
			Category:  string(toolErr.Category),
			Retryable: toolErr.Category.Retryable(),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &errorInfo{Category: string(toolerror.CategoryUnavailable), Retryable: true}
	}

	return &errorInfo{Category: string(toolerror.CategoryInternal), Retryable: false}
}

// writeResult sends a JSON-RPC 2.0 success response.
func writeResult(encoder *json.Encoder, id json.RawMessage, result any) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// writeError sends a JSON-RPC 2.0 error response.
func writeError(encoder *json.Encoder, id json.RawMessage, code int, message string) error {
	return encoder.Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
