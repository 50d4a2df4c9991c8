// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/featured-io/featured/lib/clock"
	"github.com/featured-io/featured/lib/feature"
)

// testResponse is a JSON-RPC 2.0 response for test assertions. Result
// is kept as raw JSON so each test can unmarshal it into the expected type.
type testResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *testRPCError   `json:"error"`
}

type testRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// testToolResult mirrors toolsCallResult with raw structuredContent so
// each test can unmarshal the payload it expects.
type testToolResult struct {
	Content           []contentBlock  `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
	ErrorInfo         *errorInfo      `json:"errorInfo"`
}

// newTestStore opens a store on a temporary database.
func newTestStore(t *testing.T) *feature.Store {
	t.Helper()

	store, err := feature.Open(feature.StoreConfig{
		Path:   filepath.Join(t.TempDir(), "features.db"),
		Clock:  clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

// initMessages returns the initialize request and initialized
// notification that start every MCP session.
func initMessages() []map[string]any {
	return []map[string]any{
		{
			"jsonrpc": "2.0",
			"id":      0,
			"method":  "initialize",
			"params": map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{},
				"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
			},
		},
		{
			"jsonrpc": "2.0",
			"method":  "notifications/initialized",
		},
	}
}

// toolCall builds a tools/call request.
func toolCall(id int, name string, arguments map[string]any) map[string]any {
	params := map[string]any{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  params,
	}
}

// mcpSession sends a sequence of JSON-RPC messages to a fresh MCP
// server over the given store and returns the responses. Notifications
// produce no response.
func mcpSession(t *testing.T, store *feature.Store, messages ...map[string]any) []testResponse {
	t.Helper()

	var input bytes.Buffer
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal message: %v", err)
		}
		input.Write(data)
		input.WriteByte('\n')
	}

	var output bytes.Buffer
	server := NewServer(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := server.Run(context.Background(), &input, &output); err != nil {
		t.Fatalf("server.Run: %v", err)
	}

	var responses []testResponse
	scanner := bufio.NewScanner(&output)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp testResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("unmarshal response: %v\nraw: %s", err, line)
		}
		responses = append(responses, resp)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning output: %v", err)
	}

	return responses
}

// session runs initMessages plus extra messages and strips the
// initialize response.
func session(t *testing.T, store *feature.Store, extra ...map[string]any) []testResponse {
	t.Helper()
	responses := mcpSession(t, store, append(initMessages(), extra...)...)
	if len(responses) == 0 {
		t.Fatal("no responses")
	}
	if responses[0].Error != nil {
		t.Fatalf("initialize failed: %+v", responses[0].Error)
	}
	return responses[1:]
}

// callResult unwraps a tools/call response into a testToolResult.
func callResult(t *testing.T, resp testResponse) testToolResult {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected JSON-RPC error: %+v", resp.Error)
	}
	var result testToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v\nraw: %s", err, resp.Result)
	}
	return result
}

func TestInitializeReportsServerInfo(t *testing.T) {
	store := newTestStore(t)
	responses := mcpSession(t, store, initMessages()...)

	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	var result initializeResult
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("unmarshal initialize result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "featured" {
		t.Errorf("serverInfo.name = %q", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("capabilities.tools missing")
	}
}

func TestRequestsBeforeInitializeRejected(t *testing.T) {
	store := newTestStore(t)

	for _, method := range []string{"tools/list", "tools/call"} {
		responses := mcpSession(t, store, map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  method,
			"params":  map[string]any{"name": "feature_get_stats"},
		})
		if len(responses) != 1 || responses[0].Error == nil {
			t.Fatalf("%s before initialize: responses = %+v, want error", method, responses)
		}
		if responses[0].Error.Code != codeInvalidRequest {
			t.Errorf("%s error code = %d, want %d", method, responses[0].Error.Code, codeInvalidRequest)
		}
	}
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	responses := mcpSession(t, store, map[string]any{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "ping",
	})
	if len(responses) != 1 || responses[0].Error != nil {
		t.Fatalf("ping responses = %+v", responses)
	}
}

func TestToolsListCatalog(t *testing.T) {
	store := newTestStore(t)
	responses := session(t, store, map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})

	var result struct {
		Tools []toolDescription `json:"tools"`
	}
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("unmarshal tools/list: %v", err)
	}

	want := []string{
		"feature_get_stats",
		"feature_get_next",
		"feature_get_for_regression",
		"feature_get_all_categories",
		"feature_get_summary",
		"feature_search",
		"feature_mark_passing",
		"feature_skip",
		"feature_create_bulk",
	}
	if len(result.Tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(result.Tools), len(want))
	}
	for i, name := range want {
		if result.Tools[i].Name != name {
			t.Errorf("tools[%d] = %q, want %q", i, result.Tools[i].Name, name)
		}
		if len(result.Tools[i].InputSchema) == 0 {
			t.Errorf("tool %q missing inputSchema", name)
		}
		if result.Tools[i].Description == "" {
			t.Errorf("tool %q missing description", name)
		}
	}
}

func TestUnknownMethodAndTool(t *testing.T) {
	store := newTestStore(t)
	responses := session(t, store,
		map[string]any{"jsonrpc": "2.0", "id": 1, "method": "resources/list"},
		toolCall(2, "feature_delete_all", nil),
	)

	if responses[0].Error == nil || responses[0].Error.Code != codeMethodNotFound {
		t.Errorf("unknown method response = %+v", responses[0])
	}
	if responses[1].Error == nil || responses[1].Error.Code != codeInvalidParams {
		t.Errorf("unknown tool response = %+v", responses[1])
	}
}

func TestMalformedLineProducesParseError(t *testing.T) {
	store := newTestStore(t)
	server := NewServer(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var output bytes.Buffer
	input := strings.NewReader("this is not json\n")
	if err := server.Run(context.Background(), input, &output); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var resp testResponse
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v\nraw: %s", err, output.Bytes())
	}
	if resp.Error == nil || resp.Error.Code != codeParseError {
		t.Errorf("response = %+v, want parse error", resp)
	}
}

func TestNotificationsReceiveNoResponse(t *testing.T) {
	store := newTestStore(t)
	responses := mcpSession(t, store,
		initMessages()[0],
		map[string]any{"jsonrpc": "2.0", "method": "notifications/initialized"},
		map[string]any{"jsonrpc": "2.0", "method": "notifications/cancelled"},
	)
	// Only the initialize request carries an id.
	if len(responses) != 1 {
		t.Errorf("got %d responses, want 1", len(responses))
	}
}
