// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp implements the MCP server that exposes the feature
// backlog as tools over JSON-RPC 2.0 on newline-delimited stdio.
//
// The server speaks the subset of MCP an agent harness needs: an
// initialize handshake, ping, tools/list, and tools/call. Tool calls
// before initialize are rejected. Every tool returns its payload as
// structuredContent plus a serialized-JSON text block; failures carry
// an errorInfo extension with a category and retryable flag so the
// calling agent can decide between fixing its input, retrying, and
// escalating.
package mcp
