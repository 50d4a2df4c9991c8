// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// The featured command runs the feature backlog as an MCP server on
// stdio. An agent harness launches it as a subprocess, speaks JSON-RPC
// over stdin/stdout, and drives the backlog through the feature_*
// tools. Logs go to stderr.
//
// Configuration comes from --config, the FEATURED_CONFIG environment
// variable, or built-in defaults, with --database, --log-level, and
// --log-format as per-invocation overrides.
package main
