// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// Package feature implements the persistent feature backlog: a single
// SQLite-backed priority queue of implementation units for an
// autonomous coding agent.
//
// The backlog orders pending work by (priority, id) ascending — lower
// priority numbers are worked first, ids break ties. A feature moves
// through exactly two states: pending (passes=false) and passing
// (passes=true, terminal). MarkPassing is the only transition into
// passing; Skip reorders within pending by parking the feature one
// past the current maximum priority; CreateBulk is the only way
// features come into existence.
//
// Every mutation runs in a single IMMEDIATE transaction. The priority
// scans that position skipped features and new batches execute inside
// the same transaction as the writes they feed, so concurrent callers
// cannot compute colliding priorities.
//
// Errors carry lib/toolerror categories. Validation failures are
// raised before any store access; not_found and invalid_state are
// domain outcomes the façade relays as structured payloads.
package feature
