// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package feature

import (
	"context"
	"encoding/json"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/featured-io/featured/lib/toolerror"
)

// MarkPassing records that a feature has been implemented and
// verified. Idempotent: marking an already-passing feature succeeds
// and reports the unchanged record. Returns the updated feature, or a
// not_found error when the id does not exist.
func (s *Store) MarkPassing(ctx context.Context, featureID int64) (result *Feature, err error) {
	if featureID < 1 {
		return nil, toolerror.Validation("feature_id must be >= 1, got %d", featureID)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, takeErr("mark passing", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, toolerror.Internal("feature store: mark passing: begin: %w", err)
	}
	defer endTransaction(&err)

	current, err := getFeature(conn, featureID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, toolerror.NotFound("feature %d not found", featureID)
	}

	if !current.Passes {
		err = sqlitex.Execute(conn, "UPDATE features SET passes = 1 WHERE id = ?", &sqlitex.ExecOptions{
			Args: []any{featureID},
		})
		if err != nil {
			return nil, toolerror.Internal("feature store: mark passing %d: %w", featureID, err)
		}
		current.Passes = true
	}

	s.logger.Info("feature marked passing", "id", current.ID, "name", current.Name)
	return current, nil
}

// SkipResult reports a successful Skip.
type SkipResult struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	OldPriority int64  `json:"old_priority"`
	NewPriority int64  `json:"new_priority"`
}

// Skip moves a pending feature behind all others by assigning it a
// priority one past the maximum across the entire table — including
// passing features, whose parked priorities still count toward the
// maximum. Fails with not_found for an unknown id and invalid_state
// for a feature that already passes.
func (s *Store) Skip(ctx context.Context, featureID int64) (result SkipResult, err error) {
	if featureID < 1 {
		return SkipResult{}, toolerror.Validation("feature_id must be >= 1, got %d", featureID)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return SkipResult{}, takeErr("skip", err)
	}
	defer s.pool.Put(conn)

	// The max scan and the priority write must see the same state, so
	// both run under one IMMEDIATE transaction: two concurrent skips
	// serialize and cannot compute the same new priority.
	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return SkipResult{}, toolerror.Internal("feature store: skip: begin: %w", err)
	}
	defer endTransaction(&err)

	current, err := getFeature(conn, featureID)
	if err != nil {
		return SkipResult{}, err
	}
	if current == nil {
		return SkipResult{}, toolerror.NotFound("feature %d not found", featureID)
	}
	if current.Passes {
		return SkipResult{}, toolerror.InvalidState("cannot skip feature %d: already passing", featureID)
	}

	maxPriority, _, err := priorityBounds(conn)
	if err != nil {
		return SkipResult{}, err
	}
	newPriority := maxPriority + 1

	err = sqlitex.Execute(conn, "UPDATE features SET priority = ? WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{newPriority, featureID},
	})
	if err != nil {
		return SkipResult{}, toolerror.Internal("feature store: skip %d: %w", featureID, err)
	}

	s.logger.Info("feature skipped",
		"id", current.ID,
		"name", current.Name,
		"old_priority", current.Priority,
		"new_priority", newPriority,
	)

	return SkipResult{
		ID:          current.ID,
		Name:        current.Name,
		OldPriority: current.Priority,
		NewPriority: newPriority,
	}, nil
}

// CreateResult reports a successful CreateBulk.
type CreateResult struct {
	Created       int          `json:"created"`
	PriorityMode  PriorityMode `json:"priority_mode"`
	StartPriority int64        `json:"start_priority"`
	Source        string       `json:"source"`
	BatchID       string       `json:"batch_id,omitempty"`
}

// CreateBulk creates a batch of features in one transaction. Every
// draft must carry a category, name, description, and at least one
// step; the first offending index aborts the whole call with zero rows
// created. Priorities are assigned contiguously in input order
// starting at a mode-dependent base:
//
//   - append: one past the maximum priority across all features.
//   - prepend: count positions below the minimum priority among
//     pending features, so the batch sorts strictly before existing
//     pending work. With no pending features, prepend degrades to
//     append.
//
// All created features start with Passes false.
func (s *Store) CreateBulk(ctx context.Context, drafts []Draft, mode PriorityMode, source, batchID string) (result CreateResult, err error) {
	if len(drafts) == 0 {
		return CreateResult{}, toolerror.Validation("features must contain at least one item")
	}
	if mode != ModeAppend && mode != ModePrepend {
		return CreateResult{}, toolerror.Validation("priority_mode must be %q or %q, got %q", ModeAppend, ModePrepend, mode)
	}
	if source == "" {
		source = SourceInitializer
	}
	for i, draft := range drafts {
		if err := validateDraft(i, draft); err != nil {
			return CreateResult{}, err
		}
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return CreateResult{}, takeErr("create bulk", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return CreateResult{}, toolerror.Internal("feature store: create bulk: begin: %w", err)
	}
	defer endTransaction(&err)

	startPriority, err := batchStartPriority(conn, mode, int64(len(drafts)))
	if err != nil {
		return CreateResult{}, err
	}

	createdAt := s.clock.Now().Unix()
	var storedBatchID any
	if batchID != "" {
		storedBatchID = batchID
	}

	for i, draft := range drafts {
		stepsJSON, err := json.Marshal(draft.Steps)
		if err != nil {
			return CreateResult{}, toolerror.Internal("feature store: marshal steps for item %d: %w", i, err)
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO features
				(priority, category, name, description, steps, passes, source, batch_id, created_at)
			 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					startPriority + int64(i),
					draft.Category,
					draft.Name,
					draft.Description,
					string(stepsJSON),
					source,
					storedBatchID,
					createdAt,
				},
			})
		if err != nil {
			return CreateResult{}, toolerror.Internal("feature store: insert item %d: %w", i, err)
		}
	}

	s.logger.Info("features created",
		"count", len(drafts),
		"priority_mode", mode,
		"start_priority", startPriority,
		"source", source,
	)

	return CreateResult{
		Created:       len(drafts),
		PriorityMode:  mode,
		StartPriority: startPriority,
		Source:        source,
		BatchID:       batchID,
	}, nil
}

// validateDraft checks the required fields of a single CreateBulk
// item, reporting the offending index.
func validateDraft(index int, draft Draft) error {
	switch {
	case draft.Category == "":
		return toolerror.Validation("feature at index %d missing category", index)
	case draft.Name == "":
		return toolerror.Validation("feature at index %d missing name", index)
	case draft.Description == "":
		return toolerror.Validation("feature at index %d missing description", index)
	case len(draft.Steps) == 0:
		return toolerror.Validation("feature at index %d missing steps", index)
	}
	return nil
}

// batchStartPriority computes the first priority of a new batch under
// the given mode. Must run inside the caller's transaction so the scan
// and the inserts it positions cannot interleave with other writers.
//
// Prepend keys off the minimum priority among pending features only.
// Passing features that were skipped to large priorities before they
// passed do not drag the minimum; the batch lands directly in front of
// actual remaining work.
func batchStartPriority(conn *sqlite.Conn, mode PriorityMode, count int64) (int64, error) {
	if mode == ModePrepend {
		minPending, found, err := pendingMinPriority(conn)
		if err != nil {
			return 0, err
		}
		if found {
			return minPending - count, nil
		}
		// No pending features: fall through to append placement.
	}

	maxPriority, empty, err := priorityBounds(conn)
	if err != nil {
		return 0, err
	}
	if empty {
		return 1, nil
	}
	return maxPriority + 1, nil
}

// priorityBounds returns the maximum priority across all features.
// empty reports a table with no rows, in which case maxPriority is 0.
func priorityBounds(conn *sqlite.Conn) (maxPriority int64, empty bool, err error) {
	empty = true
	err = sqlitex.Execute(conn,
		"SELECT MAX(priority) FROM features",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				if !stmt.ColumnIsNull(0) {
					maxPriority = stmt.ColumnInt64(0)
					empty = false
				}
				return nil
			},
		})
	if err != nil {
		return 0, false, toolerror.Internal("feature store: max priority: %w", err)
	}
	return maxPriority, empty, nil
}

// pendingMinPriority returns the minimum priority among pending
// features. found is false when no feature is pending.
func pendingMinPriority(conn *sqlite.Conn) (minPriority int64, found bool, err error) {
	err = sqlitex.Execute(conn,
		"SELECT MIN(priority) FROM features WHERE passes = 0",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				if !stmt.ColumnIsNull(0) {
					minPriority = stmt.ColumnInt64(0)
					found = true
				}
				return nil
			},
		})
	if err != nil {
		return 0, false, toolerror.Internal("feature store: min pending priority: %w", err)
	}
	return minPriority, found, nil
}

// getFeature loads one feature by id on the caller's connection.
// Returns nil when the id does not exist.
func getFeature(conn *sqlite.Conn, featureID int64) (*Feature, error) {
	var found *Feature
	err := sqlitex.Execute(conn,
		"SELECT "+featureColumns+" FROM features WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{featureID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				f, err := scanFeature(stmt)
				if err != nil {
					return err
				}
				found = &f
				return nil
			},
		})
	if err != nil {
		return nil, toolerror.Internal("feature store: load feature %d: %w", featureID, err)
	}
	return found, nil
}
