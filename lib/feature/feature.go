// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

package feature

// Feature is a discrete unit of agent-implementable work. Features are
// created only through CreateBulk; after creation, only Priority (via
// Skip) and Passes (via MarkPassing) ever change.
type Feature struct {
	// ID is the unique, monotonically assigned identity. Immutable.
	ID int64 `json:"id"`

	// Priority orders the backlog: lower sorts first, ties broken by
	// ascending ID.
	Priority int64 `json:"priority"`

	// Category groups related features. Set at creation.
	Category string `json:"category"`

	// Name is the short feature name.
	Name string `json:"name"`

	// Description is the detailed implementation description.
	Description string `json:"description"`

	// Steps is the ordered list of implementation/verification steps.
	Steps []string `json:"steps"`

	// Passes records whether the feature has been implemented and
	// verified. Starts false; set true only by MarkPassing; never
	// reset.
	Passes bool `json:"passes"`

	// Source records which agent created the feature. Immutable.
	Source string `json:"source"`

	// BatchID groups features created in the same CreateBulk call.
	// Empty when the caller supplied none.
	BatchID string `json:"batch_id,omitempty"`

	// CreatedAt is the creation time in Unix seconds.
	CreatedAt int64 `json:"created_at"`
}

// Provenance values for the Source field. Source is a free-form
// string; these are the two values the agent harness uses.
const (
	// SourceInitializer marks features seeded by the initializer agent.
	SourceInitializer = "initializer"

	// SourceEnhancement marks features added later by the enhancement
	// agent.
	SourceEnhancement = "enhancement"
)

// Draft is the caller-supplied part of a feature for CreateBulk. All
// fields are required; Steps must contain at least one entry.
type Draft struct {
	Category    string   `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// PriorityMode selects how CreateBulk assigns priorities to a batch.
type PriorityMode string

const (
	// ModeAppend places the batch after all existing features.
	ModeAppend PriorityMode = "append"

	// ModePrepend places the batch strictly before all pending
	// features, preserving input order. With no pending features it
	// behaves as ModeAppend.
	ModePrepend PriorityMode = "prepend"
)
