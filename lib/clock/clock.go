// Copyright 2026 The Featured Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the current time for testability. Production
// code injects Real(); tests inject Fake() and advance it explicitly.
package clock

import "time"

// Clock provides the current time. Code that stamps records should
// take a Clock instead of calling time.Now directly, so tests can pin
// timestamps.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
