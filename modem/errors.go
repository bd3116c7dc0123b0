// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import "errors"

// Sentinel errors for the failure modes callers are expected to
// distinguish with errors.Is. All are unrecoverable at the point of
// occurrence -- there are no retry semantics anywhere in this package.
var (
	// ErrInvalidConfig is returned by Config.Validate and New for
	// configurations that cannot define a working transmitter.
	ErrInvalidConfig = errors.New("modem: invalid configuration")

	// ErrShapeMismatch is returned when a batch tensor does not have the
	// configured per-sample dimensionality, or when batch lengths
	// disagree between a trajectory and a guess batch. Inputs are never
	// silently broadcast or truncated.
	ErrShapeMismatch = errors.New("modem: shape mismatch")

	// ErrNoTrajectory is returned when the update or loss path is given
	// a nil trajectory, i.e. before any Transmit with save=true.
	ErrNoTrajectory = errors.New("modem: no saved trajectory")

	// ErrDiagIO is returned for file-writing diagnostic failures
	// (images, ber/energy logs), kept distinct from numeric errors.
	ErrDiagIO = errors.New("modem: diagnostic file i/o")
)
