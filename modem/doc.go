// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package modem implements a trainable stochastic transmitter that learns
to modulate bitstrings into complex-valued symbols, using a single-step
episodic REINFORCE policy gradient instead of a fixed modulation table.

The transmitter is a small fully-connected network producing the mean of
a 2D Gaussian action distribution (real, imaginary) per input bit-vector,
with two global trainable log standard deviations shared across all
inputs. Sampling that distribution is the transmit action. After an
external receiver decodes the transmitted symbols and echoes back its
bit guesses, PolicyUpdate scores the saved trajectory with a lasso loss
(Hamming distance plus an optional power penalty), and takes one Adam
step on the advantage-weighted log-probability surrogate.

* `Transmit` is the sampling path: it returns the modulated symbols and,
  when save is true, an opaque Trajectory handle that must be passed back
  into PolicyUpdate -- the episode coupling is explicit in the types, not
  hidden in a mutable accumulator.

* `Evaluate` is the deterministic mean-only path used for diagnostics,
  bypassing the Gaussian heads entirely.

* `GetStats` reports the constellation centroids for every possible
  bit-vector, average transmit power, and a nearest-centroid Hamming
  confusability measure.

* `Visualize`, `SaveBER` and `SaveEnergy` write constellation diagrams
  and plain-text training diagnostics under the configured directory.

All operations are synchronous and single-threaded: one episode at a
time (transmit, decode externally, update). The policy parameters are
mutated only inside PolicyUpdate.
*/
package modem
