// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"fmt"

	"github.com/goki/mat32"
)

// Config has the full configuration surface for one Transmitter.
// Call Defaults then override fields before passing to New, which
// validates. A zero Dir disables the file diagnostics paths.
type Config struct {

	// number of bits per symbol -- the constellation has 2^NBits points
	NBits int `def:"2" min:"1" desc:"number of bits per symbol -- the constellation has 2^NBits points"`

	// sizes of the fully-connected ReLU hidden layers, in order
	Hidden []int `def:"{32,20}" desc:"sizes of the fully-connected ReLU hidden layers, in order"`

	// bound the worst-case mean symbol amplitude at 1 via batch-max
	// normalization, instead of penalizing power in the loss
	RestrictEnergy bool `desc:"bound the worst-case mean symbol amplitude at 1 via batch-max normalization, instead of penalizing power in the loss"`

	// power penalty coefficient on sampled symbol energy -- only used
	// when RestrictEnergy is off
	LambdaP float32 `def:"0.1" min:"0" desc:"power penalty coefficient on sampled symbol energy -- only used when RestrictEnergy is off"`

	// initial value of the two global log standard deviations
	InitLogStd float32 `def:"-2" desc:"initial value of the two global log standard deviations"`

	// output directory prefix for constellation images and the
	// ber / energy text logs -- include any trailing separator
	Dir string `desc:"output directory prefix for constellation images and the ber / energy text logs -- include any trailing separator"`

	// optional reference constellation keyed by 0/1 bit labels,
	// overlaid on the constellation diagram
	GroundTruth map[string]mat32.Vec2 `desc:"optional reference constellation keyed by 0/1 bit labels, overlaid on the constellation diagram"`

	// random seed for this transmitter's private source -- each
	// instance owns its rng so multiple transmitters can train
	// independently in one process
	Seed uint64 `desc:"random seed for this transmitter's private source"`
}

func (cf *Config) Defaults() {
	cf.NBits = 2
	cf.Hidden = []int{32, 20}
	cf.LambdaP = 0.1
	cf.InitLogStd = -2
	cf.Seed = 1
}

// Validate returns an error wrapping ErrInvalidConfig for any setting
// that cannot define a working transmitter.
func (cf *Config) Validate() error {
	if cf.NBits <= 0 {
		return fmt.Errorf("%w: NBits = %d, must be positive", ErrInvalidConfig, cf.NBits)
	}
	if len(cf.Hidden) == 0 {
		return fmt.Errorf("%w: Hidden is empty, at least one hidden layer is required", ErrInvalidConfig)
	}
	for i, h := range cf.Hidden {
		if h <= 0 {
			return fmt.Errorf("%w: Hidden[%d] = %d, must be positive", ErrInvalidConfig, i, h)
		}
	}
	if cf.LambdaP < 0 {
		return fmt.Errorf("%w: LambdaP = %g, must be >= 0", ErrInvalidConfig, cf.LambdaP)
	}
	return nil
}

// ImageFile is the constellation image filename for given iteration,
// using the %04d template under Dir.
func (cf *Config) ImageFile(iteration int) string {
	return fmt.Sprintf("%s%04d.png", cf.Dir, iteration)
}

// BERFile is the bit-error-rate log filename under Dir.
func (cf *Config) BERFile() string {
	return cf.Dir + "ber.txt"
}

// EnergyFile is the symbol-energy log filename under Dir.
func (cf *Config) EnergyFile() string {
	return cf.Dir + "energy.txt"
}

// QPSK is the standard Gray-coded quadrature phase-shift keying
// constellation on the unit circle, usable as a GroundTruth reference
// for NBits = 2.
func QPSK() map[string]mat32.Vec2 {
	c := mat32.Sqrt(2) / 2
	return map[string]mat32.Vec2{
		"00": {X: c, Y: c},
		"01": {X: -c, Y: c},
		"11": {X: -c, Y: -c},
		"10": {X: c, Y: -c},
	}
}
