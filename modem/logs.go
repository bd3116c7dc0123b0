// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"fmt"
	"os"

	"github.com/emer/etable/v2/etensor"
	"github.com/goki/mat32"
)

// appendFloat appends one float line to the given file, creating it as
// needed. Failures wrap ErrDiagIO.
func appendFloat(fnm string, v float64) error {
	f, err := os.OpenFile(fnm, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDiagIO, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%g\n", v); err != nil {
		return fmt.Errorf("%w: %v", ErrDiagIO, err)
	}
	return nil
}

// SaveBER appends the bit error rate of the episode -- total bit
// errors between the trajectory inputs and the decoded guesses,
// divided by the total number of bits -- to the configured ber file.
func (tx *Transmitter) SaveBER(tj *Trajectory, guess *etensor.Float32) error {
	b, err := tx.checkGuess(tj, guess)
	if err != nil {
		return err
	}
	errs := float32(0)
	for i := 0; i < b; i++ {
		in := sample(tj.Bits, i)
		gs := sample(guess, i)
		for j := range in {
			errs += mat32.Abs(in[j]-gs[j]) / 2
		}
	}
	ber := float64(errs) / float64(b*tx.Config.NBits)
	return appendFloat(tx.Config.BERFile(), ber)
}

// SaveEnergy appends the mean per-symbol energy of a transmitted
// batch (batch x 2) to the configured energy file.
func (tx *Transmitter) SaveEnergy(syms *etensor.Float32) error {
	if syms == nil || syms.NumDims() != 2 || syms.Dim(1) != 2 || syms.Dim(0) == 0 {
		return fmt.Errorf("%w: symbols must be a non-empty batch x 2 tensor", ErrShapeMismatch)
	}
	b := syms.Dim(0)
	en := float32(0)
	for i := 0; i < b; i++ {
		re := syms.Values[2*i]
		im := syms.Values[2*i+1]
		en += re*re + im*im
	}
	return appendFloat(tx.Config.EnergyFile(), float64(en)/float64(b))
}
