// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
)

// readFloats parses the float-per-line diagnostic format.
func readFloats(t *testing.T, fnm string) []float64 {
	b, err := os.ReadFile(fnm)
	if err != nil {
		t.Fatalf("read %s: %v", fnm, err)
	}
	var vals []float64
	for _, ln := range strings.Fields(string(b)) {
		v, err := strconv.ParseFloat(ln, 64)
		if err != nil {
			t.Fatalf("parse %q: %v", ln, err)
		}
		vals = append(vals, v)
	}
	return vals
}

func TestSaveBER(t *testing.T) {
	dir := t.TempDir() + "/"
	tx := newTestTx(t, func(cf *Config) { cf.Dir = dir })
	bits := batchTensor(BitVecs(2))
	_, tj, err := tx.Transmit(bits, true)
	if err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	// flip two of the eight bits
	guess := batchTensor(BitVecs(2))
	guess.Values[0] = -guess.Values[0]
	guess.Values[5] = -guess.Values[5]
	if err := tx.SaveBER(tj, guess); err != nil {
		t.Fatalf("SaveBER: %v", err)
	}
	if err := tx.SaveBER(tj, bits); err != nil {
		t.Fatalf("SaveBER: %v", err)
	}
	vals := readFloats(t, tx.Config.BERFile())
	if len(vals) != 2 {
		t.Fatalf("got %d lines, want 2", len(vals))
	}
	if vals[0] != 0.25 {
		t.Errorf("ber = %g, want 0.25", vals[0])
	}
	if vals[1] != 0 {
		t.Errorf("perfect guess ber = %g, want 0", vals[1])
	}
}

func TestSaveEnergy(t *testing.T) {
	dir := t.TempDir() + "/"
	tx := newTestTx(t, func(cf *Config) { cf.Dir = dir })
	syms := symbols([]float32{1, 0}, []float32{0, 2})
	if err := tx.SaveEnergy(syms); err != nil {
		t.Fatalf("SaveEnergy: %v", err)
	}
	vals := readFloats(t, tx.Config.EnergyFile())
	if len(vals) != 1 || vals[0] != 2.5 {
		t.Errorf("energy = %v, want [2.5]", vals)
	}
}

func TestDiagIOError(t *testing.T) {
	tx := newTestTx(t, func(cf *Config) { cf.Dir = "/nonexistent-dir/deep/" })
	syms := symbols([]float32{1}, []float32{0})
	err := tx.SaveEnergy(syms)
	if !errors.Is(err, ErrDiagIO) {
		t.Errorf("want ErrDiagIO, got %v", err)
	}
}
