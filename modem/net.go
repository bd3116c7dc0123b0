// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"github.com/goki/mat32"
	"gonum.org/v1/gonum/stat/distuv"
)

// Layer is one fully-connected layer: flat row-major weights
// (NOut x NIn), biases, and the gradient and Adam moment state that
// travels with each parameter slice.
type Layer struct {

	// fan-in and fan-out
	NIn, NOut int

	// weights, NOut x NIn row-major
	Wts []float32

	// per-unit biases
	Bias []float32

	// accumulated weight gradients, zeroed before each update pass
	DWts []float32 `view:"-" json:"-"`

	// accumulated bias gradients
	DBias []float32 `view:"-" json:"-"`

	// Adam first and second moments for weights
	MWts, VWts []float32 `view:"-" json:"-"`

	// Adam first and second moments for biases
	MBias, VBias []float32 `view:"-" json:"-"`
}

func NewLayer(nin, nout int) *Layer {
	ly := &Layer{NIn: nin, NOut: nout}
	n := nin * nout
	ly.Wts = make([]float32, n)
	ly.DWts = make([]float32, n)
	ly.MWts = make([]float32, n)
	ly.VWts = make([]float32, n)
	ly.Bias = make([]float32, nout)
	ly.DBias = make([]float32, nout)
	ly.MBias = make([]float32, nout)
	ly.VBias = make([]float32, nout)
	return ly
}

// InitWts initializes weights with the norm-column scheme: unit
// gaussian draws with each unit's fan-in vector rescaled to norm gain,
// so every unit starts with the same input sensitivity regardless of
// fan-in. Biases are set to the given constant.
func (ly *Layer) InitWts(gain, bias float32, nrm *distuv.Normal) {
	for j := 0; j < ly.NOut; j++ {
		ss := float32(0)
		row := ly.Wts[j*ly.NIn : (j+1)*ly.NIn]
		for i := range row {
			w := float32(nrm.Rand())
			row[i] = w
			ss += w * w
		}
		sc := gain / mat32.Sqrt(ss)
		for i := range row {
			row[i] *= sc
		}
		ly.Bias[j] = bias
	}
	for i := range ly.MWts {
		ly.MWts[i] = 0
		ly.VWts[i] = 0
	}
	for j := range ly.MBias {
		ly.MBias[j] = 0
		ly.VBias[j] = 0
	}
}

// Forward computes out = Wts * in + Bias. No nonlinearity.
func (ly *Layer) Forward(in, out []float32) {
	for j := 0; j < ly.NOut; j++ {
		row := ly.Wts[j*ly.NIn : (j+1)*ly.NIn]
		s := ly.Bias[j]
		for i, w := range row {
			s += w * in[i]
		}
		out[j] = s
	}
}

// Backward accumulates parameter gradients for one sample given the
// layer input and the gradient gout flowing into the layer output.
// If gin is non-nil the input gradient is accumulated into it, so
// multiple heads sharing one trunk can add their contributions.
func (ly *Layer) Backward(in, gout, gin []float32) {
	for j := 0; j < ly.NOut; j++ {
		g := gout[j]
		if g == 0 {
			continue
		}
		row := ly.Wts[j*ly.NIn : (j+1)*ly.NIn]
		drow := ly.DWts[j*ly.NIn : (j+1)*ly.NIn]
		for i := range row {
			drow[i] += g * in[i]
			if gin != nil {
				gin[i] += g * row[i]
			}
		}
		ly.DBias[j] += g
	}
}

// ZeroGrad clears the accumulated gradients.
func (ly *Layer) ZeroGrad() {
	for i := range ly.DWts {
		ly.DWts[i] = 0
	}
	for j := range ly.DBias {
		ly.DBias[j] = 0
	}
}

// Update takes one Adam step on weights and biases at timestep t.
func (ly *Layer) Update(ap *AdamParams, lr float32, t int) {
	ap.Step(ly.Wts, ly.DWts, ly.MWts, ly.VWts, lr, t)
	ap.Step(ly.Bias, ly.DBias, ly.MBias, ly.VBias, lr, t)
}

// Weight initialization gains and biases, matching the transmitter
// network: small hidden gain keeps initial constellation points near
// the origin so early exploration is driven by the policy stds.
const (
	HiddenGain = 0.2
	HiddenBias = 0.2
	HeadGain   = 0.5
	HeadBias   = 0
)

// Net is the function approximator: a stack of fully-connected ReLU
// hidden layers followed by two independent linear heads producing the
// real and imaginary action means for one bit-vector.
type Net struct {

	// input size = bits per symbol
	NBits int

	// ReLU hidden layers
	Hidden []*Layer

	// linear single-unit output heads
	ReHead, ImHead *Layer
}

func NewNet(nbits int, hidden []int) *Net {
	nt := &Net{NBits: nbits}
	prev := nbits
	for _, h := range hidden {
		nt.Hidden = append(nt.Hidden, NewLayer(prev, h))
		prev = h
	}
	nt.ReHead = NewLayer(prev, 1)
	nt.ImHead = NewLayer(prev, 1)
	return nt
}

// InitWts initializes all layers from the given unit gaussian source.
func (nt *Net) InitWts(nrm *distuv.Normal) {
	for _, ly := range nt.Hidden {
		ly.InitWts(HiddenGain, HiddenBias, nrm)
	}
	nt.ReHead.InitWts(HeadGain, HeadBias, nrm)
	nt.ImHead.InitWts(HeadGain, HeadBias, nrm)
}

// Forward runs one bit-vector through the network, returning the two
// raw (unnormalized) means and the per-layer activations needed for
// Backward: acts[0] is the input, acts[k+1] the post-ReLU output of
// hidden layer k.
func (nt *Net) Forward(bits []float32) (re, im float32, acts [][]float32) {
	acts = make([][]float32, len(nt.Hidden)+1)
	acts[0] = bits
	for k, ly := range nt.Hidden {
		out := make([]float32, ly.NOut)
		ly.Forward(acts[k], out)
		for j, v := range out {
			if v < 0 {
				out[j] = 0
			}
		}
		acts[k+1] = out
	}
	last := acts[len(acts)-1]
	var ro, io [1]float32
	nt.ReHead.Forward(last, ro[:])
	nt.ImHead.Forward(last, io[:])
	return ro[0], io[0], acts
}

// Means is the activation-free forward pass for when no update will
// follow.
func (nt *Net) Means(bits []float32) (re, im float32) {
	re, im, _ = nt.Forward(bits)
	return
}

// Backward accumulates gradients for one sample given the activations
// from Forward and the gradients flowing into the two raw means.
func (nt *Net) Backward(acts [][]float32, gre, gim float32) {
	last := acts[len(acts)-1]
	g := make([]float32, len(last))
	nt.ReHead.Backward(last, []float32{gre}, g)
	nt.ImHead.Backward(last, []float32{gim}, g)
	for k := len(nt.Hidden) - 1; k >= 0; k-- {
		out := acts[k+1]
		for j := range g {
			if out[j] <= 0 { // ReLU gate
				g[j] = 0
			}
		}
		var gin []float32
		if k > 0 {
			gin = make([]float32, nt.Hidden[k].NIn)
		}
		nt.Hidden[k].Backward(acts[k], g, gin)
		g = gin
	}
}

// ZeroGrad clears accumulated gradients in all layers.
func (nt *Net) ZeroGrad() {
	for _, ly := range nt.Hidden {
		ly.ZeroGrad()
	}
	nt.ReHead.ZeroGrad()
	nt.ImHead.ZeroGrad()
}

// Update takes one Adam step on all layers at timestep t.
func (nt *Net) Update(ap *AdamParams, lr float32, t int) {
	for _, ly := range nt.Hidden {
		ly.Update(ap, lr, t)
	}
	nt.ReHead.Update(ap, lr, t)
	nt.ImHead.Update(ap, lr, t)
}
