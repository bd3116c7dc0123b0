// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"fmt"

	"github.com/emer/etable/v2/etensor"
	"github.com/goki/mat32"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Trajectory is one saved transmit episode: the input bit-vectors and
// the actions sampled for them, batch-aligned. It is the opaque handle
// coupling a Transmit(save=true) call to the PolicyUpdate that scores
// it -- the caller must pass the guesses for exactly this batch.
type Trajectory struct {

	// input bit-vectors, batch x NBits, values -1/+1
	Bits *etensor.Float32

	// sampled real parts, one per batch element
	ReAct []float32

	// sampled imaginary parts
	ImAct []float32
}

// Batch returns the batch length of the trajectory.
func (tj *Trajectory) Batch() int {
	return len(tj.ReAct)
}

// Transmitter is the trainable stochastic transmitter. All trainable
// state (network weights and the two log-stds) is owned here and
// mutated only by PolicyUpdate. Operations are synchronous and must be
// called from one goroutine at a time.
type Transmitter struct {

	// full configuration -- fixed after New
	Config Config

	// optimizer parameters
	Adam AdamParams `view:"inline" desc:"optimizer parameters"`

	// the function approximator mapping bits to action means
	Net *Net

	// global log standard deviation of the real channel -- trainable,
	// shared across all inputs
	LogStdRe float32

	// global log standard deviation of the imaginary channel
	LogStdIm float32

	// surrogate objective value from the last policy update
	LastSurr float32 `inactive:"+" desc:"surrogate objective value from the last policy update"`

	// mean advantage from the last policy update
	LastAdv float32 `inactive:"+" desc:"mean advantage from the last policy update"`

	// Adam timestep, incremented once per PolicyUpdate
	T int `inactive:"+" desc:"Adam timestep, incremented once per PolicyUpdate"`

	// private random source -- the per-instance compute context, so
	// independent transmitters never share global state
	Rnd *rand.Rand `view:"-" desc:"private random source"`

	// unit gaussian on Rnd, used for init and action sampling
	nrm distuv.Normal

	// adam moment state for the two log-stds
	mRe, vRe, mIm, vIm float32
}

// New returns a Transmitter for the given configuration, with weights
// freshly initialized from the config seed. The config is validated
// first and copied in.
func New(cf *Config) (*Transmitter, error) {
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	tx := &Transmitter{Config: *cf}
	tx.Adam.Defaults()
	tx.Rnd = rand.New(rand.NewSource(cf.Seed))
	tx.nrm = distuv.Normal{Mu: 0, Sigma: 1, Src: tx.Rnd}
	tx.Net = NewNet(cf.NBits, cf.Hidden)
	tx.Net.InitWts(&tx.nrm)
	tx.LogStdRe = cf.InitLogStd
	tx.LogStdIm = cf.InitLogStd
	return tx, nil
}

// checkBits validates a batch of bit-vectors and returns the batch
// length.
func (tx *Transmitter) checkBits(bits *etensor.Float32) (int, error) {
	if bits == nil || bits.NumDims() != 2 {
		return 0, fmt.Errorf("%w: bits must be a 2D batch x NBits tensor", ErrShapeMismatch)
	}
	if n := bits.Dim(1); n != tx.Config.NBits {
		return 0, fmt.Errorf("%w: bits per sample = %d, configured NBits = %d", ErrShapeMismatch, n, tx.Config.NBits)
	}
	b := bits.Dim(0)
	if b == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}
	return b, nil
}

// sample returns row i of a batch bits tensor as a slice (shared
// storage, do not mutate).
func sample(bits *etensor.Float32, i int) []float32 {
	n := bits.Dim(1)
	return bits.Values[i*n : (i+1)*n]
}

// means runs the approximator over the batch and applies the output
// normalizer when energy is restricted. This is the deterministic part
// of the pipeline shared by Transmit and Evaluate.
func (tx *Transmitter) means(bits *etensor.Float32, b int) (re, im []float32) {
	re = make([]float32, b)
	im = make([]float32, b)
	for i := 0; i < b; i++ {
		re[i], im[i] = tx.Net.Means(sample(bits, i))
	}
	if tx.Config.RestrictEnergy {
		div, _ := normDivisor(re, im)
		for i := 0; i < b; i++ {
			re[i] /= div
			im[i] /= div
		}
	}
	return
}

// normDivisor returns the batch normalization divisor
// relu(maxAmplitude-1)+1 and the index of the max-amplitude sample.
// The divisor is 1 (a no-op) whenever the batch-max amplitude is <= 1;
// otherwise it scales the worst-case point exactly onto the unit
// circle. All samples share the divisor so the relative geometry of the
// batch is preserved.
func normDivisor(re, im []float32) (float32, int) {
	mx := float32(0)
	mi := 0
	for i := range re {
		e := re[i]*re[i] + im[i]*im[i]
		if e > mx {
			mx = e
			mi = i
		}
	}
	amp := mat32.Sqrt(mx)
	if amp <= 1 {
		return 1, mi
	}
	return amp, mi
}

// symbols packs parallel re / im slices into a batch x 2 tensor.
func symbols(re, im []float32) *etensor.Float32 {
	sy := etensor.NewFloat32([]int{len(re), 2}, nil, []string{"Batch", "ReIm"})
	for i := range re {
		sy.Values[2*i] = re[i]
		sy.Values[2*i+1] = im[i]
	}
	return sy
}

// Transmit modulates a batch of bit-vectors (batch x NBits, values
// -1/+1) into symbols (batch x 2) by sampling the Gaussian policy
// heads around the (possibly normalized) network means. With save=true
// it also returns the Trajectory handle required by PolicyUpdate for
// this episode; with save=false the trajectory is nil.
func (tx *Transmitter) Transmit(bits *etensor.Float32, save bool) (*etensor.Float32, *Trajectory, error) {
	b, err := tx.checkBits(bits)
	if err != nil {
		return nil, nil, err
	}
	re, im := tx.means(bits, b)
	sre := mat32.Exp(tx.LogStdRe)
	sim := mat32.Exp(tx.LogStdIm)
	for i := 0; i < b; i++ {
		re[i] += sre * float32(tx.nrm.Rand())
		im[i] += sim * float32(tx.nrm.Rand())
	}
	sy := symbols(re, im)
	if !save {
		return sy, nil, nil
	}
	bc := etensor.NewFloat32([]int{b, tx.Config.NBits}, nil, []string{"Batch", "Bits"})
	copy(bc.Values, bits.Values)
	tj := &Trajectory{Bits: bc, ReAct: re, ImAct: im}
	return sy, tj, nil
}

// Evaluate is the deterministic mean-only path: it returns the
// centroid symbols (batch x 2) for the given bit-vectors, bypassing
// the stochastic policy heads entirely. Two calls with unchanged
// parameters yield identical results.
func (tx *Transmitter) Evaluate(bits *etensor.Float32) (*etensor.Float32, error) {
	b, err := tx.checkBits(bits)
	if err != nil {
		return nil, err
	}
	re, im := tx.means(bits, b)
	return symbols(re, im), nil
}

// checkGuess validates a decoded-guess batch against a trajectory.
func (tx *Transmitter) checkGuess(tj *Trajectory, guess *etensor.Float32) (int, error) {
	if tj == nil {
		return 0, fmt.Errorf("%w: transmit with save=true before updating", ErrNoTrajectory)
	}
	b, err := tx.checkBits(guess)
	if err != nil {
		return 0, err
	}
	if b != tj.Batch() {
		return 0, fmt.Errorf("%w: guess batch = %d, trajectory batch = %d", ErrShapeMismatch, b, tj.Batch())
	}
	return b, nil
}

// LassoLoss returns the per-sample nonnegative loss of a decoded-guess
// batch (values -1/+1, same convention as the inputs) against the
// trajectory: half the L1 distance between input and guess bits (= the
// Hamming distance in bit units), plus LambdaP times the sampled symbol
// energy when energy is not architecturally restricted.
func (tx *Transmitter) LassoLoss(tj *Trajectory, guess *etensor.Float32) ([]float32, error) {
	b, err := tx.checkGuess(tj, guess)
	if err != nil {
		return nil, err
	}
	loss := make([]float32, b)
	for i := 0; i < b; i++ {
		in := sample(tj.Bits, i)
		gs := sample(guess, i)
		l1 := float32(0)
		for j := range in {
			l1 += mat32.Abs(in[j] - gs[j])
		}
		loss[i] = l1 / 2
		if !tx.Config.RestrictEnergy {
			loss[i] += tx.Config.LambdaP * (tj.ReAct[i]*tj.ReAct[i] + tj.ImAct[i]*tj.ImAct[i])
		}
	}
	return loss, nil
}

// log of sqrt(2 pi), for the gaussian log density
const logSqrt2Pi = 0.9189385332046727

// gaussLogProb is the log density of x under a Normal with the given
// mean and log standard deviation. The log-std parameterization avoids
// taking the log of a potentially tiny std.
func gaussLogProb(mean, logStd, x float32) float32 {
	z := (x - mean) / mat32.Exp(logStd)
	return -logStd - logSqrt2Pi - 0.5*z*z
}

// PolicyUpdate takes one REINFORCE gradient step on all policy
// parameters, scoring the given trajectory against the decoded-guess
// batch echoed back by the external receiver. The advantage is the
// negated LassoLoss -- derived here, never supplied by the caller --
// and the surrogate objective is the negative advantage-weighted
// log-probability of the cached actions under the current policy
// (re-evaluated, not re-sampled). Returns the mean advantage as a
// diagnostic of the episode's average reward.
func (tx *Transmitter) PolicyUpdate(tj *Trajectory, guess *etensor.Float32, stepsize float32) (float32, error) {
	loss, err := tx.LassoLoss(tj, guess)
	if err != nil {
		return 0, err
	}
	b := len(loss)
	adv := make([]float64, b)
	for i, l := range loss {
		adv[i] = float64(-l)
	}

	// forward under current parameters, keeping activations and both
	// raw and normalized means
	rawRe := make([]float32, b)
	rawIm := make([]float32, b)
	acts := make([][][]float32, b)
	for i := 0; i < b; i++ {
		rawRe[i], rawIm[i], acts[i] = tx.Net.Forward(sample(tj.Bits, i))
	}
	re := rawRe
	im := rawIm
	div := float32(1)
	mi := 0
	if tx.Config.RestrictEnergy {
		div, mi = normDivisor(rawRe, rawIm)
		if div != 1 {
			re = make([]float32, b)
			im = make([]float32, b)
			for i := 0; i < b; i++ {
				re[i] = rawRe[i] / div
				im[i] = rawIm[i] / div
			}
		}
	}

	// gradients of the surrogate wrt the normalized means and the two
	// log-stds; also accumulate the surrogate value itself
	sre := mat32.Exp(tx.LogStdRe)
	sim := mat32.Exp(tx.LogStdIm)
	vre := sre * sre
	vim := sim * sim
	gmRe := make([]float32, b)
	gmIm := make([]float32, b)
	var gLogRe, gLogIm, surr float32
	bf := float32(b)
	for i := 0; i < b; i++ {
		a := float32(adv[i])
		dre := tj.ReAct[i] - re[i]
		dim := tj.ImAct[i] - im[i]
		surr -= a * (gaussLogProb(re[i], tx.LogStdRe, tj.ReAct[i]) +
			gaussLogProb(im[i], tx.LogStdIm, tj.ImAct[i])) / bf
		gmRe[i] = -a / bf * dre / vre
		gmIm[i] = -a / bf * dim / vim
		gLogRe += -a / bf * (dre*dre/vre - 1)
		gLogIm += -a / bf * (dim*dim/vim - 1)
	}

	// backprop through the normalizer: the divisor depends on the
	// max-amplitude sample, so that sample picks up the sum of all
	// rescaling gradients; transparent when the divisor is 1
	graRe := gmRe
	graIm := gmIm
	if div != 1 {
		graRe = make([]float32, b)
		graIm = make([]float32, b)
		s := float32(0)
		for i := 0; i < b; i++ {
			graRe[i] = gmRe[i] / div
			graIm[i] = gmIm[i] / div
			s += gmRe[i]*(-rawRe[i]/(div*div)) + gmIm[i]*(-rawIm[i]/(div*div))
		}
		graRe[mi] += s * rawRe[mi] / div
		graIm[mi] += s * rawIm[mi] / div
	}

	tx.Net.ZeroGrad()
	for i := 0; i < b; i++ {
		tx.Net.Backward(acts[i], graRe[i], graIm[i])
	}

	tx.T++
	tx.Net.Update(&tx.Adam, stepsize, tx.T)
	tx.Adam.StepVal(&tx.LogStdRe, gLogRe, &tx.mRe, &tx.vRe, stepsize, tx.T)
	tx.Adam.StepVal(&tx.LogStdIm, gLogIm, &tx.mIm, &tx.vIm, stepsize, tx.T)

	tx.LastSurr = surr
	tx.LastAdv = float32(stat.Mean(adv, nil))
	return tx.LastAdv, nil
}
