// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import "github.com/goki/mat32"

// AdamParams are the adaptive first / second moment optimizer
// parameters shared by every trainable parameter of the policy.
// The learning rate is not a parameter here: the caller passes the
// stepsize into each PolicyUpdate call and owns its decay schedule.
type AdamParams struct {

	// first-moment (mean) decay rate
	Beta1 float32 `def:"0.9" desc:"first-moment (mean) decay rate"`

	// second-moment (variance) decay rate
	Beta2 float32 `def:"0.999" desc:"second-moment (variance) decay rate"`

	// small constant preventing division by zero variance
	Eps float32 `def:"1e-8" desc:"small constant preventing division by zero variance"`
}

func (ap *AdamParams) Defaults() {
	ap.Beta1 = 0.9
	ap.Beta2 = 0.999
	ap.Eps = 1e-8
}

// Step applies one bias-corrected Adam update to par in place, given
// the gradient and the moment slices, at 1-based timestep t.
func (ap *AdamParams) Step(par, grad, m, v []float32, lr float32, t int) {
	c1 := 1 - mat32.Pow(ap.Beta1, float32(t))
	c2 := 1 - mat32.Pow(ap.Beta2, float32(t))
	for i := range par {
		g := grad[i]
		m[i] = ap.Beta1*m[i] + (1-ap.Beta1)*g
		v[i] = ap.Beta2*v[i] + (1-ap.Beta2)*g*g
		mh := m[i] / c1
		vh := v[i] / c2
		par[i] -= lr * mh / (mat32.Sqrt(vh) + ap.Eps)
	}
}

// StepVal is Step for a single scalar parameter (the log-stds).
func (ap *AdamParams) StepVal(par *float32, grad float32, m, v *float32, lr float32, t int) {
	c1 := 1 - mat32.Pow(ap.Beta1, float32(t))
	c2 := 1 - mat32.Pow(ap.Beta2, float32(t))
	*m = ap.Beta1*(*m) + (1-ap.Beta1)*grad
	*v = ap.Beta2*(*v) + (1-ap.Beta2)*grad*grad
	mh := *m / c1
	vh := *v / c2
	*par -= lr * mh / (mat32.Sqrt(vh) + ap.Eps)
}
