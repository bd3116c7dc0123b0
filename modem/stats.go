// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"sort"

	"github.com/emer/etable/v2/etensor"
	"github.com/goki/mat32"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the current deterministic constellation.
type Stats struct {

	// centroid (mean symbol) per bit-vector, keyed by 0/1 labels
	Centroids map[string]mat32.Vec2

	// mean squared amplitude over all centroids
	AvgPower float32

	// mean Hamming distance of each centroid's 3 nearest centroids --
	// a proxy for constellation confusability under noise
	AvgHamming float32
}

// number of nearest centroids in the AvgHamming confusability measure
const statsK = 3

// BitVecs returns all 2^n bit-vectors over {-1,+1}, ordered with the
// last bit varying fastest (all -1 first).
func BitVecs(n int) [][]float32 {
	vecs := make([][]float32, 1<<uint(n))
	for i := range vecs {
		bv := make([]float32, n)
		for j := 0; j < n; j++ {
			if i&(1<<uint(n-1-j)) != 0 {
				bv[j] = 1
			} else {
				bv[j] = -1
			}
		}
		vecs[i] = bv
	}
	return vecs
}

// BitLabel converts a -1/+1 bit-vector to its 0/1 string label.
func BitLabel(bits []float32) string {
	lb := make([]byte, len(bits))
	for j, b := range bits {
		if b > 0 {
			lb[j] = '1'
		} else {
			lb[j] = '0'
		}
	}
	return string(lb)
}

// bitTensor packs one bit-vector as a batch of 1.
func bitTensor(bits []float32) *etensor.Float32 {
	bt := etensor.NewFloat32([]int{1, len(bits)}, nil, []string{"Batch", "Bits"})
	copy(bt.Values, bits)
	return bt
}

// GetStats deterministically evaluates the mean symbol for every
// possible bit-vector (each as its own batch, so the energy
// normalizer clamps per centroid) and returns the centroid map,
// average transmit power, and the nearest-centroid average Hamming
// distance.
func (tx *Transmitter) GetStats() (*Stats, error) {
	vecs := BitVecs(tx.Config.NBits)
	coords := make([]mat32.Vec2, len(vecs))
	cmap := make(map[string]mat32.Vec2, len(vecs))
	pow := make([]float64, len(vecs))
	for i, bv := range vecs {
		sy, err := tx.Evaluate(bitTensor(bv))
		if err != nil {
			return nil, err
		}
		c := mat32.Vec2{X: sy.Values[0], Y: sy.Values[1]}
		coords[i] = c
		cmap[BitLabel(bv)] = c
		pow[i] = float64(c.X*c.X + c.Y*c.Y)
	}
	st := &Stats{
		Centroids:  cmap,
		AvgPower:   float32(stat.Mean(pow, nil)),
		AvgHamming: avgHamming(statsK, coords, vecs),
	}
	return st, nil
}

// hamming counts differing bits between two same-length bit-vectors.
func hamming(a, b []float32) int {
	h := 0
	for j := range a {
		if (a[j] > 0) != (b[j] > 0) {
			h++
		}
	}
	return h
}

// avgHamming finds, for each centroid, its k nearest centroids in
// Euclidean distance (excluding itself; k clamps to the available
// neighbors) and averages the Hamming distance of their labels over
// the whole constellation.
func avgHamming(k int, coords []mat32.Vec2, vecs [][]float32) float32 {
	n := len(coords)
	if n < 2 {
		return 0
	}
	if k > n-1 {
		k = n - 1
	}
	tot := float32(0)
	di := make([]int, 0, n-1)
	for i := range coords {
		di = di[:0]
		for j := range coords {
			if j != i {
				di = append(di, j)
			}
		}
		ci := coords[i]
		dist := func(j int) float32 {
			dx := coords[j].X - ci.X
			dy := coords[j].Y - ci.Y
			return dx*dx + dy*dy
		}
		sort.Slice(di, func(a, b int) bool {
			return dist(di[a]) < dist(di[b])
		})
		hs := float32(0)
		for _, j := range di[:k] {
			hs += float32(hamming(vecs[i], vecs[j]))
		}
		tot += hs / float32(k)
	}
	return tot / float32(n)
}
