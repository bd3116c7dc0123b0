// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package modem

import (
	"fmt"
	"image/color"
	"math"

	"github.com/emer/etable/v2/etensor"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Note is one labeled diagnostic value rendered into the corner of the
// constellation diagram.
type Note struct {
	Name  string
	Value string
}

// PlotArgs parameterizes Visualize: the channel noise power (drawn as
// a circle of radius sqrt(NoisePower) around each centroid, and used
// for the Eb/N0 annotation), plus arbitrary labeled notes.
type PlotArgs struct {

	// channel noise power
	NoisePower float64

	// extra labeled values to render on the diagram
	Notes []Note
}

// number of random transmissions scattered on the diagram
const plotScatterN = 10000

// Visualize writes a constellation diagram for the current policy to
// the configured image file template with the iteration substituted:
// a cloud of sampled transmissions for random bits, the labeled
// centroid for every bit-vector with its noise circle, and the
// optional groundtruth overlay. File failures wrap ErrDiagIO.
func (tx *Transmitter) Visualize(iteration int, args *PlotArgs) error {
	if args == nil {
		args = &PlotArgs{}
	}
	nb := tx.Config.NBits
	p := plot.New()
	p.Title.Text = "Constellation Diagram"
	p.X.Label.Text = "real part"
	p.Y.Label.Text = "imaginary part"

	// sampled cloud for random bit-vectors
	cloud := etensor.NewFloat32([]int{plotScatterN, nb}, nil, []string{"Batch", "Bits"})
	for i := range cloud.Values {
		cloud.Values[i] = float32(2*tx.Rnd.Intn(2) - 1)
	}
	csy, _, err := tx.Transmit(cloud, false)
	if err != nil {
		return err
	}
	cxy := make(plotter.XYs, plotScatterN)
	for i := range cxy {
		cxy[i].X = float64(csy.Values[2*i])
		cxy[i].Y = float64(csy.Values[2*i+1])
	}
	sc, err := plotter.NewScatter(cxy)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = color.NRGBA{R: 255, A: 25}
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)

	// centroids with labels and noise circles
	vecs := BitVecs(nb)
	eval := etensor.NewFloat32([]int{len(vecs), nb}, nil, []string{"Batch", "Bits"})
	for i, bv := range vecs {
		copy(eval.Values[i*nb:(i+1)*nb], bv)
	}
	esy, err := tx.Evaluate(eval)
	if err != nil {
		return err
	}
	exy := make(plotter.XYs, len(vecs))
	lbls := make([]string, len(vecs))
	eb := 0.0
	for i, bv := range vecs {
		x := float64(esy.Values[2*i])
		y := float64(esy.Values[2*i+1])
		exy[i].X = x
		exy[i].Y = y
		lbls[i] = BitLabel(bv)
		eb += x*x + y*y
		if args.NoisePower > 0 {
			circ := circleLine(x, y, math.Sqrt(args.NoisePower), color.NRGBA{R: 128, B: 128, A: 255})
			p.Add(circ)
		}
	}
	eb /= float64(len(vecs)) * float64(nb)
	cs, err := plotter.NewScatter(exy)
	if err != nil {
		return err
	}
	cs.GlyphStyle.Color = color.NRGBA{R: 128, B: 128, A: 255}
	cs.GlyphStyle.Radius = vg.Points(4)
	cs.GlyphStyle.Shape = draw.PyramidGlyph{}
	p.Add(cs)
	lb, err := plotter.NewLabels(plotter.XYLabels{XYs: exy, Labels: lbls})
	if err != nil {
		return err
	}
	p.Add(lb)

	// groundtruth overlay
	if len(tx.Config.GroundTruth) > 0 {
		gxy := make(plotter.XYs, 0, len(tx.Config.GroundTruth))
		for _, gt := range tx.Config.GroundTruth {
			gxy = append(gxy, plotter.XY{X: float64(gt.X), Y: float64(gt.Y)})
		}
		gs, err := plotter.NewScatter(gxy)
		if err != nil {
			return err
		}
		gs.GlyphStyle.Color = color.NRGBA{R: 128, B: 128, A: 255}
		gs.GlyphStyle.Radius = vg.Points(2)
		gs.GlyphStyle.Shape = draw.RingGlyph{}
		p.Add(gs)
	}

	lim := 3.0
	if tx.Config.RestrictEnergy {
		lim = 1.5
		p.Add(circleLine(0, 0, 1, color.NRGBA{R: 128, G: 128, B: 128, A: 255}))
	}
	p.Add(axisLine(-lim, lim, true), axisLine(-lim, lim, false))
	p.X.Min, p.X.Max = -lim, lim
	p.Y.Min, p.Y.Max = -lim, lim

	// parameter annotations in the upper left
	notes := append([]Note(nil), args.Notes...)
	if args.NoisePower > 0 {
		ebn0 := 10 * math.Log10(eb/args.NoisePower)
		notes = append(notes, Note{Name: "Eb/N0", Value: fmt.Sprintf("%.2f dB", ebn0)})
	}
	if len(notes) > 0 {
		nxy := make(plotter.XYs, len(notes))
		nls := make([]string, len(notes))
		for i, nt := range notes {
			nxy[i].X = -lim + 0.1*lim
			nxy[i].Y = lim - 0.5 - 0.08*lim*float64(i)
			nls[i] = nt.Name + ": " + nt.Value
		}
		nl, err := plotter.NewLabels(plotter.XYLabels{XYs: nxy, Labels: nls})
		if err != nil {
			return err
		}
		p.Add(nl)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, tx.Config.ImageFile(iteration)); err != nil {
		return fmt.Errorf("%w: %v", ErrDiagIO, err)
	}
	return nil
}

// circleLine returns a line plotter tracing a circle.
func circleLine(cx, cy, r float64, clr color.Color) *plotter.Line {
	const n = 64
	xy := make(plotter.XYs, n+1)
	for i := 0; i <= n; i++ {
		th := 2 * math.Pi * float64(i) / n
		xy[i].X = cx + r*math.Cos(th)
		xy[i].Y = cy + r*math.Sin(th)
	}
	ln, _ := plotter.NewLine(xy)
	ln.LineStyle.Color = clr
	return ln
}

// axisLine returns a grey line through the origin, horizontal or
// vertical, spanning [lo, hi].
func axisLine(lo, hi float64, horiz bool) *plotter.Line {
	xy := make(plotter.XYs, 2)
	if horiz {
		xy[0] = plotter.XY{X: lo, Y: 0}
		xy[1] = plotter.XY{X: hi, Y: 0}
	} else {
		xy[0] = plotter.XY{X: 0, Y: lo}
		xy[1] = plotter.XY{X: 0, Y: hi}
	}
	ln, _ := plotter.NewLine(xy)
	ln.LineStyle.Color = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	return ln
}
