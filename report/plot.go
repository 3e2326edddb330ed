package report

import (
	"sort"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoSeries is returned when there is nothing to plot.
var ErrNoSeries = errors.New("report: no series to plot")

// Point is the mean cost of the queries run at one range width.
type Point struct {
	Width    float64
	Accesses float64
}

// Series is one structure's cost curve.
type Series struct {
	Name   string
	Points []Point
}

// PlotAccesses draws mean accesses per query against range width, one line
// per series, and saves the chart to path. The image format follows the
// file extension.
func PlotAccesses(path string, series []Series) error {
	if len(series) == 0 {
		return ErrNoSeries
	}
	p := plot.New()
	p.Title.Text = "Range query cost"
	p.X.Label.Text = "Range width"
	p.Y.Label.Text = "Mean accesses per query"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		line, err := plotter.NewLine(xys(s.Points))
		if err != nil {
			return errors.Wrapf(err, "report: series %q", s.Name)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save plot %s", path)
	}
	return nil
}

func xys(points []Point) plotter.XYs {
	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X = pt.Width
		pts[i].Y = pt.Accesses
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts
}
