package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"exohunt/internal/config"
	"exohunt/internal/fileutil"
	"exohunt/internal/lightcurve"
)

// ErrNoData is returned when nothing finite is left to draw.
var ErrNoData = errors.New("no finite samples to plot")

var (
	dataColor  = color.RGBA{R: 40, G: 40, B: 40, A: 160}
	modelColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	polyColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	powerColor = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Options sizes the figure.
type Options struct {
	Width      vg.Length
	Height     vg.Length
	PolyDegree int
}

// OptionsFromConfig reads the plots section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:      vg.Length(cfg.Plots.Width) * vg.Centimeter,
		Height:     vg.Length(cfg.Plots.Height) * vg.Centimeter,
		PolyDegree: cfg.Plots.PolyDegree,
	}
}

// Figure is everything drawn for one search strategy. Model and the
// periodogram are optional; a failed fit still plots the folded data.
type Figure struct {
	Title   string
	Period  float64
	Folded  *lightcurve.LightCurve
	Model   *lightcurve.LightCurve
	Periods []float64
	Powers  []float64
}

// Save renders fig as a PNG at path, replacing any existing file.
func Save(path string, fig Figure, opts Options) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Render(w, fig, opts)
	})
}

// Render writes fig as a PNG to w.
func Render(w io.Writer, fig Figure, opts Options) error {
	folded, err := foldedPlot(fig, opts.PolyDegree)
	if err != nil {
		return err
	}
	rows := [][]*plot.Plot{{folded}}
	if pg := periodogramPlot(fig); pg != nil {
		rows = [][]*plot.Plot{{pg}, {folded}}
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 20 * vg.Centimeter
	}
	if height <= 0 {
		height = 12 * vg.Centimeter
	}
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(rows),
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: 2 * vg.Millimeter,
	}
	canvases := plot.Align(rows, tiles, dc)
	for i := range rows {
		rows[i][0].Draw(canvases[i][0])
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func foldedPlot(fig Figure, degree int) (*plot.Plot, error) {
	data := finiteXYs(fig.Folded)
	if len(data) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = fig.Title
	if fig.Period > 0 {
		p.Title.Text = fmt.Sprintf("%s  P = %.5f d", fig.Title, fig.Period)
	}
	p.X.Label.Text = "Time from mid-transit [days]"
	p.Y.Label.Text = "Normalized flux"

	scatter, err := plotter.NewScatter(data)
	if err != nil {
		return nil, fmt.Errorf("folded scatter: %w", err)
	}
	scatter.GlyphStyle.Color = dataColor
	scatter.GlyphStyle.Radius = vg.Points(0.8)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)
	p.Legend.Add("folded", scatter)

	if model := finiteXYs(fig.Model); len(model) > 1 {
		line, err := plotter.NewLine(model)
		if err != nil {
			return nil, fmt.Errorf("model line: %w", err)
		}
		line.LineStyle.Color = modelColor
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("transit model", line)
	}

	if degree > 0 && len(data) > degree+1 {
		if trend, err := polyLine(data, degree); err == nil {
			trend.LineStyle.Color = polyColor
			trend.LineStyle.Width = vg.Points(1)
			trend.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			p.Add(trend)
			p.Legend.Add(fmt.Sprintf("degree %d fit", degree), trend)
		}
	}
	p.Legend.Top = false
	p.Legend.Left = false
	p.Add(plotter.NewGrid())
	return p, nil
}

func periodogramPlot(fig Figure) *plot.Plot {
	if len(fig.Periods) == 0 || len(fig.Periods) != len(fig.Powers) {
		return nil
	}
	pts := make(plotter.XYs, 0, len(fig.Periods))
	for i, period := range fig.Periods {
		if finite(period) && finite(fig.Powers[i]) {
			pts = append(pts, plotter.XY{X: period, Y: fig.Powers[i]})
		}
	}
	if len(pts) < 2 {
		return nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil
	}
	line.LineStyle.Color = powerColor
	line.LineStyle.Width = vg.Points(0.8)

	p := plot.New()
	p.Title.Text = "BLS periodogram"
	p.X.Label.Text = "Period [days]"
	p.Y.Label.Text = "Power"
	p.Add(line, plotter.NewGrid())
	return p
}

func polyLine(data plotter.XYs, degree int) (*plotter.Line, error) {
	x := make([]float64, len(data))
	y := make([]float64, len(data))
	for i, pt := range data {
		x[i], y[i] = pt.X, pt.Y
	}
	poly, err := FitPolynomial(x, y, degree)
	if err != nil {
		return nil, err
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	const samples = 400
	pts := make(plotter.XYs, samples)
	for i := range pts {
		xv := lo + (hi-lo)*float64(i)/float64(samples-1)
		pts[i] = plotter.XY{X: xv, Y: poly.Eval(xv)}
	}
	return plotter.NewLine(pts)
}

func finiteXYs(lc *lightcurve.LightCurve) plotter.XYs {
	if lc.Len() == 0 {
		return nil
	}
	pts := make(plotter.XYs, 0, lc.Len())
	for i := range lc.Time {
		if finite(lc.Time[i]) && finite(lc.Flux[i]) {
			pts = append(pts, plotter.XY{X: lc.Time[i], Y: lc.Flux[i]})
		}
	}
	return pts
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
