package exporter

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"taxtrend/pkg/contracts/domain"
)

const (
	chartWidth  = 6 * vg.Inch
	chartHeight = 3 * vg.Inch
)

var chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// YearlyTotalsChart renders the municipal totals per year as a PNG bar chart.
func YearlyTotalsChart(title string, totals []domain.YearTotal) ([]byte, error) {
	if len(totals) == 0 {
		return nil, fmt.Errorf("no yearly totals to plot")
	}

	values := make(plotter.Values, len(totals))
	labels := make([]string, len(totals))
	for i, yt := range totals {
		values[i] = yt.Total.InexactFloat64()
		labels[i] = yt.Year
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(11)
	p.Y.Label.Text = "R$"
	p.BackgroundColor = color.White

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = chartBlue
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(labels...)
	p.X.Tick.Label.XAlign = draw.XCenter
	if p.Y.Min > 0 {
		p.Y.Min = 0
	}

	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}
