package render

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pdfsum/internal/domain"
)

const (
	barChartWidth  = 8 * vg.Inch
	barChartHeight = 4 * vg.Inch
	barWidth       = 24
)

var barColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// BarChart renders token counts as a PNG bar chart in table order.
func BarChart(table domain.FrequencyTable) ([]byte, error) {
	if len(table) == 0 {
		return nil, ErrNoWords
	}

	values := make(plotter.Values, len(table))
	labels := make([]string, len(table))
	for i, wc := range table {
		values[i] = float64(wc.Count)
		labels[i] = wc.Token
	}

	p := plot.New()
	p.Title.Text = "Word frequency"
	p.Y.Label.Text = "Count"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(values, vg.Points(barWidth))
	if err != nil {
		return nil, fmt.Errorf("create bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(labels...)

	wt, err := p.WriterTo(barChartWidth, barChartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("create png writer: %w", err)
	}

	var buf bytes.Buffer
	if _, err = wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}

	return buf.Bytes(), nil
}
