package chart

import (
	"errors"
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/skyyyyy916/my-cyber-dashboard/internal/engine"
)

// ErrNoValues is returned for an empty breakdown; the chart is not rendered.
var ErrNoValues = errors.New("nothing to chart")

const (
	width  = 640
	height = 480
)

// pastel is the slice palette of the attack-type chart.
var pastel = []drawing.Color{
	drawing.ColorFromHex("66c5cc"),
	drawing.ColorFromHex("f6cf71"),
	drawing.ColorFromHex("f89c74"),
	drawing.ColorFromHex("dcb0f2"),
	drawing.ColorFromHex("87c55f"),
	drawing.ColorFromHex("9eb9f3"),
	drawing.ColorFromHex("fe88b1"),
	drawing.ColorFromHex("c9db74"),
	drawing.ColorFromHex("8be0a4"),
	drawing.ColorFromHex("b497e7"),
	drawing.ColorFromHex("b3b3b3"),
}

// RenderShares draws the attack-type proportions as a PNG pie chart.
func RenderShares(w io.Writer, shares []engine.Share) error {
	if len(shares) == 0 {
		return ErrNoValues
	}

	values := make([]gochart.Value, 0, len(shares))
	for i, s := range shares {
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %.1f%%", s.AttackType, s.Share*100),
			Value: float64(s.Count),
			Style: gochart.Style{
				FillColor:   pastel[i%len(pastel)],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
			},
		})
	}

	pie := gochart.PieChart{
		Title:  "Attack Type Proportions",
		Width:  width,
		Height: height,
		Values: values,
	}
	return pie.Render(gochart.PNG, w)
}

// RenderPorts draws the top targeted ports as a PNG bar chart.
// Bars are shaded from light to dark red by count.
func RenderPorts(w io.Writer, ports []engine.PortCount) error {
	if len(ports) == 0 {
		return ErrNoValues
	}

	maxCount := 0
	for _, p := range ports {
		if p.Count > maxCount {
			maxCount = p.Count
		}
	}

	bars := make([]gochart.Value, 0, len(ports))
	for _, p := range ports {
		bars = append(bars, gochart.Value{
			Label: p.Port,
			Value: float64(p.Count),
			Style: gochart.Style{
				FillColor:   redScale(float64(p.Count) / float64(maxCount)),
				StrokeColor: drawing.ColorFromHex("67000d"),
				StrokeWidth: 1,
			},
		})
	}

	bar := gochart.BarChart{
		Title:      "Top 10 Targeted Ports",
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      width,
		Height:     height,
		BarWidth:   40,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1},
		},
		Bars: bars,
	}
	return bar.Render(gochart.PNG, w)
}

// redScale maps t in [0,1] from #fee0d2 to #a50f15.
func redScale(t float64) drawing.Color {
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return drawing.Color{R: lerp(0xfe, 0xa5), G: lerp(0xe0, 0x0f), B: lerp(0xd2, 0x15), A: 255}
}
