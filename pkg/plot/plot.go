package plot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/vhive-serverless/sensorcheck/pkg/verdict"
)

var ErrNoSamples = errors.New("no samples to plot")

// SampleFigure renders the data rate series of one run together with its acceptance band
// and returns the path of the written PNG.
func SampleFigure(outputDir string, result verdict.TestResult, samples []float64) (string, error) {
	if len(samples) == 0 {
		return "", ErrNoSamples
	}

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("creating plot directory: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s %s (%s)", result.SensorPartNumber, result.SerialNumber, result.Verdict)
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Data rate [MB/s]"

	err := plotutil.AddLinePoints(p,
		"rx", series(samples),
		"min", limit(len(samples), result.MinDataRateLimit),
		"max", limit(len(samples), result.MaxDataRateLimit),
	)
	if err != nil {
		return "", fmt.Errorf("building plot: %w", err)
	}

	name := result.RunID
	if name == "" {
		name = result.SerialNumber
	}
	path := filepath.Join(outputDir, fmt.Sprintf("rx_%s.png", name))

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return "", fmt.Errorf("saving plot: %w", err)
	}

	log.Debugf("Plotted %d samples to %s", len(samples), path)
	return path, nil
}

func series(samples []float64) plotter.XYs {
	points := make(plotter.XYs, len(samples))
	for i, value := range samples {
		points[i].X = float64(i + 1)
		points[i].Y = value
	}
	return points
}

func limit(n int, value float64) plotter.XYs {
	return plotter.XYs{{X: 1, Y: value}, {X: float64(n), Y: value}}
}
