package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/KaramelBytes/xdrscope-cli/internal/chart"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/run"
)

type chartJob struct {
	name  string
	title string
	draw  func(w io.Writer) error
}

// RenderCharts writes every chart the result has data for as a PNG artifact
// of rn. Charts without data are skipped.
func RenderCharts(res *Result, rn *run.Run, opt chart.Options) ([]*run.Artifact, error) {
	jobs := []chartJob{
		{"top_handset_traffic.png", "Top handsets by traffic", func(w io.Writer) error {
			return chart.TopHandsetTraffic(w, res.Traffic, opt)
		}},
		{"duration_by_manufacturer.png", "Average duration per manufacturer", func(w io.Writer) error {
			return chart.GroupMeans(w, dataset.ColDuration, dataset.ColHandsetManufacturer, res.DurationByMaker, opt)
		}},
		{"histograms.png", "Sessions and data volume", func(w io.Writer) error {
			return drawHistograms(w, res, opt)
		}},
		{"correlation_heatmap.png", "Correlation matrix", func(w io.Writer) error {
			return chart.Heatmap(w, res.Corr)
		}},
		{"pca_scatter.png", "PCA projection", func(w io.Writer) error {
			if res.PCA == nil {
				return chart.ErrNoData
			}
			return chart.Scatter(w, "PCA Result (2 Components)", "Principal Component 1", "Principal Component 2", res.PCA.Projection, opt)
		}},
		{"elbow.png", "Elbow method", func(w io.Writer) error {
			return chart.Elbow(w, res.Elbow, opt)
		}},
		{"clusters.png", "Engagement clusters", func(w io.Writer) error {
			return drawClusters(w, res, opt)
		}},
	}

	var out []*run.Artifact
	for _, job := range jobs {
		a, err := rn.AddArtifact(job.name, run.KindChart, job.title, job.draw)
		if errors.Is(err, chart.ErrNoData) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("chart %s: %w", job.name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func drawHistograms(w io.Writer, res *Result, opt chart.Options) error {
	var series []chart.HistogramSeries
	for _, col := range []string{dataset.ColSessions, dataset.ColTotalDataVolume} {
		vals, err := dataset.Floats(res.Users, col)
		if err != nil {
			return chart.ErrNoData
		}
		series = append(series, chart.HistogramSeries{Name: col, Values: vals})
	}
	return chart.Histogram(w, "Distribution of sessions and total data volume", series, opt)
}

func drawClusters(w io.Writer, res *Result, opt chart.Options) error {
	if res.Model == nil {
		return chart.ErrNoData
	}
	xs, err := dataset.Floats(res.Engagement, dataset.ColSessionFrequency)
	if err != nil {
		return err
	}
	ys, err := dataset.Floats(res.Engagement, dataset.ColTotalTraffic)
	if err != nil {
		return err
	}
	return chart.Clusters(w, dataset.ColSessionFrequency, dataset.ColTotalTraffic, xs, ys, res.Model.Labels, opt)
}
