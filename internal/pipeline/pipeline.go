package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/xdrscope-cli/internal/analysis"
	"github.com/KaramelBytes/xdrscope-cli/internal/cluster"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

// Missing-value policies.
const (
	PolicyMean = "mean"
	PolicyDrop = "drop"
)

// UserMetrics are the per-user columns used for correlation and PCA.
var UserMetrics = []string{
	dataset.ColSessions,
	dataset.ColTotalDuration,
	dataset.ColTotalDownload,
	dataset.ColTotalUpload,
	dataset.ColTotalDataVolume,
}

// Options controls an analysis run.
type Options struct {
	Source         string
	MissingPolicy  string
	OutlierColumns []string
	TopN           int
	PCAColumns     []string
	Standardize    bool
	Cluster        cluster.Options
	SkipElbow      bool
}

// DefaultOptions returns the settings used by the CLI when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MissingPolicy:  PolicyMean,
		OutlierColumns: []string{dataset.ColDuration, dataset.ColTotalDL, dataset.ColTotalUL},
		TopN:           analysis.DefaultTopHandsets,
		PCAColumns:     UserMetrics,
		Standardize:    true,
		Cluster:        cluster.DefaultOptions(),
	}
}

// ColumnInfo describes one column of the raw table.
type ColumnInfo struct {
	Name    string
	Kind    string
	Missing int
}

// Stage records how long one pipeline step took.
type Stage struct {
	Name     string
	Duration time.Duration
}

// Result holds every intermediate product of a run.
type Result struct {
	Source          string
	Rows            int
	CleanRows       int
	Schema          []ColumnInfo
	Handsets        []analysis.ValueCount
	Manufacturers   []analysis.ValueCount
	PerMaker        []analysis.ManufacturerHandset
	Traffic         []analysis.HandsetTraffic
	DurationByMaker []analysis.GroupMean
	Fences          []analysis.Fences
	Stats           []analysis.ColumnStats
	Cleaned         dataframe.DataFrame
	Users           dataframe.DataFrame
	Deciles         []analysis.DecileBucket
	Corr            *analysis.CorrMatrix
	PCA             *analysis.PCAResult
	Engagement      dataframe.DataFrame
	Elbow           []cluster.ElbowPoint
	Model           *cluster.Model
	Stages          []Stage
	Notes           []string
}

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

type runner struct {
	ctx context.Context
	log zerolog.Logger
	res *Result
}

// stage runs fn, records its duration and logs the outcome.
func (r *runner) stage(name string, fn func() error) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.res.Stages = append(r.res.Stages, Stage{Name: name, Duration: d})
	if err != nil {
		r.log.Error().Err(err).Str("stage", name).Dur("elapsed", d).Msg("stage failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	r.log.Debug().Str("stage", name).Dur("elapsed", d).Msg("stage done")
	return nil
}

// Run executes the analysis over a table of session records.
func Run(ctx context.Context, df dataframe.DataFrame, opt Options, logger zerolog.Logger) (*Result, error) {
	if err := dataset.RequireColumns(df, dataset.SessionColumns...); err != nil {
		return nil, err
	}
	if df.Nrow() == 0 {
		return nil, dataset.ErrEmpty
	}
	if opt.MissingPolicy == "" {
		opt.MissingPolicy = PolicyMean
	}
	if opt.TopN <= 0 {
		opt.TopN = analysis.DefaultTopHandsets
	}
	if len(opt.PCAColumns) == 0 {
		opt.PCAColumns = UserMetrics
	}
	res := &Result{Source: opt.Source, Rows: df.Nrow(), Schema: schemaOf(df)}
	r := &runner{ctx: ctx, log: logger.With().Str("source", opt.Source).Logger(), res: res}
	r.log.Info().Int("rows", df.Nrow()).Int("columns", df.Ncol()).Msg("analysis started")

	if err := r.stage("handsets", func() error {
		var err error
		if res.Handsets, err = analysis.TopHandsets(df, opt.TopN); err != nil {
			return err
		}
		if res.Manufacturers, err = analysis.TopManufacturers(df, analysis.DefaultTopManufacturers); err != nil {
			return err
		}
		makers := make([]string, len(res.Manufacturers))
		for i, m := range res.Manufacturers {
			makers[i] = m.Value
		}
		if res.PerMaker, err = analysis.TopHandsetsPerManufacturer(df, makers, analysis.DefaultTopPerMaker); err != nil {
			return err
		}
		if res.Traffic, err = analysis.TopHandsetTraffic(df, analysis.DefaultTopTraffic); err != nil {
			return err
		}
		res.DurationByMaker, err = analysis.GroupMeans(df, dataset.ColDuration, dataset.ColHandsetManufacturer)
		return err
	}); err != nil {
		return nil, err
	}

	clean := df
	if err := r.stage("missing values", func() error {
		var err error
		before := clean.Nrow()
		if clean, err = analysis.DropMissing(clean, dataset.ColIMSI); err != nil {
			return err
		}
		if n := before - clean.Nrow(); n > 0 {
			res.note("%d rows without IMSI were dropped", n)
		}
		switch opt.MissingPolicy {
		case PolicyMean:
			clean, err = analysis.FillMissingWithMean(clean)
		case PolicyDrop:
			before = clean.Nrow()
			clean, err = analysis.DropMissing(clean, dataset.SessionColumns...)
			if err == nil && before > clean.Nrow() {
				res.note("%d rows with missing session values were dropped", before-clean.Nrow())
			}
		default:
			err = fmt.Errorf("unknown missing-value policy %q", opt.MissingPolicy)
		}
		if err == nil && clean.Nrow() == 0 {
			err = dataset.ErrEmpty
		}
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage("outliers", func() error {
		for _, col := range opt.OutlierColumns {
			f, err := analysis.OutlierFences(clean, col)
			if errors.Is(err, dataset.ErrMissingValues) {
				res.note("outlier clipping skipped %q: no values", col)
				continue
			}
			if err != nil {
				return err
			}
			res.Fences = append(res.Fences, f)
		}
		var err error
		clean, err = analysis.ClipOutliers(clean, opt.OutlierColumns...)
		return err
	}); err != nil {
		return nil, err
	}
	res.Cleaned = clean
	res.CleanRows = clean.Nrow()

	if err := r.stage("describe", func() error {
		var err error
		res.Stats, err = analysis.Describe(clean)
		return err
	}); err != nil {
		return nil, err
	}

	var users dataframe.DataFrame
	if err := r.stage("aggregate", func() error {
		var err error
		users, err = analysis.AggregateUserBehavior(clean)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage("deciles", func() error {
		var err error
		res.Users, res.Deciles, err = analysis.SegmentByDecile(users)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage("correlation", func() error {
		var err error
		res.Corr, err = analysis.CorrelationMatrix(users, opt.PCAColumns)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage("pca", func() error {
		p, err := analysis.PCA(users, opt.PCAColumns, analysis.PCAOptions{Standardize: opt.Standardize})
		if err != nil {
			res.note("PCA skipped: %v", err)
			return nil
		}
		res.PCA = p
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.stage("engagement", func() error {
		var err error
		res.Engagement, err = analysis.EngagementMetrics(users)
		return err
	}); err != nil {
		return nil, err
	}

	if !opt.SkipElbow {
		if err := r.stage("elbow", func() error {
			curve, err := cluster.Elbow(res.Engagement, opt.Cluster)
			if errors.Is(err, cluster.ErrTooFewSamples) {
				res.note("elbow sweep skipped: %d users, need %d", res.Engagement.Nrow(), cluster.MaxElbowK)
				return nil
			}
			res.Elbow = curve
			return err
		}); err != nil {
			return nil, err
		}
	}

	if err := r.stage("kmeans", func() error {
		out, m, err := cluster.ApplyKMeans(res.Engagement, opt.Cluster)
		if errors.Is(err, cluster.ErrTooFewSamples) {
			res.note("k-means skipped: %d users for k=%d", res.Engagement.Nrow(), opt.Cluster.K)
			return nil
		}
		if err != nil {
			return err
		}
		res.Engagement, res.Model = out, m
		return nil
	}); err != nil {
		return nil, err
	}

	r.log.Info().Int("users", res.Users.Nrow()).Int("notes", len(res.Notes)).Msg("analysis finished")
	return res, nil
}

func schemaOf(df dataframe.DataFrame) []ColumnInfo {
	out := make([]ColumnInfo, 0, df.Ncol())
	for _, name := range df.Names() {
		s := df.Col(name)
		kind := "text"
		if dataset.IsNumeric(s) {
			kind = "numeric"
		}
		missing := 0
		for _, na := range s.IsNaN() {
			if na {
				missing++
			}
		}
		out = append(out, ColumnInfo{Name: name, Kind: kind, Missing: missing})
	}
	return out
}
