package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/xdrscope-cli/internal/chart"
	"github.com/KaramelBytes/xdrscope-cli/internal/cluster"
	cfgpkg "github.com/KaramelBytes/xdrscope-cli/internal/config"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/pipeline"
	"github.com/KaramelBytes/xdrscope-cli/internal/store"
)

// loadFlags are the input parsing flags shared by analyze and analyze-batch.
type loadFlags struct {
	delimiter string
	decimal   string
	thousands string
	maxRows   int
	sheet     string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name to read (default first sheet)")
}

func (f *loadFlags) options(c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = f.maxRows
	opt.Sheet = f.sheet
	if opt.Sheet == "" && c != nil {
		opt.Sheet = c.Sheet
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return opt, nil
}

// analysisFlags override the analysis settings from the config file.
type analysisFlags struct {
	policy   string
	clusters int
	seed     uint64
	noElbow  bool
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.policy, "missing", "", "missing-value policy: mean|drop (overrides config)")
	cmd.Flags().IntVarP(&f.clusters, "clusters", "k", 0, "number of k-means clusters (overrides config)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "k-means random seed (overrides config)")
	cmd.Flags().BoolVar(&f.noElbow, "no-elbow", false, "skip the K=1..10 elbow sweep")
}

func (f *analysisFlags) options(cmd *cobra.Command, c *cfgpkg.Global, source string) (pipeline.Options, error) {
	opt := pipeline.DefaultOptions()
	opt.Source = source
	opt.MissingPolicy = c.MissingPolicy
	if len(c.OutlierColumns) > 0 {
		opt.OutlierColumns = c.OutlierColumns
	}
	opt.TopN = c.TopN
	opt.Standardize = c.Standardize
	opt.Cluster = cluster.Options{
		K:        c.Clusters,
		Seed:     c.Seed,
		NInit:    c.NInit,
		MaxIter:  c.MaxIter,
		Features: dataset.EngagementFeatures,
	}
	if f.policy != "" {
		opt.MissingPolicy = f.policy
	}
	if cmd.Flags().Changed("clusters") {
		if f.clusters < 1 || f.clusters > cluster.MaxElbowK {
			return opt, fmt.Errorf("--clusters must be between 1 and %d", cluster.MaxElbowK)
		}
		opt.Cluster.K = f.clusters
	}
	if cmd.Flags().Changed("seed") {
		opt.Cluster.Seed = f.seed
	}
	opt.SkipElbow = f.noElbow
	switch opt.MissingPolicy {
	case pipeline.PolicyMean, pipeline.PolicyDrop:
	default:
		return opt, fmt.Errorf("unsupported --missing: %s (use mean|drop)", opt.MissingPolicy)
	}
	return opt, nil
}

func chartOptions(c *cfgpkg.Global) chart.Options {
	return chart.Options{Width: c.ChartWidth, Height: c.ChartHeight}
}

// validConfig loads and validates the configuration.
func validConfig() (*cfgpkg.Global, error) {
	c, err := currentConfig()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// openStore connects to the configured database.
func openStore(ctx context.Context, c *cfgpkg.Global) (*store.Store, error) {
	dsn, err := c.DB.DSN()
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("driver", c.DB.Driver).Str("dsn", c.DB.Redacted()).Msg("opening store")
	return store.Open(ctx, store.Config{Driver: c.DB.Driver, DSN: dsn, PingTimeout: 5 * time.Second}, logger)
}

// sessionSchema is the raw session table, renamed per config.
func sessionSchema(c *cfgpkg.Global) store.Schema {
	return store.XDRSchema.WithTable(c.DB.Table)
}
