package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/xdrscope-cli/internal/config"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/pipeline"
	"github.com/KaramelBytes/xdrscope-cli/internal/run"
	"github.com/KaramelBytes/xdrscope-cli/internal/store"
)

var (
	anaLoad       loadFlags
	anaFlags      analysisFlags
	anaOutputPath string
	anaFromDB     bool
	anaSave       bool
	anaPrint      bool
	anaNote       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Run the full xDR analysis on a file or the database table",
	Long: `Loads session records, cleans them, aggregates per user, segments deciles,
computes correlations, PCA, the elbow curve and k-means clusters, and writes a
report, CSV tables and charts into a new run directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if anaFromDB == (len(args) == 1) {
			return fmt.Errorf("specify exactly one of <file> or --from-db")
		}
		c, err := validConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var df dataframe.DataFrame
		var source string
		if anaFromDB {
			source = "db:" + c.DB.Table
			df, err = fetchSessions(ctx, c)
		} else {
			source = args[0]
			opt, oerr := anaLoad.options(c)
			if oerr != nil {
				return oerr
			}
			df, err = dataset.LoadFile(source, opt)
		}
		if err != nil {
			return err
		}

		popt, err := anaFlags.options(cmd, c, source)
		if err != nil {
			return err
		}
		res, rn, err := analyzeAndSave(ctx, df, popt, c, anaNote)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Analyzed %d rows (%d users) from %s\n", res.Rows, res.Users.Nrow(), source)
		fmt.Printf("✓ Run %s written to %s\n", rn.ID, rn.Dir())

		if anaSave {
			if err := saveTables(ctx, c, df, res, !anaFromDB); err != nil {
				return err
			}
		}
		md := res.Markdown()
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote report to %s\n", anaOutputPath)
		}
		if anaPrint {
			fmt.Println(md)
		}
		return nil
	},
}

// analyzeAndSave runs the pipeline and stores its artifacts in a new run.
func analyzeAndSave(ctx context.Context, df dataframe.DataFrame, opt pipeline.Options, c *cfgpkg.Global, note string) (*pipeline.Result, *run.Run, error) {
	res, err := pipeline.Run(ctx, df, opt, logger)
	if err != nil {
		return nil, nil, err
	}
	rn := run.New(c.RunsDir, opt.Source)
	rn.Note = note
	if err := pipeline.Save(res, rn, chartOptions(c)); err != nil {
		return nil, nil, err
	}
	for _, n := range res.Notes {
		fmt.Printf("⚠ %s\n", n)
	}
	return res, rn, nil
}

func fetchSessions(ctx context.Context, c *cfgpkg.Global) (dataframe.DataFrame, error) {
	st, err := openStore(ctx, c)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer st.Close()
	sc := sessionSchema(c)
	if err := st.Verify(ctx, sc); err != nil {
		return dataframe.DataFrame{}, err
	}
	df, err := st.FetchAll(ctx, sc)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("table %s: %w", sc.Table, dataset.ErrEmpty)
	}
	return df, nil
}

// saveTables writes the per-user aggregates, and the raw sessions when
// withSessions is set, in one transaction per table.
func saveTables(ctx context.Context, c *cfgpkg.Global, raw dataframe.DataFrame, res *pipeline.Result, withSessions bool) error {
	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close()
	type job struct {
		sc store.Schema
		df dataframe.DataFrame
	}
	jobs := []job{{store.UserAggregateSchema, res.Users}}
	if withSessions {
		jobs = append([]job{{sessionSchema(c), raw}}, jobs...)
	}
	for _, j := range jobs {
		if err := st.EnsureSchema(ctx, j.sc); err != nil {
			return err
		}
		if err := st.BulkInsert(ctx, j.sc, j.sc.Project(j.df)); err != nil {
			var ce *store.ConstraintError
			if errors.As(err, &ce) {
				return fmt.Errorf("%w (table %s already holds some of these rows)", err, j.sc.Table)
			}
			return err
		}
		fmt.Printf("✓ Saved %d rows to %s\n", j.df.Nrow(), j.sc.Table)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to also write the report (Markdown)")
	analyzeCmd.Flags().BoolVar(&anaFromDB, "from-db", false, "read session records from the configured database table")
	analyzeCmd.Flags().BoolVar(&anaSave, "save", false, "store sessions and user aggregates in the database")
	analyzeCmd.Flags().BoolVar(&anaPrint, "print", false, "print the report to stdout")
	analyzeCmd.Flags().StringVar(&anaNote, "note", "", "free-form note stored in the run manifest")
}
