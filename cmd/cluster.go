package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/xdrscope-cli/internal/analysis"
	"github.com/KaramelBytes/xdrscope-cli/internal/chart"
	"github.com/KaramelBytes/xdrscope-cli/internal/cluster"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/pipeline"
	"github.com/KaramelBytes/xdrscope-cli/internal/run"
)

var (
	clLoad   loadFlags
	clFlags  analysisFlags
	clFromDB bool
	clOutput string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [file]",
	Short: "Cluster users by engagement without the full report",
	Long: `Aggregates sessions per user, derives the engagement metrics
(session_frequency, session_duration, total_traffic), runs the elbow sweep and
k-means, and writes the labelled table plus elbow and cluster charts to a run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if clFromDB == (len(args) == 1) {
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
		source := "db:" + c.DB.Table
		if clFromDB {
			df, err = fetchSessions(ctx, c)
		} else {
			source = args[0]
			lopt, oerr := clLoad.options(c)
			if oerr != nil {
				return oerr
			}
			df, err = dataset.LoadFile(source, lopt)
		}
		if err != nil {
			return err
		}
		popt, err := clFlags.options(cmd, c, source)
		if err != nil {
			return err
		}

		users, err := analysis.AggregateUserBehavior(df)
		if err != nil {
			return err
		}
		eng, err := analysis.EngagementMetrics(users)
		if err != nil {
			return err
		}
		if popt.MissingPolicy == pipeline.PolicyDrop {
			eng, err = analysis.DropMissing(eng)
		} else {
			eng, err = analysis.FillMissingWithMean(eng)
		}
		if err != nil {
			return err
		}
		logger.Info().Int("users", eng.Nrow()).Int("k", popt.Cluster.K).Msg("clustering users")

		rn := run.New(c.RunsDir, source)
		rn.Rows = df.Nrow()
		rn.Users = eng.Nrow()
		copt := chartOptions(c)
		if !popt.SkipElbow {
			curve, err := cluster.Elbow(eng, popt.Cluster)
			if err != nil {
				return err
			}
			if _, err := rn.AddArtifact("elbow.png", run.KindChart, "Elbow method", func(w io.Writer) error {
				return chart.Elbow(w, curve, copt)
			}); err != nil {
				return err
			}
			for _, p := range curve {
				fmt.Printf("k=%-2d WCSS=%.4g\n", p.K, p.Inertia)
			}
		}
		labelled, model, err := cluster.ApplyKMeans(eng, popt.Cluster)
		if err != nil {
			return err
		}
		if _, err := rn.AddArtifact("engagement_clusters.csv", run.KindTable, "Engagement metrics with clusters", func(w io.Writer) error {
			return dataset.WriteCSV(w, labelled)
		}); err != nil {
			return err
		}
		xs, err := dataset.Floats(labelled, dataset.ColSessionFrequency)
		if err != nil {
			return err
		}
		ys, err := dataset.Floats(labelled, dataset.ColTotalTraffic)
		if err != nil {
			return err
		}
		if _, err := rn.AddArtifact("clusters.png", run.KindChart, "Engagement clusters", func(w io.Writer) error {
			return chart.Clusters(w, dataset.ColSessionFrequency, dataset.ColTotalTraffic, xs, ys, model.Labels, copt)
		}); err != nil {
			return err
		}
		if err := rn.Save(); err != nil {
			return err
		}

		sizes := model.Sizes()
		fmt.Printf("✓ k=%d, inertia %.4g after %d iterations\n", model.K(), model.Inertia, model.Iterations)
		for i, center := range model.Centers {
			parts := make([]string, len(center))
			for j, v := range center {
				parts[j] = fmt.Sprintf("%s=%.4g", model.Features[j], v)
			}
			fmt.Printf("  cluster %d (%d users): %s\n", i, sizes[i], strings.Join(parts, ", "))
		}
		if clOutput != "" {
			if err := dataset.WriteCSVFile(clOutput, labelled); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote clusters to %s\n", clOutput)
		}
		fmt.Printf("✓ Run %s written to %s\n", rn.ID, rn.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clLoad.register(clusterCmd)
	clFlags.register(clusterCmd)
	clusterCmd.Flags().BoolVar(&clFromDB, "from-db", false, "read session records from the configured database table")
	clusterCmd.Flags().StringVarP(&clOutput, "output", "o", "", "optional path to also write the labelled table (CSV)")
}
