package pipeline

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"

	"github.com/KaramelBytes/xdrscope-cli/internal/chart"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/run"
)

// Artifact names written by Save.
const (
	ReportFile     = "report.md"
	UsersFile      = "user_aggregates.csv"
	EngagementFile = "engagement_clusters.csv"
)

// Save writes the report, the per-user tables and every chart into rn and
// persists its manifest.
func Save(res *Result, rn *run.Run, opt chart.Options) error {
	rn.Rows = res.Rows
	rn.Users = res.Users.Nrow()
	if _, err := rn.AddArtifact(ReportFile, run.KindReport, "Analysis report", func(w io.Writer) error {
		_, err := io.WriteString(w, res.Markdown())
		return err
	}); err != nil {
		return err
	}
	tables := []struct {
		name, title string
		df          dataframe.DataFrame
	}{
		{UsersFile, "User aggregates with deciles", res.Users},
		{EngagementFile, "Engagement metrics with clusters", res.Engagement},
	}
	for _, t := range tables {
		if t.df.Nrow() == 0 {
			continue
		}
		df := t.df
		if _, err := rn.AddArtifact(t.name, run.KindTable, t.title, func(w io.Writer) error {
			return dataset.WriteCSV(w, df)
		}); err != nil {
			return err
		}
	}
	if _, err := RenderCharts(res, rn, opt); err != nil {
		return err
	}
	if err := rn.Save(); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}
