package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/xdrscope-cli/internal/run"
)

var listRunID string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs, or the artifacts of one run",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if listRunID != "" {
			r, err := run.Find(c.RunsDir, listRunID)
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s  rows=%d users=%d\n", r.ID, r.Source, r.Rows, r.Users)
			if r.Note != "" {
				fmt.Printf("note: %s\n", r.Note)
			}
			arts := r.Sorted()
			if len(arts) == 0 {
				fmt.Println("(no artifacts)")
				return nil
			}
			for _, a := range arts {
				fmt.Printf("- %s [%s] %d bytes\n", r.ArtifactPath(a.Name), a.Kind, a.Bytes)
			}
			return nil
		}
		runs, err := run.List(c.RunsDir)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("- %s  %s  %s  (%d artifacts)\n", r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Source, len(r.Artifacts))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listRunID, "run", "r", "", "run ID (or unique prefix) to list artifacts for")
}
