package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
)

var (
	abLoad  loadFlags
	abFlags analysisFlags
	abQuiet bool
	abNote  string
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX exports, one run per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		c, err := validConfig()
		if err != nil {
			return err
		}
		lopt, err := abLoad.options(c)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Printf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			df, err := dataset.LoadFile(path, lopt)
			if err != nil {
				return err
			}
			popt, err := abFlags.options(cmd, c, path)
			if err != nil {
				return err
			}
			res, rn, err := analyzeAndSave(ctx, df, popt, c, abNote)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if !abQuiet {
				fmt.Printf("✓ %s: %d rows, %d users → run %s\n", filepath.Base(path), res.Rows, res.Users.Nrow(), rn.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abLoad.register(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	analyzeBatchCmd.Flags().StringVar(&abNote, "note", "", "free-form note stored in every run manifest")
}
