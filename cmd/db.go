package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/xdrscope-cli/internal/config"
	"github.com/KaramelBytes/xdrscope-cli/internal/dataset"
	"github.com/KaramelBytes/xdrscope-cli/internal/store"
)

var (
	dbPushLoad    loadFlags
	dbPushRowWise bool
	dbPullOutput  string
	dbPullUsers   bool
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the session and user aggregate tables",
}

// managedSchemas are the tables xdrscope creates, in creation order.
func managedSchemas(c *cfgpkg.Global) []store.Schema {
	return []store.Schema{sessionSchema(c), store.UserAggregateSchema}
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, c *cfgpkg.Global, st *store.Store) error) error {
	c, err := validConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, c, st)
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the tables and record their schema versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, c *cfgpkg.Global, st *store.Store) error {
			for _, sc := range managedSchemas(c) {
				if err := st.EnsureSchema(ctx, sc); err != nil {
					return err
				}
				fmt.Printf("✓ %s ready (schema v%d)\n", sc.Table, sc.Version)
			}
			return nil
		})
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema versions and row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, c *cfgpkg.Global, st *store.Store) error {
			fmt.Printf("driver: %s (%s)\n", st.Driver(), c.DB.Redacted())
			for _, sc := range managedSchemas(c) {
				s, err := st.Status(ctx, sc)
				var se *store.SchemaError
				if errors.As(err, &se) {
					fmt.Printf("⚠ %s: %s\n", sc.Table, se.Reason)
					continue
				}
				if err != nil {
					return err
				}
				fmt.Printf("- %s: schema v%d, %d rows\n", s.Table, s.Version, s.Rows)
			}
			return nil
		})
	},
}

var dbPushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Load a session export into the session table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, c *cfgpkg.Global, st *store.Store) error {
			lopt, err := dbPushLoad.options(c)
			if err != nil {
				return err
			}
			df, err := dataset.LoadFile(args[0], lopt)
			if err != nil {
				return err
			}
			sc := sessionSchema(c)
			if err := st.EnsureSchema(ctx, sc); err != nil {
				return err
			}
			df = sc.Project(df)
			if dbPushRowWise {
				n, err := st.InsertRows(ctx, sc, df)
				if err != nil {
					return fmt.Errorf("inserted %d of %d rows: %w", n, df.Nrow(), err)
				}
				fmt.Printf("✓ Inserted %d rows into %s\n", n, sc.Table)
				return nil
			}
			if err := st.BulkInsert(ctx, sc, df); err != nil {
				return err
			}
			fmt.Printf("✓ Inserted %d rows into %s\n", df.Nrow(), sc.Table)
			return nil
		})
	},
}

var dbPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Export a table as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, c *cfgpkg.Global, st *store.Store) error {
			sc := sessionSchema(c)
			if dbPullUsers {
				sc = store.UserAggregateSchema
			}
			if err := st.Verify(ctx, sc); err != nil {
				return err
			}
			df, err := st.FetchAll(ctx, sc)
			if err != nil {
				return err
			}
			if dbPullOutput == "" {
				return dataset.WriteCSV(os.Stdout, df)
			}
			if err := dataset.WriteCSVFile(dbPullOutput, df); err != nil {
				return err
			}
			fmt.Printf("✓ Wrote %d rows from %s to %s\n", df.Nrow(), sc.Table, dbPullOutput)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd, dbStatusCmd, dbPushCmd, dbPullCmd)
	dbPushLoad.register(dbPushCmd)
	dbPushCmd.Flags().BoolVar(&dbPushRowWise, "row-by-row", false, "insert one row per statement and stop at the first failure")
	dbPullCmd.Flags().StringVarP(&dbPullOutput, "output", "o", "", "CSV path (default stdout)")
	dbPullCmd.Flags().BoolVar(&dbPullUsers, "users", false, "export the user aggregate table instead of sessions")
}
