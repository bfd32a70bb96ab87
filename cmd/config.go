package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/xdrscope-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set xdrscope configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		shown := *c
		shown.DB.Password = mask(c.DB.Password)
		b, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Print(string(b))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := currentConfig()
		if err != nil {
			return err
		}
		next := *c
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Println("Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "runs_dir":
		c.RunsDir = val
	case "missing_policy":
		c.MissingPolicy = strings.ToLower(val)
	case "outlier_columns":
		var cols []string
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cols = append(cols, s)
			}
		}
		c.OutlierColumns = cols
	case "clusters":
		c.Clusters, err = atoi()
	case "seed":
		c.Seed, err = strconv.ParseUint(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid seed: %v", val)
		}
	case "n_init":
		c.NInit, err = atoi()
	case "max_iter":
		c.MaxIter, err = atoi()
	case "pca_standardize":
		c.Standardize, err = strconv.ParseBool(val)
		if err != nil {
			err = fmt.Errorf("invalid bool for pca_standardize: %v", val)
		}
	case "top_n":
		c.TopN, err = atoi()
	case "chart_width":
		c.ChartWidth, err = atoi()
	case "chart_height":
		c.ChartHeight, err = atoi()
	case "sheet":
		c.Sheet = val
	case "db.driver":
		c.DB.Driver = strings.ToLower(val)
	case "db.host":
		c.DB.Host = val
	case "db.port":
		c.DB.Port, err = atoi()
	case "db.user":
		c.DB.User = val
	case "db.password":
		c.SetDBPassword(val)
	case "db.name":
		c.DB.Name = val
	case "db.sslmode":
		c.DB.SSLMode = val
	case "db.path":
		c.DB.Path = val
	case "db.table":
		c.DB.Table = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
