package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/xdrscope-cli/internal/utils"
)

const (
	appDir         = ".xdrscope"
	configFileName = "config.yaml"
)

var validate = validator.New()

// Global configuration structure.
type Global struct {
	RunsDir        string   `mapstructure:"runs_dir" yaml:"runs_dir"`
	MissingPolicy  string   `mapstructure:"missing_policy" yaml:"missing_policy" validate:"oneof=mean drop"`
	OutlierColumns []string `mapstructure:"outlier_columns" yaml:"outlier_columns"`
	Clusters       int      `mapstructure:"clusters" yaml:"clusters" validate:"gte=1,lte=10"`
	Seed           uint64   `mapstructure:"seed" yaml:"seed"`
	NInit          int      `mapstructure:"n_init" yaml:"n_init" validate:"gte=1"`
	MaxIter        int      `mapstructure:"max_iter" yaml:"max_iter" validate:"gte=1"`
	Standardize    bool     `mapstructure:"pca_standardize" yaml:"pca_standardize"`
	TopN           int      `mapstructure:"top_n" yaml:"top_n" validate:"gte=1"`
	ChartWidth     int      `mapstructure:"chart_width" yaml:"chart_width" validate:"gte=200"`
	ChartHeight    int      `mapstructure:"chart_height" yaml:"chart_height" validate:"gte=200"`
	Sheet          string   `mapstructure:"sheet" yaml:"sheet,omitempty"`
	DB             Database `mapstructure:"db" yaml:"db"`

	// filePassword is db.password as read from the config file, before env.
	filePassword string
}

// SetDBPassword sets the database password and marks it for saving.
func (c *Global) SetDBPassword(pw string) {
	c.DB.Password = pw
	c.filePassword = pw
}

// Database holds connection parameters for the persistence adapter.
type Database struct {
	Driver   string `mapstructure:"driver" yaml:"driver" validate:"oneof=postgres sqlite"`
	Host     string `mapstructure:"host" yaml:"host" validate:"required_if=Driver postgres"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Name     string `mapstructure:"name" yaml:"name" validate:"required_if=Driver postgres"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	Path     string `mapstructure:"path" yaml:"path" validate:"required_if=Driver sqlite"`
	Table    string `mapstructure:"table" yaml:"table" validate:"required"`
}

// envBindings maps config keys to the plain variable names accepted in
// addition to the XDRSCOPE_ prefixed ones.
var envBindings = map[string]string{
	"db.driver":   "DB_DRIVER",
	"db.host":     "DB_HOST",
	"db.port":     "DB_PORT",
	"db.user":     "DB_USER",
	"db.password": "DB_PASSWORD",
	"db.name":     "DB_NAME",
	"db.sslmode":  "DB_SSLMODE",
	"db.path":     "DB_PATH",
	"db.table":    "DB_TABLE",
}

// Dir returns ~/.xdrscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, appDir), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.xdrscope/config.yaml, creating the directory if necessary.
// The database password is written only when it came from the config file or
// SetDBPassword, never from the environment or .env.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, configFileName)
	}
	out := *c
	out.DB.Password = c.filePassword
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, an optional .env file and
// defaults. Precedence: env > config file > defaults. Values already present
// in the environment win over .env entries.
func Load(cfgFile string) (*Global, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	v := viper.New()

	v.SetDefault("runs_dir", "")
	v.SetDefault("missing_policy", "mean")
	v.SetDefault("outlier_columns", []string{"Dur. (ms)", "Total DL (Bytes)", "Total UL (Bytes)"})
	v.SetDefault("clusters", 3)
	v.SetDefault("seed", 42)
	v.SetDefault("n_init", 10)
	v.SetDefault("max_iter", 300)
	v.SetDefault("pca_standardize", true)
	v.SetDefault("top_n", 10)
	v.SetDefault("chart_width", 1024)
	v.SetDefault("chart_height", 640)
	v.SetDefault("sheet", "")
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "telecom")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "~/.xdrscope/xdrscope.db")
	v.SetDefault("db.table", "xdr_data")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	filePassword := v.GetString("db.password")

	v.SetEnvPrefix("XDRSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "XDRSCOPE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.filePassword = filePassword
	if c.RunsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate returns an error if the configuration is invalid.
func (c Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DSN returns the data source name for the configured driver: a
// postgres:// URL, or the expanded file path for sqlite.
func (d Database) DSN() (string, error) {
	switch d.Driver {
	case "sqlite":
		return utils.ExpandHome(d.Path)
	case "postgres", "":
		u := url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
			Path:   "/" + d.Name,
		}
		if d.User != "" {
			if d.Password != "" {
				u.User = url.UserPassword(d.User, d.Password)
			} else {
				u.User = url.User(d.User)
			}
		}
		if d.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", d.Driver)
	}
}

// Redacted returns the DSN with the password masked.
func (d Database) Redacted() string {
	dsn, err := d.DSN()
	if err != nil {
		return ""
	}
	if d.Driver != "sqlite" {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	return dsn
}
