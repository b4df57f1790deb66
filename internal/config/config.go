package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/brandsync/reconciler/internal/artifact"
	"github.com/brandsync/reconciler/internal/logging"
	"github.com/brandsync/reconciler/internal/match"
	"github.com/brandsync/reconciler/internal/plan"
	"github.com/brandsync/reconciler/internal/registry"
)

// EnvPrefix is prepended to every environment variable the reconciler reads
const EnvPrefix = "RECONCILER"

// Config is the full reconciler configuration
type Config struct {
	Matching MatchingConfig   `mapstructure:"matching"`
	Input    InputConfig      `mapstructure:"input"`
	Output   OutputConfig     `mapstructure:"output"`
	Registry registry.Options `mapstructure:"registry"`
	Log      logging.Config   `mapstructure:"log"`
	Server   ServerConfig     `mapstructure:"server"`
}

// MatchingConfig drives validation, scoring and tiering
type MatchingConfig struct {
	AutoAcceptThreshold   float64           `mapstructure:"auto_accept_threshold"`
	ManualReviewThreshold float64           `mapstructure:"manual_review_threshold"`
	TopK                  int               `mapstructure:"top_k"`
	Workers               int               `mapstructure:"workers"`
	SingleCompany         string            `mapstructure:"single_company"`
	SimulateOnly          bool              `mapstructure:"simulate_only"`
	SocialFields          map[string]string `mapstructure:"social_fields"`
	Denylist              []string          `mapstructure:"denylist"`
}

// InputConfig names the CSV files to read
type InputConfig struct {
	Contacts     string `mapstructure:"contacts"`
	Subsidiaries string `mapstructure:"subsidiaries"`
}

// OutputConfig is where artifacts go
type OutputConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the review API
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	APIKey string `mapstructure:"api_key"`
}

// Thresholds returns the validated tier boundaries
func (c *Config) Thresholds() (match.Thresholds, error) {
	return match.NewThresholds(c.Matching.AutoAcceptThreshold, c.Matching.ManualReviewThreshold)
}

// ArtifactFormat returns the parsed output format
func (c *Config) ArtifactFormat() (artifact.Format, error) {
	return artifact.ParseFormat(c.Output.Format)
}

// Validate fails fast on settings no run could succeed with
func (c *Config) Validate() error {
	if _, err := c.Thresholds(); err != nil {
		return err
	}
	if _, err := c.ArtifactFormat(); err != nil {
		return err
	}
	if c.Matching.Workers < 1 {
		return fmt.Errorf("matching.workers must be at least 1, got %d", c.Matching.Workers)
	}
	if c.Matching.TopK < 0 {
		return fmt.Errorf("matching.top_k must not be negative, got %d", c.Matching.TopK)
	}
	return nil
}

// LoadEnvFiles loads .env style files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// New returns a viper instance with every default and env binding in place
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("matching.auto_accept_threshold", match.DefaultThresholds().AutoAccept)
	v.SetDefault("matching.manual_review_threshold", match.DefaultThresholds().ManualReview)
	v.SetDefault("matching.top_k", match.DefaultTopK)
	v.SetDefault("matching.workers", 1)
	v.SetDefault("matching.single_company", "")
	v.SetDefault("matching.simulate_only", false)
	v.SetDefault("matching.social_fields", plan.DefaultSocialFields)
	v.SetDefault("matching.denylist", []string{})

	v.SetDefault("input.contacts", "")
	v.SetDefault("input.subsidiaries", "")

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", string(artifact.FormatJSON))

	v.SetDefault("registry.driver", registry.DriverMemory)
	v.SetDefault("registry.file", "")
	v.SetDefault("registry.table", registry.DefaultTable)
	v.SetDefault("registry.name_fields", registry.DefaultNameFields)
	v.SetDefault("registry.fail_on_empty", false)
	v.SetDefault("registry.database.dsn", "")
	v.SetDefault("registry.database.host", "localhost")
	v.SetDefault("registry.database.port", "5432")
	v.SetDefault("registry.database.user", "postgres")
	v.SetDefault("registry.database.password", "")
	v.SetDefault("registry.database.name", "registry")
	v.SetDefault("registry.database.sslmode", "disable")
	v.SetDefault("registry.database.max_open_conns", 20)
	v.SetDefault("registry.database.max_idle_conns", 10)

	defaults := logging.DefaultConfig()
	v.SetDefault("log.level", defaults.Level)
	v.SetDefault("log.format", defaults.Format)
	v.SetDefault("log.output", defaults.Output)
	v.SetDefault("log.no_color", defaults.NoColor)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_key", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// the standard libpq variables work as fallbacks
	pgEnv := map[string]string{
		"registry.database.host":     "PGHOST",
		"registry.database.port":     "PGPORT",
		"registry.database.user":     "PGUSER",
		"registry.database.password": "PGPASSWORD",
		"registry.database.name":     "PGDATABASE",
	}
	for key, env := range pgEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.NewReplacer(".", "_").Replace(key)), env)
	}

	return v
}

// BindFlags maps config keys to command line flags. Flags absent from the set are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and decodes and validates the result
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("reconciler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Matching.SocialFields) == 0 {
		cfg.Matching.SocialFields = plan.DefaultSocialFields
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
