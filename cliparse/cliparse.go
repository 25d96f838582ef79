package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort      = 3318
	DefaultTxTimeout = 5 * time.Second
)

type Config struct {
	Port           int           `yaml:"port"            envconfig:"PORT"`
	DatabaseURL    string        `yaml:"database_url"    envconfig:"DATABASE_URL"`
	DatabaseType   string        `yaml:"database_type"   envconfig:"DATABASE_TYPE"`
	BallotSecret   string        `yaml:"ballot_secret"   envconfig:"BALLOT_SECRET"`
	AdminKey       string        `yaml:"admin_key"       envconfig:"ADMIN_KEY"`
	TxTimeout      time.Duration `yaml:"tx_timeout"      envconfig:"TX_TIMEOUT"`
	MetricsEnabled bool          `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

func defaults() Config {
	return Config{
		Port:           DefaultPort,
		DatabaseType:   "sqlite",
		TxTimeout:      DefaultTxTimeout,
		MetricsEnabled: true,
	}
}

// ParseFlags builds the configuration from, in increasing precedence, the
// YAML file named by -c, a .env file in the working directory, environment
// variables, and command-line flags. Subcommands pass extra to register
// flags of their own on the same set.
func ParseFlags(args []string, extra ...func(*flag.FlagSet)) (Config, error) {
	var cli Config
	var configPath string

	flags := flag.NewFlagSet("quickly-vote", flag.ContinueOnError)

	flags.StringVar(&configPath, "c", "", "Path to YAML config file")
	flags.StringVar(&configPath, "config", "", "Path to YAML config file")

	// Network config (can be CLI args or env)
	flags.IntVar(&cli.Port, "p", 0, "Server port")
	flags.StringVar(&cli.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cli.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cli.BallotSecret, "ballot-secret", "", "Ballot anonymization secret (prefer env)")
	flags.StringVar(&cli.AdminKey, "admin-key", "", "Administrator API key (prefer env)")

	flags.DurationVar(&cli.TxTimeout, "tx-timeout", 0, "Ballot transaction timeout")
	flags.BoolVar(&cli.MetricsEnabled, "metrics", true, "Expose /metrics")

	for _, register := range extra {
		register(flags)
	}

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaults()

	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	// Only flags given on the command line override
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Port = cli.Port
		case "d":
			cfg.DatabaseURL = cli.DatabaseURL
		case "t":
			cfg.DatabaseType = cli.DatabaseType
		case "ballot-secret":
			cfg.BallotSecret = cli.BallotSecret
		case "admin-key":
			cfg.AdminKey = cli.AdminKey
		case "tx-timeout":
			cfg.TxTimeout = cli.TxTimeout
		case "metrics":
			cfg.MetricsEnabled = cli.MetricsEnabled
		}
	})

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if _, err := db.ParseDialect(c.DatabaseType); err != nil {
		return err
	}

	// Secrets - MUST be provided
	if c.BallotSecret == "" {
		return errors.New("BALLOT_SECRET required")
	}
	if c.AdminKey == "" {
		return errors.New("ADMIN_KEY required")
	}

	if c.TxTimeout <= 0 {
		return errors.New("transaction timeout must be positive")
	}
	return nil
}
