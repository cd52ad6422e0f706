package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon's runtime configuration.
type Config struct {
	// DBPath is the path to the sqlite file backing the Store.
	DBPath string `yaml:"db_path"`

	// DefaultCollectionLabel is the label given to the bootstrap "default"
	// collection on every start; the label is held in memory only and is
	// not persisted in the database.
	DefaultCollectionLabel string `yaml:"default_collection_label"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFile is the path to the log file (empty for stderr).
	LogFile string `yaml:"log_file"`

	// Bus selects which bus connection constructor to call: "session" (the
	// default) or "system".
	Bus string `yaml:"bus"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// ConfigPath is the path to the config file (set via CLI).
	ConfigPath string `yaml:"-"`

	// ShowVersion indicates whether to print version and exit.
	ShowVersion bool `yaml:"-"`
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *Config {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		homeDir, _ := os.UserHomeDir()
		dataHome = filepath.Join(homeDir, ".local/share")
	}
	return &Config{
		DBPath:                 filepath.Join(dataHome, "secret-service/secrets.db"),
		DefaultCollectionLabel: "Default",
		LogLevel:               "info",
		LogFile:                "",
		Bus:                    "session",
	}
}

// Load builds a Config from, in increasing order of precedence: defaults,
// the YAML config file, environment variables, CLI flags.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := flag.String("config", "", "Path to config file")
	dbPath := flag.String("db", "", "Path to the secrets database")
	defaultLabel := flag.String("default-label", "", "Label for the bootstrap default collection")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := flag.String("log-file", "", "Path to the log file (empty for stderr)")
	bus := flag.String("bus", "", "Bus to connect to (session, system)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Print version and exit")
	help := flag.Bool("h", false, "Show help message")
	flag.BoolVar(help, "help", false, "Show help message")

	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	cfg.ShowVersion = *version
	cfg.Debug = *debug

	if *configPath != "" {
		cfg.ConfigPath = *configPath
	} else {
		homeDir, _ := os.UserHomeDir()
		cfg.ConfigPath = filepath.Join(homeDir, ".config/secret-service/config.yaml")
	}

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.applyEnv()

	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *defaultLabel != "" {
		cfg.DefaultCollectionLabel = *defaultLabel
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *bus != "" {
		cfg.Bus = *bus
	}

	cfg.DBPath = expandPath(cfg.DBPath)
	cfg.LogFile = expandPath(cfg.LogFile)

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SECRET_SERVICE_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SECRET_SERVICE_DEFAULT_LABEL"); v != "" {
		c.DefaultCollectionLabel = v
	}
	if v := os.Getenv("SECRET_SERVICE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SECRET_SERVICE_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

func printUsage() {
	fmt.Println(`secretsd - D-Bus Secret Service daemon

Usage:
  secretsd [options]

Options:
      --config PATH          Path to config file (default: ~/.config/secret-service/config.yaml)
      --db PATH               Path to the secrets database (default: $XDG_DATA_HOME/secret-service/secrets.db)
      --default-label LABEL   Label for the bootstrap default collection (default: "Default")
      --log-level LEVEL       Log level: debug, info, warn, error (default: info)
      --log-file PATH         Log file path (empty for stderr)
      --bus NAME               Bus to connect to: session, system (default: session)
      --debug                  Enable debug logging
      --version                Print version and exit
  -h, --help                   Show help message

Environment variables:
  SECRET_SERVICE_DB             Path to the secrets database
  SECRET_SERVICE_DEFAULT_LABEL  Label for the bootstrap default collection
  SECRET_SERVICE_LOG_LEVEL      Log level (debug, info, warn, error)
  SECRET_SERVICE_LOG_FILE       Log file path`)
}
