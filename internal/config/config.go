package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. The lower-case spelling is kept for
// compatibility with existing deployments of the service.
const (
	EnvSecret    = "github_actions_secret"
	EnvPort      = "console_port"
	EnvDeployDir = "deploy_dir"
	EnvVerbose   = "verbose"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "deckhand.yaml"

// Config holds the process configuration. Precedence, lowest first:
// yaml file, .env file, process environment.
type Config struct {
	// Secret shared with the trigger side; guards both trigger routes.
	Secret string `yaml:"secret"`
	// Port the console and trigger endpoints listen on (loopback only).
	Port uint16 `yaml:"port"`
	// DeployDir is where <app>.deploy scripts live. Empty means CWD.
	DeployDir string `yaml:"deploy_dir"`
	Verbose   bool   `yaml:"verbose"`
}

// Load reads the optional yaml file at path, overlays .env and environment
// variables, and validates the result. A missing file is only an error when
// the path was given explicitly.
func Load(path string) (Config, error) {
	var cfg Config

	explicit := path != ""
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = f.Close()
		}()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case explicit:
		return Config{}, fmt.Errorf("opening config: %w", err)
	}

	// .env is best-effort: absence is normal outside development
	_ = godotenv.Load()

	if v, ok := os.LookupEnv(EnvSecret); ok {
		cfg.Secret = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", EnvPort, err)
		}
		cfg.Port = uint16(port)
	}
	if v, ok := os.LookupEnv(EnvDeployDir); ok {
		cfg.DeployDir = v
	}
	if v, ok := os.LookupEnv(EnvVerbose); ok {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", EnvVerbose, err)
		}
		cfg.Verbose = verbose
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Secret == "" {
		return errors.New("deploy secret must be set (env " + EnvSecret + " or config key secret)")
	}
	if c.Port == 0 {
		return errors.New("console port must be set (env " + EnvPort + " or config key port)")
	}
	return nil
}
