package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// DevSessionSecret is the cookie secret used when SESSION_SECRET is unset.
// Only local and dev environments accept it.
const DevSessionSecret = "ekaya-dashboard-dev-secret"

// Submission policies for a query submitted while another is still resolving.
const (
	PolicyOverlap   = "overlap"
	PolicyReject    = "reject"
	PolicySupersede = "supersede"
)

// Config holds all configuration for ekaya-dashboard.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, session keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Simulated query processing
	Query QueryConfig `yaml:"query"`

	// Saved query history storage (optional; in-memory when Host is empty)
	Redis RedisConfig `yaml:"redis"`

	// Per-browser dashboard sessions
	Session SessionConfig `yaml:"session"`

	// ProfileSeedPath optionally points at a YAML file replacing the default profile.
	ProfileSeedPath string `yaml:"profile_seed_path" env:"PROFILE_SEED_PATH" env-default:""`
}

// QueryConfig controls the simulated query processor.
type QueryConfig struct {
	// SimulatedDelayMs is how long a submission stays loading before it resolves.
	SimulatedDelayMs int `yaml:"simulated_delay_ms" env:"QUERY_SIMULATED_DELAY_MS" env-default:"1500"`
	// FailureProbability is the chance (0.0-1.0) that a resolution fails.
	FailureProbability float64 `yaml:"failure_probability" env:"QUERY_FAILURE_PROBABILITY" env-default:"0.1"`
	// HistoryLimit caps the number of history entries kept.
	HistoryLimit int `yaml:"history_limit" env:"QUERY_HISTORY_LIMIT" env-default:"10"`
	// SubmissionPolicy is one of overlap, reject, supersede.
	SubmissionPolicy string `yaml:"submission_policy" env:"QUERY_SUBMISSION_POLICY" env-default:"overlap"`
}

// SimulatedDelay returns the delay as a duration.
func (c *QueryConfig) SimulatedDelay() time.Duration {
	return time.Duration(c.SimulatedDelayMs) * time.Millisecond
}

// RedisConfig holds Redis connection settings for saved query history.
type RedisConfig struct {
	Host      string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port      int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password  string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"dashboard:history:"`
	TTLHours  int    `yaml:"ttl_hours" env:"REDIS_TTL_HOURS" env-default:"720"`
	// ResolveDockerHost maps localhost to host.docker.internal when running in a container. Opt-in.
	ResolveDockerHost bool `yaml:"resolve_docker_host" env:"REDIS_RESOLVE_DOCKER_HOST" env-default:"false"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	host := c.Host
	if c.ResolveDockerHost {
		host = resolveHostForDocker(host)
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// TTL returns the saved history expiry.
func (c *RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// SessionConfig holds dashboard session cookie settings.
type SessionConfig struct {
	// Secret signs session cookies. Any passphrase; it is hashed to a 32-byte key.
	// The default equals DevSessionSecret and is rejected outside local and dev.
	Secret string `yaml:"-" env:"SESSION_SECRET" env-default:"ekaya-dashboard-dev-secret"`
	// MaxAgeSeconds is the cookie lifetime.
	MaxAgeSeconds int `yaml:"max_age_seconds" env:"SESSION_MAX_AGE_SECONDS" env-default:"604800"`
	// MaxDashboards bounds the number of live per-browser dashboards.
	MaxDashboards int `yaml:"max_dashboards" env:"SESSION_MAX_DASHBOARDS" env-default:"1000"`
}

// Load reads configuration from config.yaml (or $CONFIG_PATH) with environment variable overrides.
// A missing file is not an error; environment variables and defaults are used instead.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// IsLocal reports whether the process runs in a local or dev environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "dev"
}

func (c *Config) validate() error {
	q := c.Query
	if q.SimulatedDelayMs < 0 {
		return fmt.Errorf("query.simulated_delay_ms must not be negative, got %d", q.SimulatedDelayMs)
	}
	if q.FailureProbability < 0 || q.FailureProbability > 1 {
		return fmt.Errorf("query.failure_probability must be within [0, 1], got %v", q.FailureProbability)
	}
	if q.HistoryLimit <= 0 {
		return fmt.Errorf("query.history_limit must be positive, got %d", q.HistoryLimit)
	}
	switch q.SubmissionPolicy {
	case PolicyOverlap, PolicyReject, PolicySupersede:
	default:
		return fmt.Errorf("query.submission_policy must be one of %s, %s, %s; got %q",
			PolicyOverlap, PolicyReject, PolicySupersede, q.SubmissionPolicy)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.Session.Secret == DevSessionSecret && !c.IsLocal() {
		return fmt.Errorf("SESSION_SECRET must be set when env is %q", c.Env)
	}
	return nil
}

// LoadProfileSeed reads the profile seed file if configured, otherwise returns the default user.
// Fields absent from the file keep their default values.
func (c *Config) LoadProfileSeed() (models.User, error) {
	user := models.DefaultUser()
	if c.ProfileSeedPath == "" {
		return user, nil
	}

	data, err := os.ReadFile(c.ProfileSeedPath)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read profile seed: %w", err)
	}
	if err := yaml.Unmarshal(data, &user); err != nil {
		return models.User{}, fmt.Errorf("failed to parse profile seed: %w", err)
	}
	if name := models.DuplicatePreferenceName(user.NotificationPreferences); name != "" {
		return models.User{}, fmt.Errorf("profile seed lists notification preference %q more than once", name)
	}
	return user, nil
}

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// isRunningInDocker reports whether /.dockerenv exists. Cached after the first call.
func isRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// resolveHostForDocker maps localhost to host.docker.internal inside a container
// so a Redis running on the host machine stays reachable.
func resolveHostForDocker(host string) string {
	if !isRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
