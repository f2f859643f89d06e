package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/pingwatch/internal/outage"
)

type Config struct {
	// Probe
	Target        string        `yaml:"target"`
	ProbeMode     string        `yaml:"probe_mode"` // icmp | udp | tcp | http
	ProbePort     int           `yaml:"probe_port"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`

	// Outage core
	FailureThreshold uint64 `yaml:"failure_threshold"`
	OutageCapacity   int    `yaml:"outage_capacity"`

	// LockFile keeps the loop alive while it exists; empty disables the check.
	LockFile string `yaml:"lock_file"`

	// Indicators
	GPIOPin       int    `yaml:"gpio_pin"` // -1 disables
	GPIORoot      string `yaml:"gpio_root"`
	ModbusAddr    string `yaml:"modbus_addr"`
	ModbusSlaveID uint8  `yaml:"modbus_slave_id"`
	ModbusCoil    uint16 `yaml:"modbus_coil"`
	Console       bool   `yaml:"console"`

	// API (empty Addr means no API server)
	Addr           string   `yaml:"api_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	PublicAPIKeys  []string `yaml:"public_api_keys"`
	AdminAPIKeys   []string `yaml:"admin_api_keys"`
	PublicRPM      int      `yaml:"public_rpm"`
	PublicBurst    int      `yaml:"public_burst"`

	// Storage (both empty means in-memory)
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	// Alerts
	SlackWebhookURL string        `yaml:"slack_webhook_url"`
	AlertOnRecovery bool          `yaml:"alert_on_recovery"`
	AlertCooldown   time.Duration `yaml:"alert_cooldown"`

	// Logs
	LogDir    string `yaml:"log_dir"`
	LogLevel  string `yaml:"log_level"`
	LogStderr bool   `yaml:"log_stderr"`
}

func Defaults() Config {
	return Config{
		ProbeMode:        "icmp",
		ProbePort:        443,
		ProbeTimeout:     time.Second,
		TickInterval:     time.Second,
		RetryAttempts:    1,
		FailureThreshold: 3,
		OutageCapacity:   30,
		GPIOPin:          -1,
		GPIORoot:         "/sys/class/gpio",
		ModbusSlaveID:    1,
		Console:          true,
		PublicRPM:        120,
		PublicBurst:      60,
		AlertOnRecovery:  true,
		LogDir:           "logs",
		LogLevel:         "info",
	}
}

// Load reads .env (if any), then the YAML file named by CONFIG_FILE (if any),
// then the environment. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = FromFile(path, cfg); err != nil {
			return cfg, err
		}
	}
	return FromEnvOver(cfg), nil
}

// FromFile overlays the YAML document at path on base.
func FromFile(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &base); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return base, nil
}

// FromEnv is FromEnvOver(Defaults()).
func FromEnv() Config { return FromEnvOver(Defaults()) }

// FromEnvOver overrides fields of cfg with the environment variables that are
// set. Values that fail to parse are ignored.
func FromEnvOver(cfg Config) Config {
	str("PROBE_TARGET", &cfg.Target)
	str("PROBE_MODE", &cfg.ProbeMode)
	num("PROBE_PORT", &cfg.ProbePort)
	millis("PROBE_TIMEOUT_MS", &cfg.ProbeTimeout)
	millis("TICK_INTERVAL_MS", &cfg.TickInterval)
	num("RETRY_ATTEMPTS", &cfg.RetryAttempts)
	millis("RETRY_BACKOFF_MS", &cfg.RetryBackoff)

	if v := os.Getenv("FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.FailureThreshold = n
		}
	}
	num("OUTAGE_CAPACITY", &cfg.OutageCapacity)
	str("LOCK_FILE", &cfg.LockFile)

	num("GPIO_PIN", &cfg.GPIOPin)
	str("GPIO_ROOT", &cfg.GPIORoot)
	str("MODBUS_ADDR", &cfg.ModbusAddr)
	if v := os.Getenv("MODBUS_SLAVE_ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			cfg.ModbusSlaveID = uint8(n)
		}
	}
	if v := os.Getenv("MODBUS_COIL"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.ModbusCoil = uint16(n)
		}
	}
	boolean("CONSOLE", &cfg.Console)

	str("API_ADDR", &cfg.Addr)
	list("ALLOWED_ORIGINS", &cfg.AllowedOrigins)
	list("PUBLIC_API_KEYS", &cfg.PublicAPIKeys)
	list("ADMIN_API_KEYS", &cfg.AdminAPIKeys)
	num("PUBLIC_RPM", &cfg.PublicRPM)
	num("PUBLIC_BURST", &cfg.PublicBurst)

	str("DATABASE_URL", &cfg.DatabaseURL)
	str("SQLITE_PATH", &cfg.SQLitePath)

	str("SLACK_WEBHOOK_URL", &cfg.SlackWebhookURL)
	boolean("ALERT_ON_RECOVERY", &cfg.AlertOnRecovery)
	millis("ALERT_COOLDOWN_MS", &cfg.AlertCooldown)

	str("LOG_DIR", &cfg.LogDir)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("LOG_STDERR", &cfg.LogStderr)
	return cfg
}

var (
	ErrNoTarget     = errors.New("probe target is required")
	ErrUnknownMode  = errors.New("unknown probe mode")
	ErrBadInterval  = errors.New("tick interval must be positive")
	ErrBadTimeout   = errors.New("probe timeout must be positive")
	ErrBadPort      = errors.New("probe port out of range")
	ErrTwoDatabases = errors.New("set either DATABASE_URL or SQLITE_PATH, not both")
)

// Validate reports every problem with cfg, combined.
func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Target) == "" {
		err = multierr.Append(err, ErrNoTarget)
	}
	switch c.ProbeMode {
	case "icmp", "udp", "http":
	case "tcp":
		if c.ProbePort < 1 || c.ProbePort > 65535 {
			err = multierr.Append(err, fmt.Errorf("%w: %d", ErrBadPort, c.ProbePort))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrUnknownMode, c.ProbeMode))
	}
	if c.TickInterval <= 0 {
		err = multierr.Append(err, ErrBadInterval)
	}
	if c.ProbeTimeout <= 0 {
		err = multierr.Append(err, ErrBadTimeout)
	}
	if c.FailureThreshold < 1 {
		err = multierr.Append(err, outage.ErrInvalidThreshold)
	}
	if c.OutageCapacity < 1 {
		err = multierr.Append(err, outage.ErrInvalidCapacity)
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		err = multierr.Append(err, ErrTwoDatabases)
	}
	return err
}

func str(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func num(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func millis(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
}

func boolean(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func list(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
