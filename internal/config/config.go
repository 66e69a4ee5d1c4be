// Package config holds the meshflash configuration model. Values come from
// a YAML file, MESHFLASH_* environment variables and command-line flags,
// merged by viper in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/flash"
	"github.com/bryangrimes/node-cubelets/info"
	"github.com/bryangrimes/node-cubelets/transport"
	"github.com/bryangrimes/node-cubelets/upgrade"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MESHFLASH_SERIAL_PORT.
const EnvPrefix = "MESHFLASH"

// Transport kinds.
const (
	TransportSerial    = "serial"
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Config is the full configuration.
type Config struct {
	Transport string          `mapstructure:"transport"`
	Serial    SerialConfig    `mapstructure:"serial"`
	TCP       TCPConfig       `mapstructure:"tcp"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Log       LogConfig       `mapstructure:"log"`
	Catalog   string          `mapstructure:"catalog"`
	Info      InfoConfig      `mapstructure:"info"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Flash     FlashConfig     `mapstructure:"flash"`
	Upgrade   UpgradeConfig   `mapstructure:"upgrade"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type TCPConfig struct {
	Address string `mapstructure:"address"`
}

type WebSocketConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InfoConfig points at the static block table used to resolve block types.
type InfoConfig struct {
	Table    string        `mapstructure:"table"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LedgerConfig locates the flash history database. An empty path disables
// recording.
type LedgerConfig struct {
	Path string `mapstructure:"path"`
}

type FlashConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	FlashTimeout time.Duration `mapstructure:"flash_timeout"`
	FlashCeiling time.Duration `mapstructure:"flash_ceiling"`
	ChunkSize    int           `mapstructure:"chunk_size"`
	ChunkDelay   time.Duration `mapstructure:"chunk_delay"`
	SafeCheck    bool          `mapstructure:"safe_check"`
}

type UpgradeConfig struct {
	Settle                 time.Duration `mapstructure:"settle"`
	SkipTimeout            time.Duration `mapstructure:"skip_timeout"`
	TargetDiscoveryTimeout time.Duration `mapstructure:"target_discovery_timeout"`
	ResetAttempts          int           `mapstructure:"reset_attempts"`
	ResetInterval          time.Duration `mapstructure:"reset_interval"`
	MaxIterationFailures   int           `mapstructure:"max_iteration_failures"`
}

// SetDefaults registers the default of every key on v. Keys without a
// default are invisible to AutomaticEnv during Unmarshal.
func SetDefaults(v *viper.Viper) {
	t := upgrade.DefaultTimings()

	v.SetDefault("transport", TransportSerial)
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", transport.DefaultBaudRate)
	v.SetDefault("tcp.address", "")
	v.SetDefault("websocket.url", "")
	v.SetDefault("catalog", "")
	v.SetDefault("info.table", "")
	v.SetDefault("ledger.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("info.cache_ttl", info.DefaultCacheTTL)
	v.SetDefault("request_timeout", client.DefaultRequestTimeout)

	v.SetDefault("flash.timeout", flash.DefaultTimeout)
	v.SetDefault("flash.flash_timeout", flash.DefaultFlashTimeout)
	v.SetDefault("flash.flash_ceiling", flash.DefaultFlashCeiling)
	v.SetDefault("flash.chunk_size", flash.DefaultChunkSize)
	v.SetDefault("flash.chunk_delay", flash.DefaultChunkDelay)
	v.SetDefault("flash.safe_check", true)

	v.SetDefault("upgrade.settle", t.Settle)
	v.SetDefault("upgrade.skip_timeout", t.SkipTimeout)
	v.SetDefault("upgrade.target_discovery_timeout", t.TargetDiscoveryTimeout)
	v.SetDefault("upgrade.reset_attempts", t.ResetAttempts)
	v.SetDefault("upgrade.reset_interval", t.ResetInterval)
	v.SetDefault("upgrade.max_iteration_failures", t.MaxIterationFailures)
}

// BindEnv makes every key readable from MESHFLASH_* variables, with dots
// replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Transport {
	case TransportSerial, TransportTCP, TransportWebSocket:
	default:
		errs = append(errs, fmt.Errorf("transport must be serial, tcp or websocket, got %q", c.Transport))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Flash.ChunkSize < 1 || c.Flash.ChunkSize > 256 {
		errs = append(errs, fmt.Errorf("flash.chunk_size must be within 1..256, got %d", c.Flash.ChunkSize))
	}
	for key, d := range map[string]time.Duration{
		"request_timeout":     c.RequestTimeout,
		"flash.timeout":       c.Flash.Timeout,
		"flash.flash_timeout": c.Flash.FlashTimeout,
		"flash.flash_ceiling": c.Flash.FlashCeiling,
		"upgrade.settle":      c.Upgrade.Settle,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.Upgrade.MaxIterationFailures < 0 {
		errs = append(errs, fmt.Errorf("upgrade.max_iteration_failures must not be negative (0 never stops), got %d", c.Upgrade.MaxIterationFailures))
	}
	if c.Flash.ChunkDelay < 0 {
		errs = append(errs, fmt.Errorf("flash.chunk_delay must not be negative, got %s", c.Flash.ChunkDelay))
	}
	return errors.Join(errs...)
}

// RequireLink checks that the selected transport has an endpoint.
func (c *Config) RequireLink() error {
	switch c.Transport {
	case TransportSerial:
		if c.Serial.Port == "" {
			return errors.New("serial.port is required (--port or MESHFLASH_SERIAL_PORT)")
		}
	case TransportTCP:
		if c.TCP.Address == "" {
			return errors.New("tcp.address is required (--addr or MESHFLASH_TCP_ADDRESS)")
		}
	case TransportWebSocket:
		if c.WebSocket.URL == "" {
			return errors.New("websocket.url is required (--url or MESHFLASH_WEBSOCKET_URL)")
		}
	}
	return nil
}

// FlashOptions converts the flash section into flasher options.
func (c *Config) FlashOptions() []flash.Option {
	f := c.Flash
	return []flash.Option{
		flash.WithTimeout(f.Timeout),
		flash.WithFlashTimeout(f.FlashTimeout),
		flash.WithFlashCeiling(f.FlashCeiling),
		flash.WithChunkSize(f.ChunkSize),
		flash.WithChunkDelay(f.ChunkDelay),
		flash.WithSafeCheck(f.SafeCheck),
	}
}

// Timings converts the upgrade section. Unset fields keep their defaults.
func (c *Config) Timings() upgrade.Timings {
	t := upgrade.DefaultTimings()
	u := c.Upgrade
	t.Settle = u.Settle
	t.SkipTimeout = u.SkipTimeout
	t.TargetDiscoveryTimeout = u.TargetDiscoveryTimeout
	t.ResetAttempts = u.ResetAttempts
	t.ResetInterval = u.ResetInterval
	t.MaxIterationFailures = u.MaxIterationFailures
	return t
}
