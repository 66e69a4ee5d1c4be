package flash

import (
	"time"

	"github.com/bryangrimes/node-cubelets/logging"
)

// Config holds the flasher configuration.
type Config struct {
	// ProgressCallback is called during flashing to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger logging.Logger

	// Timeout bounds every status-byte wait
	Timeout time.Duration

	// FlashTimeout bounds the gap between flash progress events during a
	// host commit
	FlashTimeout time.Duration

	// FlashCeiling bounds the whole host commit, however many progress
	// events arrive
	FlashCeiling time.Duration

	// ChunkSize is the host upload chunk size in bytes
	ChunkSize int

	// ChunkDelay is the pause between host upload chunks
	ChunkDelay time.Duration

	// SettleDelay is the pause before the safe check, the target commit and
	// the trailing reset
	SettleDelay time.Duration

	// CommitDelay is the pause between the host upload and the commit
	CommitDelay time.Duration

	// SafeCheck enables the host '1'/'Z' check after committing
	SafeCheck bool
}

// Defaults for the fields of Config.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultFlashTimeout = 30 * time.Second
	DefaultFlashCeiling = 5 * time.Minute
	DefaultChunkSize    = 200
	DefaultChunkDelay   = 80 * time.Millisecond
	DefaultSettleDelay  = time.Second
	DefaultCommitDelay  = 2 * time.Second
)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:       logging.Nop,
		Timeout:      DefaultTimeout,
		FlashTimeout: DefaultFlashTimeout,
		FlashCeiling: DefaultFlashCeiling,
		ChunkSize:    DefaultChunkSize,
		ChunkDelay:   DefaultChunkDelay,
		SettleDelay:  DefaultSettleDelay,
		CommitDelay:  DefaultCommitDelay,
		SafeCheck:    true,
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithProgressCallback sets a callback function to track flashing progress.
//
// Example:
//
//	f := flash.New(link,
//	    flash.WithProgressCallback(func(p flash.Progress) {
//	        fmt.Printf("[%s] %.1f%%\n", p.Phase, p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the flasher operations.
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logging.OrNop(logger)
	}
}

// WithTimeout sets the status-byte timeout.
//
// Example:
//
//	f := flash.New(link, flash.WithTimeout(10*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithFlashTimeout sets the allowed gap between host flash progress events.
func WithFlashTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.FlashTimeout = timeout
		}
	}
}

// WithFlashCeiling sets the total time allowed for a host commit.
func WithFlashCeiling(ceiling time.Duration) Option {
	return func(c *Config) {
		if ceiling > 0 {
			c.FlashCeiling = ceiling
		}
	}
}

// WithChunkSize sets the host upload chunk size. Default is 200 bytes, the
// host's receive buffer.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size <= 256 {
			c.ChunkSize = size
		}
	}
}

// WithChunkDelay sets the pause between host upload chunks.
func WithChunkDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.ChunkDelay = d
		}
	}
}

// WithSettleDelay sets the pause used before safe checks and commits.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.SettleDelay = d
		}
	}
}

// WithCommitDelay sets the pause between the host upload and the commit.
func WithCommitDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.CommitDelay = d
		}
	}
}

// WithSafeCheck enables or disables the host safe check. Default is true.
func WithSafeCheck(enabled bool) Option {
	return func(c *Config) {
		c.SafeCheck = enabled
	}
}

// WithFastTimings zeroes every fixed delay. Intended for tests and
// simulated devices.
func WithFastTimings() Option {
	return func(c *Config) {
		c.ChunkDelay = 0
		c.SettleDelay = 0
		c.CommitDelay = 0
	}
}
