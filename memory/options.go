package memory

import "time"

// Config holds the device configuration.
type Config struct {
	// ProgressCallback is called during block programming (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// PollTimeout bounds every completion poll, measured on the bus clock
	PollTimeout time.Duration

	// MaxPollAttempts bounds the number of status reads per poll (0 = unbounded)
	MaxPollAttempts int

	// PollInterval is the delay between two status reads
	PollInterval time.Duration

	// IDExitDelay is waited after the ID exit sequence before array reads
	IDExitDelay time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		PollTimeout:  time.Second, // SST39SF chip erase is 100 ms max
		PollInterval: 187 * time.Nanosecond,
		IDExitDelay:  50 * time.Microsecond,
	}
}

// Option is a functional option for configuring the Device.
type Option func(*Config)

// WithProgressCallback sets a callback function to track block programming.
//
// Example:
//
//	dev := memory.New(drv,
//	    memory.WithProgressCallback(func(p memory.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Percentage)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for the device operations.
//
// Example:
//
//	dev := memory.New(drv, memory.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithPollTimeout sets the deadline for program and erase completion polls.
//
// Example:
//
//	dev := memory.New(drv, memory.WithPollTimeout(200*time.Millisecond))
func WithPollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.PollTimeout = timeout
		}
	}
}

// WithMaxPollAttempts bounds the number of status reads per poll.
// Zero leaves the attempts unbounded (the timeout still applies).
//
// Example:
//
//	dev := memory.New(drv, memory.WithMaxPollAttempts(10000))
func WithMaxPollAttempts(attempts int) Option {
	return func(c *Config) {
		if attempts >= 0 {
			c.MaxPollAttempts = attempts
		}
	}
}

// WithPollInterval sets the delay between status reads.
//
// Example:
//
//	dev := memory.New(drv, memory.WithPollInterval(time.Microsecond))
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval >= 0 {
			c.PollInterval = interval
		}
	}
}

// WithIDExitDelay sets the delay after leaving software ID mode.
//
// Example:
//
//	dev := memory.New(drv, memory.WithIDExitDelay(100*time.Microsecond))
func WithIDExitDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.IDExitDelay = delay
		}
	}
}
