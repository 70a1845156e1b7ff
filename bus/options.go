package bus

import "time"

// DefaultSettle is the settle interval between line transitions.
// One _delay_loop_1 iteration on a 16 MHz AVR.
const DefaultSettle = 187 * time.Nanosecond

// Config holds the driver configuration.
type Config struct {
	// Clock is used for every delay (default SystemClock)
	Clock Clock

	// Settle is the fixed delay inserted between line transitions
	Settle time.Duration
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Clock:  SystemClock(),
		Settle: DefaultSettle,
	}
}

// Option is a functional option for configuring the Driver.
type Option func(*Config)

// WithClock sets the time source used for settle delays.
//
// Example:
//
//	clock := bus.NewFakeClock()
//	drv := bus.NewDriver(backend, bus.WithClock(clock))
func WithClock(clock Clock) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithSettle sets the settle interval. Non-positive values are ignored.
//
// Example:
//
//	drv := bus.NewDriver(backend, bus.WithSettle(250*time.Nanosecond))
func WithSettle(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Settle = d
		}
	}
}
