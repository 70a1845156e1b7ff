package memory

import "time"

// Phase names reported in Progress.
const (
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseWriting     = "writing"
	PhaseComplete    = "complete"
)

// Progress contains information about a block operation.
// Passed to ProgressCallback after every byte of a block program.
type Progress struct {
	// Phase describes the current operation phase:
	//   "erasing"     - Waiting for an erase to complete
	//   "programming" - Programming flash bytes
	//   "writing"     - Writing SRAM/FRAM bytes
	//   "complete"    - Operation completed successfully
	Phase string

	// Address is the address of the byte just handled
	Address uint16

	// Current is the number of bytes handled so far
	Current int

	// Total is the number of bytes in the operation
	Total int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the operation started,
	// measured on the bus clock
	ElapsedTime time.Duration
}

// ProgressCallback is called during block operations to report progress.
// Implementations should return quickly; the bus is held while it runs.
//
// Example:
//
//	dev := memory.New(drv,
//	    memory.WithProgressCallback(func(p memory.Progress) {
//	        fmt.Printf("[%s] %.1f%% - 0x%04X\n", p.Phase, p.Percentage, p.Address)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the device.
// This allows integration with any logging framework.
//
// Example with logrus:
//
//	type logrusLogger struct{ entry *logrus.Entry }
//	func (l logrusLogger) Debug(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Debug(msg) }
//	func (l logrusLogger) Info(msg string, kv ...interface{})  { l.entry.WithFields(fields(kv)).Info(msg) }
//	func (l logrusLogger) Error(msg string, kv ...interface{}) { l.entry.WithFields(fields(kv)).Error(msg) }
//
//	dev := memory.New(drv, memory.WithLogger(logrusLogger{...}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
