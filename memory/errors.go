package memory

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyBlock is returned by block operations called with zero length.
// No bus activity takes place.
var ErrEmptyBlock = errors.New("block length must be greater than zero")

// PollTimeoutError indicates that a program or erase operation did not
// complete before the poll deadline.
type PollTimeoutError struct {
	Operation string
	Address   uint16
	Expected  byte
	Last      byte
	Attempts  int
	Elapsed   time.Duration
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out at 0x%04X: expected 0x%02X, last read 0x%02X after %d polls (%s)",
		e.Operation, e.Address, e.Expected, e.Last, e.Attempts, e.Elapsed)
}

// AddressRangeError indicates that a block runs past the top of the 16-bit
// address space.
type AddressRangeError struct {
	Address uint16
	Length  int
}

func (e *AddressRangeError) Error() string {
	return fmt.Sprintf("block of %d bytes at 0x%04X exceeds the 16-bit address space",
		e.Length, e.Address)
}

// IsPollTimeout returns true if the error is or wraps a PollTimeoutError.
func IsPollTimeout(err error) bool {
	var target *PollTimeoutError
	return errors.As(err, &target)
}
