package bus

// Backend gives the Driver access to the physical line groups.
//
// Every method addresses one whole 8-bit group. Bits that are not wired
// are ignored by Drive and read as zero by Sample.
type Backend interface {
	// SetDirection configures each line of the group: a set bit in outputs
	// makes the line an output, a clear bit makes it an input.
	SetDirection(g Group, outputs byte) error

	// Drive sets the output latch of the group. On input lines a set bit
	// enables the pull-up.
	Drive(g Group, value byte) error

	// Sample reads the current level of every line in the group.
	Sample(g Group) (byte, error)
}
