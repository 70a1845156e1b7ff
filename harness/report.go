package harness

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// RowSize is the number of bytes per report line.
const RowSize = 16

const (
	reportHeader = "address\t\t    0    1    2    3    4    5    6    7\t    8    9    a    b    c    d    e    F\t error\n"

	colorMismatch = "\x1b[31m"
	colorReset    = "\x1b[0m"
)

var reportSeparator = "\n" + strings.Repeat("/", 123) + "\n\n"

// Row is one verified report line.
type Row struct {
	// Address is the address of the first byte in the row
	Address uint16

	// Data holds the bytes read back
	Data []byte

	// Mismatch flags the bytes that differ from the expected value
	Mismatch []bool

	// Errors is the number of mismatching bytes
	Errors int
}

// Result is the outcome of one verify pass.
type Result struct {
	// Pass is the 1-based pass number
	Pass int

	// Rows holds every verified row in address order
	Rows []Row

	// Errors is the total number of mismatching bytes
	Errors int
}

// WriteReport prints r as the bench report: a header line, one line per
// row with a tab after the 8th byte and the mismatch count when non-zero,
// the total error count and a separator. Mismatching bytes are wrapped in
// ANSI red when color is set.
func WriteReport(w io.Writer, r *Result, color bool) error {
	bw := bufio.NewWriter(w)

	_, _ = bw.WriteString(reportHeader)
	for _, row := range r.Rows {
		_, _ = fmt.Fprintf(bw, "0x%04x\t\t", row.Address)
		for j, v := range row.Data {
			if j == 8 {
				_ = bw.WriteByte('\t')
			}
			if color && row.Mismatch[j] {
				_, _ = fmt.Fprintf(bw, " %s0x%02x%s", colorMismatch, v, colorReset)
			} else {
				_, _ = fmt.Fprintf(bw, " 0x%02x", v)
			}
		}
		if row.Errors > 0 {
			_, _ = fmt.Fprintf(bw, "\t    %02d\n", row.Errors)
		} else {
			_ = bw.WriteByte('\n')
		}
	}
	_, _ = fmt.Fprintf(bw, "\ntotal errors: %d\n", r.Errors)
	_, _ = bw.WriteString(reportSeparator)

	return bw.Flush()
}
