// Package harness runs the bench memory test: identify the chip, optionally
// erase and write a pattern or burn image, then read the range back in rows
// of 16 bytes on a fixed interval and report every mismatch.
//
// The report matches what the bench firmware prints on its serial console:
//
//	address		    0    1    2    3    4    5    6    7	    8    9    a    b    c    d    e    F	 error
//	0x0000		 0x00 0x01 0x02 0x03 0x04 0x05 0x06 0x07	 0x08 0x09 0x0a 0x0b 0x0c 0x0d 0x0e 0x0f
//	0x0010		 0x10 0x11 0xff 0x13 0x14 0x15 0x16 0x17	 0x18 0x19 0x1a 0x1b 0x1c 0x1d 0x1e 0x1f	    01
//
// Wrap a serial port in a CRLFWriter so line endings render on a terminal:
//
//	h := harness.New(dev, cfg, harness.WithOutput(harness.NewCRLFWriter(port)))
//	if _, err := h.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// The run mode normally comes from the board jumpers:
//
//	j, _ := drv.Jumpers()
//	cfg = cfg.WithMode(harness.ModeFromJumpers(j))
package harness
