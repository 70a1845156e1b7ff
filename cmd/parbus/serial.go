package main

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

// openSerial opens the report console, 8N1 without flow control as on the
// bench board.
func openSerial(port string, baud uint) (io.ReadWriteCloser, error) {
	oo := serial.OpenOptions{
		PortName:              port,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     false,
		MinimumReadSize:       1,
		InterCharacterTimeout: 100,
	}
	log.WithField("options", fmt.Sprintf("%+v", oo)).Debug("opening serial port")

	s, err := serial.Open(oo)
	if err != nil {
		return nil, fmt.Errorf("can't open serial port: %w", err)
	}
	return s, nil
}
