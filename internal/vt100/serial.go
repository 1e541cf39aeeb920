package vt100

import (
	"fmt"

	"github.com/muurk/vtdash/internal/logging"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// Open connects to a VT-100 on a serial port. The terminal is assumed to
// start at 24x80.
func Open(portName string, baud int, flowControl bool) (*Terminal, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	opts := []Option{
		WithCloser(port),
		WithSize(DefaultRows, DefaultColumns),
		WithDECGraphics(),
	}
	if flowControl {
		opts = append(opts, WithFlowControl())
	}

	t := New(port, opts...)
	t.enableNewLineMode()
	if err := t.Flush(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to initialise terminal on %s: %w", portName, err)
	}

	logging.Info("Opened serial terminal",
		zap.String("port", portName),
		zap.Int("baud", baud),
		zap.Bool("flow_control", flowControl),
	)
	return t, nil
}

// Ports lists the serial ports present on this machine
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
