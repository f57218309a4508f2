//go:build !linux

package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const readTimeout = 100 * time.Millisecond

func openDevice(path string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        path,
		Baud:        baud,
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// changeBaud reopens the device; tarm/serial cannot reprogram an open port.
func changeBaud(rw io.ReadWriteCloser, path string, baud int) (io.ReadWriteCloser, error) {
	if err := rw.Close(); err != nil {
		return nil, fmt.Errorf("close for reopen: %w", err)
	}
	return openDevice(path, baud)
}
