//go:build !linux

package gpio

import "fmt"

func openOutput(chip string, offset, initial int) (outputLine, error) {
	return nil, fmt.Errorf("gpio unsupported on this platform")
}
