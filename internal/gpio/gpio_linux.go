//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type cdevLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openOutput(chipName string, offset, initial int) (outputLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, err
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(initial), gpiocdev.WithConsumer(consumer))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("request line %d: %w", offset, err)
	}
	return &cdevLine{chip: chip, line: line}, nil
}

func (g *cdevLine) SetValue(v int) error {
	if g.line == nil {
		return fmt.Errorf("gpio line closed")
	}
	return g.line.SetValue(v)
}

func (g *cdevLine) Close() error {
	if g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
