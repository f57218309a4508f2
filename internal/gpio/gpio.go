// Package gpio drives the sensor board's power enable and the RS422
// transceiver enables.
package gpio

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const consumer = "vn310d"

// Config holds line offsets on Chip. Zero means the line is not wired.
type Config struct {
	Chip        string
	PowerEnable int
	PriREnL     int
	PriDEn      int
	SecREnL     int
	SecDEn      int
}

// ErrNotWired is returned when an operation needs a line that has no
// offset configured.
var ErrNotWired = errors.New("gpio: line not configured")

type outputLine interface {
	SetValue(v int) error
	Close() error
}

var openOutputFn = openOutput

// Lines are the requested output lines. The transceiver lines are only
// driven when both receiver enables are wired.
type Lines struct {
	log *zap.Logger

	power   outputLine
	priREnL outputLine
	priDEn  outputLine
	secREnL outputLine
	secDEn  outputLine
}

// Open requests every wired line. Power starts off and the transceivers
// start disabled (receivers high, drivers low).
func Open(cfg Config, logger *zap.Logger) (*Lines, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lines{log: logger}

	req := func(name string, offset, initial int) (outputLine, error) {
		if offset == 0 {
			return nil, nil
		}
		line, err := openOutputFn(cfg.Chip, offset, initial)
		if err != nil {
			return nil, fmt.Errorf("gpio %s (%s:%d): %w", name, cfg.Chip, offset, err)
		}
		return line, nil
	}

	var err error
	if l.power, err = req("power_enable", cfg.PowerEnable, 0); err != nil {
		return nil, err
	}
	if cfg.PriREnL != 0 && cfg.SecREnL != 0 {
		steps := []struct {
			name    string
			offset  int
			initial int
			dst     *outputLine
		}{
			{"pri_r_en_l", cfg.PriREnL, 1, &l.priREnL},
			{"pri_d_en", cfg.PriDEn, 0, &l.priDEn},
			{"sec_r_en_l", cfg.SecREnL, 1, &l.secREnL},
			{"sec_d_en", cfg.SecDEn, 0, &l.secDEn},
		}
		for _, s := range steps {
			if *s.dst, err = req(s.name, s.offset, s.initial); err != nil {
				_ = l.Close()
				return nil, err
			}
		}
	}
	logger.Info("gpio lines ready",
		zap.String("chip", cfg.Chip),
		zap.Bool("power", l.power != nil),
		zap.Bool("transceivers", l.HasTransceivers()))
	return l, nil
}

func (l *Lines) HasTransceivers() bool {
	return l != nil && l.priREnL != nil && l.secREnL != nil
}

func (l *Lines) PowerOn() error  { return l.setPower(1) }
func (l *Lines) PowerOff() error { return l.setPower(0) }

func (l *Lines) setPower(v int) error {
	if l == nil || l.power == nil {
		return fmt.Errorf("%w: power_enable", ErrNotWired)
	}
	if err := l.power.SetValue(v); err != nil {
		return fmt.Errorf("gpio power_enable: %w", err)
	}
	l.log.Info("vn310 power", zap.Bool("on", v == 1))
	return nil
}

// EnableTransceivers turns on both RS422 receivers and drivers. It is a
// no-op when the transceiver lines are not wired.
func (l *Lines) EnableTransceivers() error { return l.setTransceivers(true) }

// DisableTransceivers is the low-power state used at start-up.
func (l *Lines) DisableTransceivers() error { return l.setTransceivers(false) }

func (l *Lines) setTransceivers(on bool) error {
	if !l.HasTransceivers() {
		return nil
	}
	rEnL, dEn := 1, 0
	if on {
		rEnL, dEn = 0, 1
	}
	for _, s := range []struct {
		name string
		line outputLine
		v    int
	}{
		{"pri_r_en_l", l.priREnL, rEnL},
		{"pri_d_en", l.priDEn, dEn},
		{"sec_r_en_l", l.secREnL, rEnL},
		{"sec_d_en", l.secDEn, dEn},
	} {
		if s.line == nil {
			continue
		}
		if err := s.line.SetValue(s.v); err != nil {
			return fmt.Errorf("gpio %s: %w", s.name, err)
		}
	}
	l.log.Debug("rs422 transceivers", zap.Bool("enabled", on))
	return nil
}

// Close releases every line. Power and transceivers are left in their
// current state by the kernel once released.
func (l *Lines) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, line := range []*outputLine{&l.power, &l.priREnL, &l.priDEn, &l.secREnL, &l.secDEn} {
		if *line == nil {
			continue
		}
		if err := (*line).Close(); err != nil {
			errs = append(errs, err)
		}
		*line = nil
	}
	return errors.Join(errs...)
}
