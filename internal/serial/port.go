// Package serial is the UART link to the sensor: open/close, command
// writes, host-side baud changes and the inbound frame reader.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Transmit and SetBaudRate after Close.
var ErrClosed = errors.New("serial: port closed")

// Platform hooks. Tests replace them.
var (
	openDeviceFn = openDevice
	changeBaudFn = changeBaud
)

const readChunk = 512

// Port is an open serial device. Writes are serialised; ReadFrames may run
// concurrently with Transmit.
type Port struct {
	name string
	log  *zap.Logger

	mu     sync.Mutex
	rw     io.ReadWriteCloser
	baud   int
	gen    uint64
	closed bool

	// eofIsTimeout is set when the device returns io.EOF on an idle read
	// timeout rather than on hang-up.
	eofIsTimeout bool
}

func Open(device string, baud int, logger *zap.Logger) (*Port, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rw, err := openDeviceFn(device, baud)
	if err != nil {
		return nil, fmt.Errorf("serial open %s baud=%d: %w", device, baud, err)
	}
	logger.Info("serial port open", zap.String("device", device), zap.Int("baud", baud))
	return &Port{name: device, log: logger, rw: rw, baud: baud, eofIsTimeout: true}, nil
}

func (p *Port) Name() string { return p.name }

func (p *Port) Baud() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.baud
}

// Transmit writes b in full.
func (p *Port) Transmit(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for len(b) > 0 {
		n, err := p.rw.Write(b)
		if err != nil {
			return fmt.Errorf("serial write %s: %w", p.name, err)
		}
		b = b[n:]
	}
	return nil
}

// SetBaudRate changes the host-side line rate. The device must already be
// switched, or the link is lost until both sides agree.
func (p *Port) SetBaudRate(baud int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	rw, err := changeBaudFn(p.rw, p.name, baud)
	if err != nil {
		return fmt.Errorf("serial %s baud=%d: %w", p.name, baud, err)
	}
	if rw != p.rw {
		p.gen++
	}
	p.rw = rw
	p.baud = baud
	p.log.Info("serial baud changed", zap.String("device", p.name), zap.Int("baud", baud))
	return nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.rw.Close()
}

func (p *Port) current() (io.Reader, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rw, p.gen, p.closed
}

// ReadFrames reads until ctx is done or the port fails, passing each frame
// to fn. The slice passed to fn is reused after fn returns.
//
// A read error caused by Close or by a baud change that reopened the
// device is not reported.
func (p *Port) ReadFrames(ctx context.Context, fn func(frame []byte)) error {
	var s Splitter
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		r, gen, closed := p.current()
		if closed {
			return nil
		}

		n, err := r.Read(buf)
		if n > 0 {
			s.Feed(buf[:n], fn)
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) && p.eofIsTimeout {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		_, nowGen, nowClosed := p.current()
		if nowClosed {
			return nil
		}
		if nowGen != gen {
			s.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("serial read %s: %w", p.name, err)
	}
}
