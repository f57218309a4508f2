package vectornav

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vn310d/internal/metrics"
)

// Transmitter carries encoded commands to the device.
type Transmitter interface {
	Transmit(p []byte) error
}

// BaudSetter is implemented by transports that can change the host-side
// serial rate without reopening.
type BaudSetter interface {
	SetBaudRate(baud int) error
}

type DriverConfig struct {
	// Checksum selects the trailer on outgoing commands.
	Checksum ChecksumMode
	// ValidateChecksum rejects text frames whose trailer does not match.
	// Frames carrying the "XX" placeholder are always accepted.
	ValidateChecksum bool
}

// Frame is one consumed assembled message.
type Frame struct {
	Type MessageType
	Data []byte
	// Echo is set when the frame should be printed to the console because a
	// reply was expected or the raw stream is enabled.
	Echo bool
}

// Driver owns the assembled message buffer and the stream flags for one
// device.
//
// OnBytesReceived is called from the transport's reader and Consume from
// the run loop; mu serialises them. A frame that arrives before the
// previous one is consumed replaces it.
type Driver struct {
	cfg     DriverConfig
	tx      Transmitter
	log     *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	assembled [AssembledBufferSize]byte
	length    int
	msgType   MessageType
	ready     bool

	// responseExpected is cleared whenever any frame is echoed, not only the
	// reply it was set for. Callers issuing queries must serialise them.
	responseExpected bool
	uartStream       bool
	poseStream       bool
	sendPose         bool

	messageCounter uint64
}

func NewDriver(cfg DriverConfig, tx Transmitter, logger *zap.Logger, m *metrics.Metrics) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, tx: tx, log: logger, metrics: m, msgType: MsgUnhandled}
}

// OnBytesReceived classifies raw into the assembled buffer. Async and
// binary frames mark the driver ready. Anything else returns
// ErrNotActionable and clears the buffer, unless a reply is expected or the
// raw stream is on, in which case it is kept for echo only.
func (d *Driver) OnBytesReceived(raw []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.messageCounter++
	t := Classify(raw, d.assembled[:])
	d.metrics.ObserveFrame(t.String())

	if t == MsgAsync && d.cfg.ValidateChecksum {
		if err := VerifyTextChecksum(raw); err != nil {
			clear(d.assembled[:])
			d.length = 0
			d.ready = false
			d.log.Debug("vn310 frame rejected", zap.Error(err))
			return err
		}
	}

	if !t.Actionable() {
		d.log.Debug("vn310 frame not actionable", zap.Stringer("type", t), zap.Int("len", len(raw)))
		// Register replies and $VNERR only reach the run loop when someone
		// is waiting to see them; they never feed the pose.
		if d.responseExpected || d.uartStream {
			d.length = min(len(raw), len(d.assembled))
			d.msgType = t
			d.ready = true
			return ErrNotActionable
		}
		clear(d.assembled[:])
		d.length = 0
		d.ready = false
		return ErrNotActionable
	}

	d.length = min(len(raw), len(d.assembled))
	d.msgType = t
	d.ready = true
	return nil
}

// Ready reports whether a frame is waiting for the run loop.
func (d *Driver) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// MessageType is the type of the pending frame. It is meaningful only
// while Ready is true.
func (d *Driver) MessageType() MessageType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.msgType
}

// Consume hands the pending frame to the caller and returns the driver to
// idle. ok is false when nothing was ready.
func (d *Driver) Consume() (f Frame, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ready {
		return Frame{}, false
	}
	f = Frame{
		Type: d.msgType,
		Data: append([]byte(nil), d.assembled[:d.length]...),
		Echo: d.responseExpected || d.uartStream,
	}
	if f.Echo {
		d.responseExpected = false
	}
	d.ready = false
	return f, true
}

// MessageCount is the number of frames received since start.
func (d *Driver) MessageCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.messageCounter
}

// SetUARTStream turns raw echo of every frame on or off.
func (d *Driver) SetUARTStream(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uartStream = on
	d.responseExpected = false
}

// SetPoseStream turns printing of each decoded pose on or off.
func (d *Driver) SetPoseStream(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.poseStream = on
	d.responseExpected = false
}

// RequestSingle echoes the next frame only.
func (d *Driver) RequestSingle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uartStream = false
	d.responseExpected = true
}

func (d *Driver) SetSendPose(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendPose = on
}

func (d *Driver) SendPose() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sendPose
}

func (d *Driver) PoseStream() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.poseStream
}

func (d *Driver) UARTStream() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uartStream
}

func (d *Driver) ResponseExpected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.responseExpected
}

func (d *Driver) expectResponse() {
	d.mu.Lock()
	d.responseExpected = true
	d.mu.Unlock()
}

// IssueCommand encodes c and transmits it. Transport errors are returned
// as-is, wrapped with the mnemonic; there is no retry.
func (d *Driver) IssueCommand(c Command) error {
	if d.tx == nil {
		return fmt.Errorf("vn310 %s: no transport", c.Mnemonic)
	}
	b := c.Encode(d.cfg.Checksum)
	err := d.tx.Transmit(b)
	d.metrics.ObserveCommand(string(c.Mnemonic), err)
	if err != nil {
		return fmt.Errorf("vn310 %s: %w", c.Mnemonic, err)
	}
	d.log.Debug("vn310 command sent", zap.ByteString("cmd", b))
	return nil
}

func (d *Driver) issue(c Command, err error) error {
	if err != nil {
		return err
	}
	return d.IssueCommand(c)
}

// ReadRegister requests one register; the reply is echoed on the next tick.
func (d *Driver) ReadRegister(id RegisterID) error {
	d.expectResponse()
	return d.IssueCommand(ReadRegisterCommand(id))
}

func (d *Driver) ReadModelNumber() error      { return d.ReadRegister(RegModelNumber) }
func (d *Driver) ReadHardwareRevision() error { return d.ReadRegister(RegHardwareRevision) }
func (d *Driver) ReadSerialNumber() error     { return d.ReadRegister(RegSerialNumber) }
func (d *Driver) ReadFirmwareVersion() error  { return d.ReadRegister(RegFirmwareVersion) }

func (d *Driver) WriteRegister(id RegisterID, values ...int) error {
	return d.issue(WriteRegisterCommand(id, values...))
}

// WriteSettings stores the current register values in non-volatile memory.
func (d *Driver) WriteSettings() error { return d.IssueCommand(WriteSettingsCommand()) }

func (d *Driver) Reset() error { return d.IssueCommand(ResetCommand()) }

func (d *Driver) FactoryReset() error { return d.IssueCommand(FactoryResetCommand()) }

func (d *Driver) PauseOutput() error { return d.IssueCommand(AsyncModeCommand(AsyncModeNone)) }

func (d *Driver) EnableOutputPort1() error { return d.IssueCommand(AsyncModeCommand(AsyncModePort1)) }

func (d *Driver) SetOutputFrequency(hz int) error { return d.issue(OutputFrequencyCommand(hz)) }

func (d *Driver) SetDeviceBaudRate(baud int) error { return d.issue(BaudRateCommand(baud)) }

func (d *Driver) SetAsyncOutput(setting int) error { return d.issue(AsyncOutputTypeCommand(setting)) }

func (d *Driver) BinaryOutputPoll(n int) error { return d.issue(BinaryOutputPollCommand(n)) }

func (d *Driver) SetConfiguration0() error { return d.IssueCommand(Configuration0Command()) }

// SetUARTBaudRate changes the host side of the link. The transport must
// implement BaudSetter.
func (d *Driver) SetUARTBaudRate(baud int) error {
	if !IsValidBaudRate(baud) {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidArgument, baud)
	}
	bs, ok := d.tx.(BaudSetter)
	if !ok {
		return fmt.Errorf("vn310: transport cannot change baud rate")
	}
	return bs.SetBaudRate(baud)
}

// SetAntennaA would write the GNSS antenna A offset (register 57). The
// field layout for this unit has not been confirmed, so nothing is sent.
func (d *Driver) SetAntennaA(x, y, z float64) error {
	d.log.Warn("vn310 antenna A offset not sent: register layout unconfirmed",
		zap.Float64("x", x), zap.Float64("y", y), zap.Float64("z", z))
	return nil
}

// SetAntennaBaseline would write the GNSS compass baseline (register 93).
// Like SetAntennaA it is a no-op.
func (d *Driver) SetAntennaBaseline(x, y, z, xUncert, yUncert, zUncert float64) error {
	d.log.Warn("vn310 antenna baseline not sent: register layout unconfirmed",
		zap.Float64("x", x), zap.Float64("y", y), zap.Float64("z", z),
		zap.Float64("x_uncert", xUncert), zap.Float64("y_uncert", yUncert), zap.Float64("z_uncert", zUncert))
	return nil
}
