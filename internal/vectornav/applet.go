package vectornav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vn310d/internal/metrics"
)

// Group0 is the decoded content of a configuration-0 binary frame.
// AngularRate is rad/s as sent by the device.
type Group0 struct {
	InsStatus   uint16
	Latitude    float64
	Longitude   float64
	Yaw         float64
	Pitch       float64
	Roll        float64
	AngularRate [3]float64
}

// BinaryDecoder decodes configuration-0 binary output. The payload layout
// depends on the registers written by SetConfiguration0 and lives outside
// this package. frame[0] is the transport lead byte and frame[1] the 0xFA
// sync byte.
type BinaryDecoder interface {
	DecodeGroup0(frame []byte) (Group0, error)
}

// Router delivers an encoded pose to a board/tile on the message bus.
type Router interface {
	RouteMessage(payload []byte, board, tile int) error
}

type AppletConfig struct {
	Decoder BinaryDecoder
	Router  Router
	// Console receives echoed frames and the pose stream. Nil discards.
	Console io.Writer
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Applet is the run loop for one device. It owns the current pose.
type Applet struct {
	drv     *Driver
	decoder BinaryDecoder
	router  Router
	console io.Writer
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// Routing failures at the tick rate would flood the log; warnings are
	// limited and the skipped count rides on the next one.
	warnLimit  *rate.Limiter
	suppressed atomic.Uint64

	mu         sync.Mutex
	pose       Pose
	lastUpdate time.Time
	published  uint64
}

func NewApplet(drv *Driver, cfg AppletConfig) *Applet {
	a := &Applet{
		drv:     drv,
		decoder: cfg.Decoder,
		router:  cfg.Router,
		console: cfg.Console,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,

		warnLimit: rate.NewLimiter(rate.Every(time.Second), 10),
	}
	if a.console == nil {
		a.console = io.Discard
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Applet) Driver() *Driver { return a.drv }

// Pose returns the last decoded (unwrapped) pose.
func (a *Applet) Pose() Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pose
}

// OnTick consumes at most one ready frame. It never blocks on the
// transport and is a no-op when nothing is ready.
func (a *Applet) OnTick() {
	f, ok := a.drv.Consume()
	if !ok {
		return
	}
	if f.Echo {
		a.echo(f)
	}

	a.mu.Lock()
	next := a.pose
	a.mu.Unlock()

	var err error
	switch f.Type {
	case MsgAsync:
		err = HandlePoseMessage(string(f.Data), &next)
		if err == nil {
			next.Rate = [3]float64{}
		}
	case MsgBinary:
		err = a.applyBinary(f.Data, &next)
	default:
		return
	}
	if err != nil {
		result := "error"
		if IsUnhandled(err) {
			result = "unhandled"
		}
		a.metrics.ObserveParse(result)
		a.log.Debug("vn310 decode failed", zap.Stringer("type", f.Type), zap.Error(err))
		return
	}
	a.metrics.ObserveParse("ok")

	a.mu.Lock()
	a.pose = next
	a.lastUpdate = a.now()
	a.mu.Unlock()

	if a.drv.PoseStream() {
		a.printPose(next)
	}
	a.publish(next, false)
}

func (a *Applet) applyBinary(frame []byte, p *Pose) error {
	if a.decoder == nil {
		return ErrNoDecoder
	}
	g, err := a.decoder.DecodeGroup0(frame)
	if err != nil {
		return err
	}
	p.InsStatus = g.InsStatus
	p.Latitude = g.Latitude
	p.Longitude = g.Longitude
	p.Yaw = g.Yaw
	p.Pitch = g.Pitch
	p.Roll = g.Roll
	for i, r := range g.AngularRate {
		p.Rate[i] = RadiansToDegrees(r)
	}
	return nil
}

func (a *Applet) echo(f Frame) {
	data := f.Data
	if f.Type != MsgBinary {
		data = []byte(trimRecord(string(data)) + "\n")
	}
	if _, err := a.console.Write(data); err != nil {
		a.log.Debug("vn310 console write failed", zap.Error(err))
	}
}

func (a *Applet) printPose(p Pose) {
	fmt.Fprintf(a.console, "Yaw: %0.3f Pitch: %0.3f Roll: %0.3f Lat: %0.6f Lng: %0.6f Status: 0x%04X (%s)\n",
		p.Yaw, p.Pitch, p.Roll, p.Latitude, p.Longitude, p.InsStatus, InsMode(p.InsStatus))
}

// publish sends the normalized pose when the feed is enabled or forced is
// set. Routing failures are logged and dropped.
func (a *Applet) publish(p Pose, forced bool) {
	if !a.drv.SendPose() && !forced {
		return
	}
	if a.router == nil {
		return
	}
	payload := EncodePoseMessage(p.normalized())
	if err := a.router.RouteMessage(payload, BoardACONMajInt, TileUnspecified); err != nil {
		a.metrics.ObservePublish("error")
		if a.warnLimit.Allow() {
			a.log.Warn("routing failed for vn310 pose message",
				zap.Error(err), zap.Uint64("suppressed", a.suppressed.Swap(0)))
		} else {
			a.suppressed.Add(1)
		}
		return
	}
	a.metrics.ObservePublish("ok")
	a.mu.Lock()
	a.published++
	a.mu.Unlock()
}

// OverridePose replaces the attitude until the next device update and
// publishes it regardless of the feed setting. Callers reject non-finite
// angles; Wrap360 maps them to NaN.
func (a *Applet) OverridePose(yaw, pitch, roll float64) Pose {
	a.mu.Lock()
	a.pose.Yaw = yaw
	a.pose.Pitch = pitch
	a.pose.Roll = roll
	p := a.pose
	a.mu.Unlock()
	a.publish(p, true)
	return p
}

// OverrideLocation replaces latitude/longitude until the next device
// update and publishes regardless of the feed setting.
func (a *Applet) OverrideLocation(lat, lon float64) Pose {
	a.mu.Lock()
	a.pose.Latitude = lat
	a.pose.Longitude = lon
	p := a.pose
	a.mu.Unlock()
	a.publish(p, true)
	return p
}

// SetFeed enables or disables forwarding of decoded poses.
func (a *Applet) SetFeed(on bool) { a.drv.SetSendPose(on) }

// Run calls OnTick every interval until ctx is done.
func (a *Applet) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("vn310: tick interval must be > 0")
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.OnTick()
		}
	}
}

// ApplyConfiguration0 switches the device and host to 115200 baud binary
// output: async ASCII off, device baud, host baud, then the binary output
// register. It stops at the first failure.
func (a *Applet) ApplyConfiguration0(ctx context.Context) error {
	const baud = 115200
	steps := []struct {
		delay time.Duration
		name  string
		run   func() error
	}{
		{2 * time.Millisecond, "async output off", func() error { return a.drv.SetAsyncOutput(0) }},
		{4 * time.Millisecond, "device baud", func() error { return a.drv.SetDeviceBaudRate(baud) }},
		{4 * time.Millisecond, "uart baud", func() error { return a.drv.SetUARTBaudRate(baud) }},
		{4 * time.Millisecond, "configuration 0", a.drv.SetConfiguration0},
	}
	for _, s := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
		if err := s.run(); err != nil {
			return fmt.Errorf("vn310 configuration 0: %s: %w", s.name, err)
		}
	}
	return nil
}

// Status is a point-in-time view for the web API.
type Status struct {
	Pose             Pose       `json:"pose"`
	InsMode          string     `json:"ins_mode"`
	GNSSFix          bool       `json:"gnss_fix"`
	GNSSError        bool       `json:"gnss_error"`
	GNSSCompass      bool       `json:"gnss_compass"`
	LastUpdate       *time.Time `json:"last_update,omitempty"`
	Messages         uint64     `json:"messages"`
	Published        uint64     `json:"published"`
	SendPose         bool       `json:"send_pose"`
	UARTStream       bool       `json:"uart_stream"`
	PoseStream       bool       `json:"pose_stream"`
	ResponseExpected bool       `json:"response_expected"`
}

func (a *Applet) Status() Status {
	a.mu.Lock()
	p, last, published := a.pose, a.lastUpdate, a.published
	a.mu.Unlock()
	var lastUpdate *time.Time
	if !last.IsZero() {
		lastUpdate = &last
	}
	return Status{
		Pose:             p,
		InsMode:          InsMode(p.InsStatus),
		GNSSFix:          HasGNSSFix(p.InsStatus),
		GNSSError:        HasGNSSError(p.InsStatus),
		GNSSCompass:      HasGNSSCompass(p.InsStatus),
		LastUpdate:       lastUpdate,
		Messages:         a.drv.MessageCount(),
		Published:        published,
		SendPose:         a.drv.SendPose(),
		UARTStream:       a.drv.UARTStream(),
		PoseStream:       a.drv.PoseStream(),
		ResponseExpected: a.drv.ResponseExpected(),
	}
}

// IsUnhandled reports whether err only means the record had no parser.
func IsUnhandled(err error) bool { return errors.Is(err, ErrUnhandledFormat) }
