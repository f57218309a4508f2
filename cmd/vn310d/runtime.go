package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/abiosoft/ishell"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vn310d/internal/cli"
	"vn310d/internal/config"
	"vn310d/internal/gpio"
	"vn310d/internal/metrics"
	"vn310d/internal/routing"
	"vn310d/internal/serial"
	"vn310d/internal/vectornav"
	"vn310d/internal/web"
)

// framePort is the serial link as the runtime uses it.
type framePort interface {
	Transmit(p []byte) error
	SetBaudRate(baud int) error
	ReadFrames(ctx context.Context, fn func(frame []byte)) error
	Close() error
}

var (
	openPortFn = func(device string, baud int, logger *zap.Logger) (framePort, error) {
		return serial.Open(device, baud, logger)
	}
	openGPIOFn = func(cfg config.GPIOConfig, logger *zap.Logger) (*gpio.Lines, error) {
		return gpio.Open(gpio.Config{
			Chip:        cfg.Chip,
			PowerEnable: cfg.PowerEnable,
			PriREnL:     cfg.PriREnL,
			PriDEn:      cfg.PriDEn,
			SecREnL:     cfg.SecREnL,
			SecDEn:      cfg.SecDEn,
		}, logger)
	}
	newRouterFn = routing.New
	serveFn     = web.Serve

	consoleOut io.Writer = os.Stdout
)

type daemon struct {
	cfg      config.Config
	log      *zap.Logger
	port     framePort
	lines    *gpio.Lines
	router   routing.Router
	driver   *vectornav.Driver
	applet   *vectornav.Applet
	commands *cli.Commands
	handler  http.Handler
	console  io.Writer
}

func newDaemon(ctx context.Context, cfg config.Config, logger *zap.Logger, logs *web.LogBuffer) (*daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &daemon{cfg: cfg, log: logger, console: consoleOut}

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	port, err := openPortFn(cfg.Serial.Device, cfg.Serial.Baud, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Serial.Device, err)
	}
	d.port = port

	if cfg.GPIO.Enabled() {
		lines, err := openGPIOFn(cfg.GPIO, logger)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("gpio: %w", err)
		}
		d.lines = lines
	}

	router, err := newRouterFn(cfg.Routing, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("routing: %w", err)
	}
	d.router = router
	if mq, ok := router.(*routing.MQTTRouter); ok {
		// The client keeps retrying in the background; publishes fail
		// with ErrNotConnected until it succeeds.
		if err := mq.Connect(ctx); err != nil {
			logger.Warn("mqtt connect failed", zap.String("broker", cfg.Routing.Broker), zap.Error(err))
		}
	}

	d.driver = vectornav.NewDriver(vectornav.DriverConfig{
		Checksum:         cfg.VN310.ChecksumMode(),
		ValidateChecksum: cfg.VN310.Validate(),
	}, port, logger, m)
	d.driver.SetSendPose(cfg.VN310.SendPose)
	d.driver.SetUARTStream(cfg.VN310.UARTStream)

	d.applet = vectornav.NewApplet(d.driver, vectornav.AppletConfig{
		Router:  router,
		Console: d.console,
		Logger:  logger,
		Metrics: m,
	})

	d.commands = &cli.Commands{Driver: d.driver, Applet: d.applet, Log: logger}
	if d.lines != nil {
		d.commands.GPIO = d.lines
	}

	if cfg.Web.Enabled() {
		d.handler = web.Handler(d.applet, web.Options{
			Metrics: metrics.Handler(reg),
			Logs:    logs,
			Link: web.Link{
				Device:   cfg.Serial.Device,
				Baud:     cfg.Serial.Baud,
				Checksum: cfg.VN310.ChecksumMode().String(),
				Broker:   redactedBroker(cfg.Routing.Broker),
			},
		})
	}
	return d, nil
}

// Run reads the port, ticks the applet and serves the API until ctx is
// done or one of them fails.
func (d *daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.readFrames(ctx) })

	g.Go(func() error { return d.applet.Run(ctx, d.cfg.VN310.Tick) })

	if d.handler != nil {
		d.log.Info("web listening", zap.String("addr", d.cfg.Web.Listen))
		g.Go(func() error { return serveFn(ctx, d.cfg.Web.Listen, d.handler) })
	}

	if d.cfg.VN310.ConfigureOnStart {
		g.Go(func() error {
			if err := d.applet.ApplyConfiguration0(ctx); err != nil && ctx.Err() == nil {
				d.log.Error("configuration 0 failed", zap.Error(err))
			}
			return nil
		})
	}

	return g.Wait()
}

// RunOnce executes a single command. If the command expects a reply, the
// port is read and the applet ticked until the reply has been echoed or
// wait elapses.
func (d *daemon) RunOnce(ctx context.Context, w io.Writer, wait time.Duration, args ...string) error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.readFrames(gctx) })

	err := d.commands.Exec(ctx, w, args...)
	if err == nil && d.driver.ResponseExpected() {
		err = d.awaitReply(gctx, wait)
	}
	cancel()
	if rerr := g.Wait(); rerr != nil {
		return rerr
	}
	return err
}

func (d *daemon) awaitReply(ctx context.Context, wait time.Duration) error {
	tick := time.NewTicker(d.cfg.VN310.Tick)
	defer tick.Stop()
	timeout := time.NewTimer(wait)
	defer timeout.Stop()
	for {
		d.applet.OnTick()
		if !d.driver.ResponseExpected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("no reply from %s within %s", d.cfg.Serial.Device, wait)
		case <-tick.C:
		}
	}
}

func (d *daemon) readFrames(ctx context.Context) error {
	err := d.port.ReadFrames(ctx, func(frame []byte) {
		err := d.driver.OnBytesReceived(frame)
		if err != nil && !errors.Is(err, vectornav.ErrNotActionable) {
			d.log.Debug("vn310 frame dropped", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	return nil
}

func (d *daemon) Shell() *ishell.Shell {
	return cli.NewShell(d.commands)
}

func (d *daemon) Close() {
	if d.router != nil {
		if err := d.router.Close(); err != nil {
			d.log.Warn("router close", zap.Error(err))
		}
	}
	if d.lines != nil {
		if err := d.lines.Close(); err != nil {
			d.log.Warn("gpio close", zap.Error(err))
		}
	}
	if d.port != nil {
		if err := d.port.Close(); err != nil {
			d.log.Warn("serial close", zap.Error(err))
		}
	}
}

func redactedBroker(broker string) string {
	u, err := url.Parse(broker)
	if err != nil {
		return ""
	}
	return u.Redacted()
}
