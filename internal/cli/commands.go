// Package cli implements the operator command tree for the VN-310 driver.
//
// Commands are dispatched from plain argument lists so they can be driven
// from an interactive ishell session or from a one-shot invocation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"go.uber.org/zap"

	"vn310d/internal/vectornav"
)

// ErrUsage is returned when a command line does not match the tree.
var ErrUsage = errors.New("usage")

// Lines is the GPIO surface the power and output commands drive.
type Lines interface {
	PowerOn() error
	PowerOff() error
	HasTransceivers() bool
	EnableTransceivers() error
	DisableTransceivers() error
}

// Commands binds the command tree to a running driver and applet.
type Commands struct {
	Driver *vectornav.Driver
	Applet *vectornav.Applet
	// GPIO may be nil when no lines are configured.
	GPIO Lines
	Log  *zap.Logger
}

const helpText = `vn310 commands:
  cli stream <start|stop|single>
  cli pose_stream <start|stop>
  output freq <hz>
  output async <setting>
  output <enable|disable|pause>
  read <firmware_version|hardware_revision|model_number|serial_number>
  register read <id>
  register write <id> <value>...
  settings config <n>
  settings device reset
  settings device baud <baud>
  settings uart baud <baud>
  settings factory reset
  settings set ant a <x> <y> <z>
  settings set ant b <x> <y> <z> <xu> <yu> <zu>
  settings write
  power <on|off>
  override pose <yaw> <pitch> <roll>
  override loc <lat> <lon>
  feed <on|off>
`

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...)
}

// Exec runs one command line. Output for the operator goes to w.
func (c *Commands) Exec(ctx context.Context, w io.Writer, args ...string) error {
	if c.Log != nil {
		c.Log.Debug("vn310 command", zap.Strings("args", args))
	}
	if len(args) == 0 || args[0] == "help" {
		_, err := io.WriteString(w, helpText)
		return err
	}
	switch args[0] {
	case "cli":
		return c.execCLI(w, args[1:])
	case "output":
		return c.execOutput(w, args[1:])
	case "read":
		return c.execRead(args[1:])
	case "register":
		return c.execRegister(args[1:])
	case "settings":
		return c.execSettings(ctx, w, args[1:])
	case "power":
		return c.execPower(w, args[1:])
	case "override":
		return c.execOverride(w, args[1:])
	case "feed":
		return c.execFeed(w, args[1:])
	}
	return usage("unknown command %q", args[0])
}

func (c *Commands) execCLI(w io.Writer, args []string) error {
	if len(args) != 2 {
		return usage("cli <stream|pose_stream> <start|stop|single>")
	}
	d := c.Driver
	switch args[0] + " " + args[1] {
	case "stream start":
		d.SetUARTStream(true)
	case "stream stop":
		d.SetUARTStream(false)
	case "stream single":
		d.RequestSingle()
	case "pose_stream start":
		d.SetPoseStream(true)
	case "pose_stream stop":
		d.SetPoseStream(false)
	default:
		return usage("cli %s", strings.Join(args, " "))
	}
	fmt.Fprintf(w, "uart stream: %t, pose stream: %t\n", d.UARTStream(), d.PoseStream())
	return nil
}

func (c *Commands) execOutput(w io.Writer, args []string) error {
	if len(args) == 0 {
		return usage("output <freq|async|enable|disable|pause>")
	}
	switch args[0] {
	case "freq":
		hz, err := intArg(args, 1, "output freq <hz>")
		if err != nil {
			return err
		}
		if !vectornav.IsValidOutputFrequency(hz) {
			return usage("output freq must be one of %v", vectornav.ValidOutputFrequencies())
		}
		return c.Driver.SetOutputFrequency(hz)
	case "async":
		n, err := intArg(args, 1, "output async <setting>")
		if err != nil {
			return err
		}
		return c.Driver.SetAsyncOutput(n)
	case "enable":
		if c.GPIO != nil {
			if err := c.GPIO.EnableTransceivers(); err != nil {
				return err
			}
		}
		return c.Driver.EnableOutputPort1()
	case "disable":
		if c.GPIO == nil || !c.GPIO.HasTransceivers() {
			fmt.Fprintln(w, "no transceiver lines configured")
			return nil
		}
		return c.GPIO.DisableTransceivers()
	case "pause":
		return c.Driver.PauseOutput()
	}
	return usage("output %s", args[0])
}

func (c *Commands) execRead(args []string) error {
	if len(args) != 1 {
		return usage("read <firmware_version|hardware_revision|model_number|serial_number>")
	}
	switch args[0] {
	case "firmware_version":
		return c.Driver.ReadFirmwareVersion()
	case "hardware_revision":
		return c.Driver.ReadHardwareRevision()
	case "model_number":
		return c.Driver.ReadModelNumber()
	case "serial_number":
		return c.Driver.ReadSerialNumber()
	}
	return usage("read %s", args[0])
}

func (c *Commands) execRegister(args []string) error {
	if len(args) < 2 {
		return usage("register <read|write> <id> [value...]")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil || id < 0 {
		return usage("register id %q", args[1])
	}
	switch args[0] {
	case "read":
		if len(args) != 2 {
			return usage("register read <id>")
		}
		return c.Driver.ReadRegister(vectornav.RegisterID(id))
	case "write":
		vals, err := ints(args[2:])
		if err != nil {
			return err
		}
		if len(vals) == 0 {
			return usage("register write <id> <value>...")
		}
		return c.Driver.WriteRegister(vectornav.RegisterID(id), vals...)
	}
	return usage("register %s", args[0])
}

func (c *Commands) execSettings(ctx context.Context, w io.Writer, args []string) error {
	line := strings.Join(args, " ")
	switch {
	case len(args) == 2 && args[0] == "config":
		n, err := strconv.Atoi(args[1])
		if err != nil || n != 0 {
			return usage("only configuration 0 is defined")
		}
		if err := c.Applet.ApplyConfiguration0(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "configuration 0 applied")
		return nil
	case line == "device reset":
		return c.Driver.Reset()
	case len(args) == 3 && args[0] == "device" && args[1] == "baud":
		baud, err := baudArg(args[2])
		if err != nil {
			return err
		}
		return c.Driver.SetDeviceBaudRate(baud)
	case len(args) == 3 && args[0] == "uart" && args[1] == "baud":
		baud, err := baudArg(args[2])
		if err != nil {
			return err
		}
		return c.Driver.SetUARTBaudRate(baud)
	case line == "factory reset":
		return c.Driver.FactoryReset()
	case line == "write":
		return c.Driver.WriteSettings()
	case len(args) >= 3 && args[0] == "set" && args[1] == "ant":
		return c.execAntenna(args[2:])
	}
	return usage("settings %s", line)
}

func (c *Commands) execAntenna(args []string) error {
	switch {
	case len(args) == 4 && args[0] == "a":
		v, err := floats(args[1:])
		if err != nil {
			return err
		}
		return c.Driver.SetAntennaA(v[0], v[1], v[2])
	case len(args) == 7 && args[0] == "b":
		v, err := floats(args[1:])
		if err != nil {
			return err
		}
		return c.Driver.SetAntennaBaseline(v[0], v[1], v[2], v[3], v[4], v[5])
	}
	return usage("settings set ant <a x y z|b x y z xu yu zu>")
}

func (c *Commands) execPower(w io.Writer, args []string) error {
	if len(args) != 1 {
		return usage("power <on|off>")
	}
	if c.GPIO == nil {
		return fmt.Errorf("power: no gpio lines configured")
	}
	var err error
	switch args[0] {
	case "on":
		err = c.GPIO.PowerOn()
	case "off":
		err = c.GPIO.PowerOff()
	default:
		return usage("power %s", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "power %s\n", args[0])
	return nil
}

func (c *Commands) execOverride(w io.Writer, args []string) error {
	if len(args) == 0 {
		return usage("override <pose|loc> ...")
	}
	switch args[0] {
	case "pose":
		if len(args) != 4 {
			return usage("override pose <yaw> <pitch> <roll>")
		}
		v, err := floats(args[1:])
		if err != nil {
			return err
		}
		p := c.Applet.OverridePose(v[0], v[1], v[2])
		fmt.Fprintf(w, "pose yaw=%.3f pitch=%.3f roll=%.3f\n", p.Yaw, p.Pitch, p.Roll)
		return nil
	case "loc":
		if len(args) != 3 {
			return usage("override loc <lat> <lon>")
		}
		v, err := floats(args[1:])
		if err != nil {
			return err
		}
		if v[0] < -90 || v[0] > 90 || v[1] < -180 || v[1] > 180 {
			return usage("lat must be within [-90,90] and lon within [-180,180]")
		}
		p := c.Applet.OverrideLocation(v[0], v[1])
		fmt.Fprintf(w, "location lat=%.8f lon=%.8f\n", p.Latitude, p.Longitude)
		return nil
	}
	return usage("override %s", args[0])
}

func (c *Commands) execFeed(w io.Writer, args []string) error {
	if len(args) != 1 {
		return usage("feed <on|off>")
	}
	switch args[0] {
	case "on":
		c.Applet.SetFeed(true)
	case "off":
		c.Applet.SetFeed(false)
	default:
		return usage("feed %s", args[0])
	}
	fmt.Fprintf(w, "feed %s\n", args[0])
	return nil
}

func intArg(args []string, i int, form string) (int, error) {
	if len(args) != i+1 {
		return 0, usage("%s", form)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, usage("%s: %q is not an integer", form, args[i])
	}
	return n, nil
}

func baudArg(s string) (int, error) {
	baud, err := strconv.Atoi(s)
	if err != nil || !vectornav.IsValidBaudRate(baud) {
		return 0, usage("baud must be one of %v", vectornav.ValidBaudRates())
	}
	return baud, nil
}

func ints(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, usage("%q is not an integer", a)
		}
		out[i] = n
	}
	return out, nil
}

func floats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, usage("%q is not a finite number", a)
		}
		out[i] = f
	}
	return out, nil
}

// Cmd wraps the tree as a single ishell command named "vn310".
func (c *Commands) Cmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name:     "vn310",
		Help:     "VN-310 control, 'vn310 help' for the command tree",
		LongHelp: helpText,
		Func: func(sc *ishell.Context) {
			if err := c.Exec(context.Background(), contextWriter{sc}, sc.Args...); err != nil {
				sc.Err(err)
			}
		},
	}
}

// NewShell returns an interactive shell with the vn310 command installed.
func NewShell(c *Commands) *ishell.Shell {
	s := ishell.New()
	s.SetPrompt("vn310> ")
	s.AddCmd(c.Cmd())
	return s
}

type contextWriter struct{ c *ishell.Context }

func (w contextWriter) Write(p []byte) (int, error) {
	w.c.Print(string(p))
	return len(p), nil
}
