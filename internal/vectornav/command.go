package vectornav

import (
	"fmt"
	"strconv"
	"strings"
)

// Mnemonic is the three-letter command name following "$VN".
type Mnemonic string

const (
	CmdReadRegister     Mnemonic = "RRG"
	CmdWriteRegister    Mnemonic = "WRG"
	CmdWriteSettings    Mnemonic = "WNV"
	CmdReset            Mnemonic = "RST"
	CmdFactoryReset     Mnemonic = "RFS"
	CmdAsyncMode        Mnemonic = "ASY"
	CmdBinaryOutputPoll Mnemonic = "BOM"
)

const (
	commandHeader = "$VN"
	crlf          = "\r\n"
)

// Command is one outgoing request. Args are already formatted fields; they
// are joined with commas after the mnemonic.
type Command struct {
	Mnemonic Mnemonic
	Args     []string
}

// Encode renders c as "$VN<CMD>[,<args>]*<checksum>\r\n". The checksum
// covers everything between '$' and '*'.
func (c Command) Encode(mode ChecksumMode) []byte {
	var body strings.Builder
	body.WriteString(commandHeader[1:])
	body.WriteString(string(c.Mnemonic))
	for _, a := range c.Args {
		body.WriteByte(',')
		body.WriteString(a)
	}
	b := body.String()

	out := make([]byte, 0, len(b)+len(crlf)+6)
	out = append(out, '$')
	out = append(out, b...)
	out = append(out, '*')
	out = append(out, mode.trailer([]byte(b))...)
	out = append(out, crlf...)
	return out
}

func (c Command) String() string {
	return strings.TrimSuffix(string(c.Encode(ChecksumNone)), crlf)
}

func decimalArgs(values ...int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}

// ReadRegisterCommand builds $VNRRG,<id>.
func ReadRegisterCommand(id RegisterID) Command {
	return Command{Mnemonic: CmdReadRegister, Args: decimalArgs(int(id))}
}

// WriteRegisterCommand builds $VNWRG,<id>,<v0>,<v1>,... with every value
// written as its own decimal field.
func WriteRegisterCommand(id RegisterID, values ...int) (Command, error) {
	if len(values) == 0 {
		return Command{}, fmt.Errorf("%w: write register %d needs at least one value", ErrInvalidArgument, id)
	}
	return Command{Mnemonic: CmdWriteRegister, Args: decimalArgs(append([]int{int(id)}, values...)...)}, nil
}

func WriteSettingsCommand() Command { return Command{Mnemonic: CmdWriteSettings} }

func ResetCommand() Command { return Command{Mnemonic: CmdReset} }

func FactoryResetCommand() Command { return Command{Mnemonic: CmdFactoryReset} }

// AsyncModeCommand builds $VNASY,<mode>, which pauses (0) or resumes async output.
func AsyncModeCommand(mode AsyncMode) Command {
	return Command{Mnemonic: CmdAsyncMode, Args: decimalArgs(int(mode))}
}

// BinaryOutputPollCommand builds $VNBOM,<n> for binary output register n (1..3).
func BinaryOutputPollCommand(n int) (Command, error) {
	if n < 1 || n > 3 {
		return Command{}, fmt.Errorf("%w: binary output register %d not in 1..3", ErrInvalidArgument, n)
	}
	return Command{Mnemonic: CmdBinaryOutputPoll, Args: decimalArgs(n)}, nil
}

// OutputFrequencyCommand writes the async data output frequency register.
func OutputFrequencyCommand(hz int) (Command, error) {
	if !IsValidOutputFrequency(hz) {
		return Command{}, fmt.Errorf("%w: output frequency %d Hz", ErrInvalidArgument, hz)
	}
	return WriteRegisterCommand(RegAsyncDataOutputFrequency, hz)
}

// BaudRateCommand writes the device serial baud rate register.
func BaudRateCommand(baud int) (Command, error) {
	if !IsValidBaudRate(baud) {
		return Command{}, fmt.Errorf("%w: baud rate %d", ErrInvalidArgument, baud)
	}
	return WriteRegisterCommand(RegSerialBaudRate, baud)
}

// AsyncOutputTypeCommand writes the async data output type register. 0
// disables async ASCII output.
func AsyncOutputTypeCommand(setting int) (Command, error) {
	if setting < 0 {
		return Command{}, fmt.Errorf("%w: async output type %d", ErrInvalidArgument, setting)
	}
	return WriteRegisterCommand(RegAsyncDataOutputType, setting)
}

// Configuration0Command enables binary output register 1 on port 1 at
// rate divisor 4 with the time and attitude groups.
func Configuration0Command() Command {
	return Command{
		Mnemonic: CmdWriteRegister,
		Args: []string{
			strconv.Itoa(int(RegBinaryOutput1)),
			strconv.Itoa(int(AsyncModePort1)),
			strconv.Itoa(int(RateDivisor4)),
			strconv.FormatInt(config0OutputGroup, 16),
			strconv.FormatInt(config0TimeFields, 16),
			strconv.FormatInt(config0AttFields, 16),
		},
	}
}
