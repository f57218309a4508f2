package vectornav

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"vn310d/internal/metrics"
)

type fakeTx struct {
	sent [][]byte
	err  error
	baud int
}

func (f *fakeTx) Transmit(p []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, append([]byte(nil), p...))
	return nil
}

type fakeBaudTx struct {
	fakeTx
}

func (f *fakeBaudTx) SetBaudRate(baud int) error {
	f.baud = baud
	return nil
}

func (f *fakeTx) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return string(f.sent[len(f.sent)-1])
}

func TestDriver_AsyncReadyConsume(t *testing.T) {
	d := NewDriver(DriverConfig{}, &fakeTx{}, nil, nil)
	require.False(t, d.Ready())

	require.NoError(t, d.OnBytesReceived([]byte(exampleINS+"\r\n")))
	require.True(t, d.Ready())
	require.Equal(t, MsgAsync, d.MessageType())

	f, ok := d.Consume()
	require.True(t, ok)
	require.Equal(t, MsgAsync, f.Type)
	require.Equal(t, exampleINS+"\r\n", string(f.Data))
	require.False(t, f.Echo)
	require.False(t, d.Ready())

	_, ok = d.Consume()
	require.False(t, ok)
}

func TestDriver_BinaryReady(t *testing.T) {
	d := NewDriver(DriverConfig{}, nil, nil, nil)
	require.NoError(t, d.OnBytesReceived(binaryFrame(1, 2, 3)))
	require.Equal(t, MsgBinary, d.MessageType())
	f, ok := d.Consume()
	require.True(t, ok)
	require.Equal(t, binaryFrame(1, 2, 3), f.Data)
}

func TestDriver_NotActionableClearsReady(t *testing.T) {
	d := NewDriver(DriverConfig{}, nil, nil, nil)
	require.NoError(t, d.OnBytesReceived([]byte(exampleINS)))

	err := d.OnBytesReceived([]byte("$VNRRG,01,VN-310*XX\r\n"))
	require.ErrorIs(t, err, ErrNotActionable)
	require.False(t, d.Ready())

	err = d.OnBytesReceived([]byte("$VNERR,03*XX\r\n"))
	require.ErrorIs(t, err, ErrNotActionable)
	require.False(t, d.Ready())
	require.Equal(t, uint64(3), d.MessageCount())
}

func TestDriver_LatestFrameWins(t *testing.T) {
	d := NewDriver(DriverConfig{}, nil, nil, nil)
	require.NoError(t, d.OnBytesReceived([]byte(exampleINS)))
	require.NoError(t, d.OnBytesReceived(binaryFrame(7)))
	f, ok := d.Consume()
	require.True(t, ok)
	require.Equal(t, MsgBinary, f.Type)
	require.Equal(t, binaryFrame(7), f.Data)
}

func TestDriver_ReadRegisterEchoesReply(t *testing.T) {
	tx := &fakeTx{}
	d := NewDriver(DriverConfig{}, tx, nil, nil)

	require.NoError(t, d.ReadRegister(RegSerialBaudRate))
	require.Equal(t, "$VNRRG,5*XX\r\n", tx.last())
	require.True(t, d.ResponseExpected())

	err := d.OnBytesReceived([]byte("$VNRRG,05,115200*XX\r\n"))
	require.ErrorIs(t, err, ErrNotActionable)
	require.True(t, d.Ready())

	f, ok := d.Consume()
	require.True(t, ok)
	require.True(t, f.Echo)
	require.Equal(t, MsgUnhandled, f.Type)
	require.False(t, d.ResponseExpected())

	// Nothing pending any more, so the next reply is dropped.
	require.ErrorIs(t, d.OnBytesReceived([]byte("$VNRRG,05,115200*XX\r\n")), ErrNotActionable)
	require.False(t, d.Ready())
}

func TestDriver_ModeSetters(t *testing.T) {
	d := NewDriver(DriverConfig{}, &fakeTx{}, nil, nil)

	d.RequestSingle()
	require.True(t, d.ResponseExpected())
	require.False(t, d.UARTStream())

	d.SetUARTStream(true)
	require.True(t, d.UARTStream())
	require.False(t, d.ResponseExpected())

	require.NoError(t, d.OnBytesReceived([]byte(exampleINS)))
	f, _ := d.Consume()
	require.True(t, f.Echo)
	require.True(t, d.UARTStream(), "stream stays on after echo")

	d.RequestSingle()
	d.SetPoseStream(true)
	require.True(t, d.PoseStream())
	require.False(t, d.ResponseExpected())

	require.False(t, d.SendPose())
	d.SetSendPose(true)
	require.True(t, d.SendPose())
}

func TestDriver_ValidateChecksum(t *testing.T) {
	d := NewDriver(DriverConfig{ValidateChecksum: true}, nil, nil, nil)
	require.NoError(t, d.OnBytesReceived([]byte(exampleINS+"\r\n")))

	bad := exampleINS[:len(exampleINS)-2] + "66\r\n"
	require.ErrorIs(t, d.OnBytesReceived([]byte(bad)), ErrChecksumMismatch)
	require.False(t, d.Ready())

	require.NoError(t, d.OnBytesReceived([]byte("$VNINS,1,2,0,1,2,3*XX\r\n")))
	require.True(t, d.Ready())
}

func TestDriver_CommandsUseChecksumMode(t *testing.T) {
	tx := &fakeTx{}
	d := NewDriver(DriverConfig{Checksum: Checksum8}, tx, nil, nil)
	require.NoError(t, d.ReadRegister(RegSerialBaudRate))
	require.Equal(t, "$VNRRG,5*46\r\n", tx.last())
	require.NoError(t, d.SetConfiguration0())
	require.Equal(t, "$VNWRG,75,1,4,12,3,6*5B\r\n", tx.last())
}

func TestDriver_CommandFamily(t *testing.T) {
	tx := &fakeTx{}
	d := NewDriver(DriverConfig{}, tx, nil, nil)

	steps := []struct {
		run  func() error
		want string
	}{
		{d.ReadModelNumber, "$VNRRG,1*XX\r\n"},
		{d.ReadHardwareRevision, "$VNRRG,2*XX\r\n"},
		{d.ReadSerialNumber, "$VNRRG,3*XX\r\n"},
		{d.ReadFirmwareVersion, "$VNRRG,4*XX\r\n"},
		{d.WriteSettings, "$VNWNV*XX\r\n"},
		{d.Reset, "$VNRST*XX\r\n"},
		{d.FactoryReset, "$VNRFS*XX\r\n"},
		{d.PauseOutput, "$VNASY,0*XX\r\n"},
		{d.EnableOutputPort1, "$VNASY,1*XX\r\n"},
		{func() error { return d.SetOutputFrequency(200) }, "$VNWRG,7,200*XX\r\n"},
		{func() error { return d.SetDeviceBaudRate(230400) }, "$VNWRG,5,230400*XX\r\n"},
		{func() error { return d.SetAsyncOutput(0) }, "$VNWRG,6,0*XX\r\n"},
		{func() error { return d.BinaryOutputPoll(1) }, "$VNBOM,1*XX\r\n"},
		{func() error { return d.WriteRegister(RegUserTag, 7) }, "$VNWRG,0,7*XX\r\n"},
	}
	for _, s := range steps {
		require.NoError(t, s.run())
		require.Equal(t, s.want, tx.last())
	}
}

func TestDriver_InvalidArgumentsSendNothing(t *testing.T) {
	tx := &fakeTx{}
	d := NewDriver(DriverConfig{}, tx, nil, nil)
	require.ErrorIs(t, d.SetOutputFrequency(33), ErrInvalidArgument)
	require.ErrorIs(t, d.SetDeviceBaudRate(1200), ErrInvalidArgument)
	require.ErrorIs(t, d.BinaryOutputPoll(0), ErrInvalidArgument)
	require.ErrorIs(t, d.WriteRegister(RegUserTag), ErrInvalidArgument)
	require.ErrorIs(t, d.SetUARTBaudRate(1200), ErrInvalidArgument)
	require.Empty(t, tx.sent)
}

func TestDriver_TransportErrorIsReturned(t *testing.T) {
	boom := errors.New("write: broken pipe")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := NewDriver(DriverConfig{}, &fakeTx{err: boom}, nil, m)

	err := d.Reset()
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "RST")
	require.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("RST", "error")))

	d = NewDriver(DriverConfig{}, nil, nil, nil)
	require.Error(t, d.Reset())
}

func TestDriver_SetUARTBaudRate(t *testing.T) {
	d := NewDriver(DriverConfig{}, &fakeTx{}, nil, nil)
	require.Error(t, d.SetUARTBaudRate(115200), "plain transmitter cannot change rate")

	tx := &fakeBaudTx{}
	d = NewDriver(DriverConfig{}, tx, nil, nil)
	require.NoError(t, d.SetUARTBaudRate(115200))
	require.Equal(t, 115200, tx.baud)
	require.Empty(t, tx.sent)
}

func TestDriver_AntennaSettersSendNothing(t *testing.T) {
	tx := &fakeTx{}
	d := NewDriver(DriverConfig{}, tx, nil, nil)
	require.NoError(t, d.SetAntennaA(0.1, 0.2, 0.3))
	require.NoError(t, d.SetAntennaBaseline(1, 0, 0, 0.038, 0.038, 0.038))
	require.Empty(t, tx.sent)
}

func TestDriver_FrameMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := NewDriver(DriverConfig{}, nil, nil, m)
	_ = d.OnBytesReceived([]byte(exampleINS))
	_ = d.OnBytesReceived([]byte(exampleINS))
	_ = d.OnBytesReceived([]byte("$VNERR,03*XX"))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Frames.WithLabelValues("async")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("error")))
}
