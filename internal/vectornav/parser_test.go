package vectornav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseINS_Example(t *testing.T) {
	var p Pose
	require.NoError(t, ParseINS(exampleINS, &p))
	require.Equal(t, uint16(0x8206), p.InsStatus)
	require.Equal(t, 82.014, p.Yaw)
	require.Equal(t, 0.014, p.Pitch)
	require.Equal(t, 1.063, p.Roll)
	require.Equal(t, 51.51992529, p.Latitude)
	require.Equal(t, -0.11006359, p.Longitude)
	require.Zero(t, p.Altitude, "altitude is observed but not stored")
	require.Equal(t, 82.014, Wrap360(p.Yaw))
}

func TestParseINS_FromAssembledBuffer(t *testing.T) {
	buf := make([]byte, AssembledBufferSize)
	Classify([]byte(exampleINS+"\r\n"), buf)
	var p Pose
	require.NoError(t, ParseINS(string(buf), &p))
	require.Equal(t, -0.11006359, p.Longitude)
}

func TestParseINS_MinimumThroughRoll(t *testing.T) {
	p := Pose{Latitude: 10, Longitude: 20}
	require.NoError(t, ParseINS("$VNINS,1,2,0004,-170.5,+10.0,-5.25*00", &p))
	require.Equal(t, -170.5, p.Yaw)
	require.Equal(t, 10.0, p.Pitch)
	require.Equal(t, -5.25, p.Roll)
	require.Equal(t, uint16(0x0004), p.InsStatus)
	require.Equal(t, 10.0, p.Latitude, "absent fields keep previous values")
	require.Equal(t, 20.0, p.Longitude)
}

func TestParseINS_ShortRecordLeavesPoseUntouched(t *testing.T) {
	orig := Pose{Roll: 1, Pitch: 2, Yaw: 3, Latitude: 4, Longitude: 5, InsStatus: 6}
	for _, rec := range []string{
		"$VNINS,1,2,8206,+082.014,+000.014*00",
		"$VNINS",
		"",
	} {
		p := orig
		err := ParseINS(rec, &p)
		require.ErrorIs(t, err, ErrMalformed, rec)
		require.Equal(t, orig, p, rec)
	}
}

func TestParseINS_BadFieldLeavesPoseUntouched(t *testing.T) {
	orig := Pose{Yaw: 3}
	p := orig
	err := ParseINS("$VNINS,1,2,8206,+082.014,abc,+001.063,+51.5,-0.1*00", &p)
	require.ErrorIs(t, err, ErrMalformed)
	require.Equal(t, orig, p)

	err = ParseINS("$VNINS,1,2,XYZ,+082.014,+0,+001.063*00", &p)
	require.ErrorIs(t, err, ErrMalformed)
	require.Equal(t, orig, p)
}

func TestHandlePoseMessage_Dispatch(t *testing.T) {
	var p Pose
	require.NoError(t, HandlePoseMessage(exampleINS, &p))

	before := p
	err := HandlePoseMessage("$VNYPR,+082.014,+000.014,+001.063*5D", &p)
	require.ErrorIs(t, err, ErrUnhandledFormat)
	require.NotErrorIs(t, err, ErrMalformed)
	require.True(t, IsUnhandled(err))
	require.Equal(t, before, p)

	err = HandlePoseMessage("$VNINS,1*00", &p)
	require.ErrorIs(t, err, ErrMalformed)
	require.False(t, IsUnhandled(err))
}
