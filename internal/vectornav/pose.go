package vectornav

import "math"

// Pose is one orientation/position/rate sample as reported by the device.
//
// Angles are degrees and may be signed (the device reports yaw and roll in
// ±180, pitch in ±90); they are wrapped into [0,360) only when published.
// Rate is deg/s. InsStatus is the raw INS status word.
type Pose struct {
	Roll      float64    `json:"roll"`
	Pitch     float64    `json:"pitch"`
	Yaw       float64    `json:"yaw"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Altitude  float64    `json:"altitude"`
	Rate      [3]float64 `json:"rate"`
	InsStatus uint16     `json:"ins_status"`
}

// INS status word masks.
const (
	InsStatusModeMask    uint16 = 0x0003
	InsStatusGNSSFix     uint16 = 0x0004
	InsStatusGNSSError   uint16 = 0x0040
	InsStatusGNSSCompass uint16 = 0x0200
)

// InsMode describes where the heading solution comes from.
func InsMode(status uint16) string {
	switch status & InsStatusModeMask {
	case 0:
		return "Magn"
	case 1:
		return "M/GS"
	case 2:
		return "GNSS"
	default:
		return "Unknown"
	}
}

func HasGNSSFix(status uint16) bool     { return status&InsStatusGNSSFix != 0 }
func HasGNSSError(status uint16) bool   { return status&InsStatusGNSSError != 0 }
func HasGNSSCompass(status uint16) bool { return status&InsStatusGNSSCompass != 0 }

// Wrap360 maps any finite angle into [0,360). It equals
// ((x mod 360) + 360) mod 360 but stays idempotent for tiny negative inputs
// where x+360 would round to 360.
func Wrap360(x float64) float64 {
	v := math.Mod(x, 360)
	if v < 0 {
		v += 360
	}
	if v >= 360 || v == 0 {
		return 0
	}
	return v
}

func RadiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// normalized returns the copy of p that is published: angles wrapped and
// altitude zeroed.
//
// TODO: publish altitude once the sea-level reference the device uses is
// confirmed against a surveyed point.
func (p Pose) normalized() Pose {
	out := p
	out.Roll = Wrap360(p.Roll)
	out.Pitch = Wrap360(p.Pitch)
	out.Yaw = Wrap360(p.Yaw)
	out.Altitude = 0
	return out
}
