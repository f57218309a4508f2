package vectornav

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Routing destination for pose messages.
const (
	BoardACONMajInt = 3
	TileUnspecified = -1
)

// Pose message field numbers. The envelope is protobuf wire format so
// consumers can decode it with a generated message of the same shape.
const (
	poseFieldRoll      protowire.Number = 1
	poseFieldPitch     protowire.Number = 2
	poseFieldYaw       protowire.Number = 3
	poseFieldLatitude  protowire.Number = 4
	poseFieldLongitude protowire.Number = 5
	poseFieldAltitude  protowire.Number = 6
	poseFieldRate      protowire.Number = 7 // packed repeated double
	poseFieldInsStatus protowire.Number = 8
)

// EncodePoseMessage builds the pose envelope handed to the router.
func EncodePoseMessage(p Pose) []byte {
	b := make([]byte, 0, 96)
	b = appendDouble(b, poseFieldRoll, p.Roll)
	b = appendDouble(b, poseFieldPitch, p.Pitch)
	b = appendDouble(b, poseFieldYaw, p.Yaw)
	b = appendDouble(b, poseFieldLatitude, p.Latitude)
	b = appendDouble(b, poseFieldLongitude, p.Longitude)
	b = appendDouble(b, poseFieldAltitude, p.Altitude)

	var rate []byte
	for _, r := range p.Rate {
		rate = protowire.AppendFixed64(rate, math.Float64bits(r))
	}
	b = protowire.AppendTag(b, poseFieldRate, protowire.BytesType)
	b = protowire.AppendBytes(b, rate)

	b = protowire.AppendTag(b, poseFieldInsStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.InsStatus))
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// DecodePoseMessage is the inverse of EncodePoseMessage. Unknown fields are
// skipped.
func DecodePoseMessage(b []byte) (Pose, error) {
	var p Pose
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Pose{}, fmt.Errorf("%w: pose tag: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.Fixed64Type && num >= poseFieldRoll && num <= poseFieldAltitude:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Pose{}, fmt.Errorf("%w: pose field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
			f := math.Float64frombits(v)
			switch num {
			case poseFieldRoll:
				p.Roll = f
			case poseFieldPitch:
				p.Pitch = f
			case poseFieldYaw:
				p.Yaw = f
			case poseFieldLatitude:
				p.Latitude = f
			case poseFieldLongitude:
				p.Longitude = f
			case poseFieldAltitude:
				p.Altitude = f
			}
		case typ == protowire.BytesType && num == poseFieldRate:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return Pose{}, fmt.Errorf("%w: pose rate: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			for i := 0; i < len(p.Rate) && len(packed) > 0; i++ {
				v, m := protowire.ConsumeFixed64(packed)
				if m < 0 {
					return Pose{}, fmt.Errorf("%w: pose rate[%d]: %v", ErrMalformed, i, protowire.ParseError(m))
				}
				packed = packed[m:]
				p.Rate[i] = math.Float64frombits(v)
			}
		case typ == protowire.VarintType && num == poseFieldInsStatus:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Pose{}, fmt.Errorf("%w: pose status: %v", ErrMalformed, protowire.ParseError(n))
			}
			b = b[n:]
			p.InsStatus = uint16(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Pose{}, fmt.Errorf("%w: pose field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}
