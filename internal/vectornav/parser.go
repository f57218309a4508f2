package vectornav

import (
	"fmt"
	"strconv"
	"strings"
)

// $VNINS field positions after splitting on ','. Index 0 is the header.
//
//	1  time of week (s)          9  altitude (m)
//	2  week number               10-12 velocity N/E/D (m/s)
//	3  INS status (hex)          13 attitude uncertainty (deg)
//	4  yaw (deg)                 14 position uncertainty (m)
//	5  pitch (deg)               15 velocity uncertainty (m/s)
//	6  roll (deg)
//	7  latitude (deg)
//	8  longitude (deg)
//
// Example:
//
//	$VNINS,125176.941097,2332,8206,+082.014,+000.014,+001.063,+51.51992529,-000.11006359,+00089.216,-000.001,-000.008,-000.125,03.9,01.2,0.10*65
const (
	tokInsStatus = 3 + iota
	tokYaw
	tokPitch
	tokRoll
	tokLatitude
	tokLongitude
	tokAltitude
)

const insPrefix = "$VNINS"

// ParseINS decodes a $VNINS record into p.
//
// The record must reach at least the roll field; shorter records return
// ErrMalformed. On any error p is left unchanged. Fields after roll that
// are absent keep their previous values. Altitude is read but not stored.
func ParseINS(text string, p *Pose) error {
	text = trimRecord(text)
	if star := strings.IndexByte(text, '*'); star >= 0 {
		text = text[:star]
	}
	fields := strings.Split(text, ",")
	if len(fields) <= tokRoll {
		return fmt.Errorf("%w: $VNINS has %d fields, need %d", ErrMalformed, len(fields), tokRoll+1)
	}

	next := *p
	for i, f := range fields {
		f = strings.TrimSpace(f)
		var err error
		switch i {
		case tokInsStatus:
			var v uint64
			v, err = strconv.ParseUint(f, 16, 16)
			next.InsStatus = uint16(v)
		case tokYaw:
			next.Yaw, err = strconv.ParseFloat(f, 64)
		case tokPitch:
			next.Pitch, err = strconv.ParseFloat(f, 64)
		case tokRoll:
			next.Roll, err = strconv.ParseFloat(f, 64)
		case tokLatitude:
			next.Latitude, err = strconv.ParseFloat(f, 64)
		case tokLongitude:
			next.Longitude, err = strconv.ParseFloat(f, 64)
		case tokAltitude:
			_, err = strconv.ParseFloat(f, 64)
		}
		if err != nil {
			return fmt.Errorf("%w: field %d %q: %v", ErrMalformed, i, f, err)
		}
	}
	*p = next
	return nil
}

// HandlePoseMessage routes a text record to its parser by prefix. Records
// without a parser return ErrUnhandledFormat.
func HandlePoseMessage(text string, p *Pose) error {
	if strings.HasPrefix(text, insPrefix) {
		return ParseINS(text, p)
	}
	return ErrUnhandledFormat
}

// trimRecord drops zero padding left by the fixed-size buffer and the line
// terminator.
func trimRecord(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "\r\n")
}
