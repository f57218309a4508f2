package vectornav

import "errors"

var (
	// ErrNotActionable is returned when a frame is neither an INS async
	// message nor a configuration-0 binary frame. The frame may still be a
	// valid device reply (register read, $VNERR) that the pose path ignores.
	ErrNotActionable = errors.New("vectornav: frame not actionable")

	// ErrMalformed is returned when a recognised record is truncated or
	// carries a field that does not parse.
	ErrMalformed = errors.New("vectornav: malformed record")

	// ErrUnhandledFormat is returned for text records whose prefix has no
	// parser. This does not mean the record is corrupt.
	ErrUnhandledFormat = errors.New("vectornav: no handler for record format")

	ErrChecksumMismatch = errors.New("vectornav: checksum mismatch")
	ErrInvalidArgument  = errors.New("vectornav: invalid argument")
	ErrNoDecoder        = errors.New("vectornav: no binary decoder configured")
)
