package vectornav

import "bytes"

// AssembledBufferSize matches the transport's DMA read buffer.
const AssembledBufferSize = 256

// MessageType is the classification of one received frame.
type MessageType int

const (
	MsgAsync MessageType = iota
	MsgBinary
	MsgError
	MsgUnhandled
)

func (t MessageType) String() string {
	switch t {
	case MsgAsync:
		return "async"
	case MsgBinary:
		return "binary"
	case MsgError:
		return "error"
	default:
		return "unhandled"
	}
}

// Actionable reports whether the run loop should decode frames of this type.
func (t MessageType) Actionable() bool {
	return t == MsgAsync || t == MsgBinary
}

var (
	headerINS = []byte("$VNINS")
	headerERR = []byte("$VNERR")

	// Configuration-0 binary output sits at offsets 1..3: one transport
	// lead byte, then the 0xFA sync byte and the group bytes. The serial
	// splitter adds the lead byte to frames that arrive starting at sync.
	binaryGroupSignature = []byte{0xFA, 0x16, 0x03}
)

// Classify determines the type of raw and copies it into dst.
//
// dst is always zero-filled before the copy so a short frame never carries
// bytes from the previous one. raw is truncated to len(dst). Classify never
// fails; frames it does not recognise come back as MsgUnhandled.
func Classify(raw, dst []byte) MessageType {
	clear(dst)
	copy(dst, raw)

	switch {
	case bytes.HasPrefix(raw, headerINS):
		return MsgAsync
	case bytes.HasPrefix(raw, headerERR):
		return MsgError
	case len(raw) >= 4 && bytes.Equal(raw[1:4], binaryGroupSignature):
		return MsgBinary
	default:
		return MsgUnhandled
	}
}
