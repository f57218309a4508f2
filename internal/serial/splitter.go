package serial

import "bytes"

// maxTextFrame bounds a text frame that never sees its terminator.
const maxTextFrame = 1024

// Binary frames are handed on with one lead byte ahead of the 0xFA sync
// byte, so the group signature sits at offsets 1..3 as the classifier
// expects.
const (
	binarySync = 0xFA
	binaryLead = 0x00
)

// Splitter cuts the inbound byte stream into frames. Text frames start
// with '$' and end at '\n' (the terminator is kept). A chunk that arrives
// while no text frame is pending and does not start with '$' is a binary
// frame and is delivered whole, prefixed with binaryLead when it starts at
// the sync byte.
type Splitter struct {
	pending []byte
	dropped int
}

// Feed consumes chunk and calls emit once per complete frame.
func (s *Splitter) Feed(chunk []byte, emit func([]byte)) {
	for len(chunk) > 0 {
		if len(s.pending) == 0 && chunk[0] != '$' {
			if chunk[0] == '\r' || chunk[0] == '\n' {
				chunk = chunk[1:]
				continue
			}
			if chunk[0] == binarySync {
				chunk = append([]byte{binaryLead}, chunk...)
			}
			emit(chunk)
			return
		}

		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			s.pending = append(s.pending, chunk...)
			if len(s.pending) > maxTextFrame {
				s.pending = s.pending[:0]
				s.dropped++
			}
			return
		}
		s.pending = append(s.pending, chunk[:i+1]...)
		emit(s.pending)
		s.pending = s.pending[:0]
		chunk = chunk[i+1:]
	}
}

// Dropped is the number of oversized text frames discarded.
func (s *Splitter) Dropped() int { return s.dropped }

func (s *Splitter) Reset() { s.pending = s.pending[:0] }
