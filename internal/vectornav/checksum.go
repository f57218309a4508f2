package vectornav

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// ChecksumMode selects the trailer appended to outgoing commands.
type ChecksumMode int

const (
	// ChecksumNone writes the "XX" placeholder, which the device accepts
	// without verification.
	ChecksumNone ChecksumMode = iota
	// Checksum8 writes the 8-bit XOR checksum as two hex digits.
	Checksum8
	// Checksum16 writes the CRC16-CCITT as four hex digits.
	Checksum16
)

const checksumPlaceholder = "XX"

func (m ChecksumMode) String() string {
	switch m {
	case ChecksumNone:
		return "none"
	case Checksum8:
		return "8bit"
	case Checksum16:
		return "16bit"
	default:
		return fmt.Sprintf("ChecksumMode(%d)", int(m))
	}
}

// ParseChecksumMode maps the config spelling onto a ChecksumMode.
// The empty string selects ChecksumNone.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ChecksumNone, nil
	case "8bit", "8":
		return Checksum8, nil
	case "16bit", "16", "crc16":
		return Checksum16, nil
	default:
		return ChecksumNone, fmt.Errorf("%w: checksum mode %q", ErrInvalidArgument, s)
	}
}

// trailer formats the checksum of body for m.
func (m ChecksumMode) trailer(body []byte) string {
	switch m {
	case Checksum8:
		return fmt.Sprintf("%02X", Checksum8Bit(body))
	case Checksum16:
		return fmt.Sprintf("%04X", CRC16(body))
	default:
		return checksumPlaceholder
	}
}

// Checksum8Bit is the XOR of every byte in data. For ASCII frames data is
// everything between '$' and '*', commas included.
func Checksum8Bit(data []byte) byte {
	var ck byte
	for _, b := range data {
		ck ^= b
	}
	return ck
}

// CRC16 is the CRC16-CCITT used by the device for both ASCII and binary
// frames (polynomial 0x1021, initial value 0, no reflection).
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc16Table[crc>>8] ^ (crc << 8) ^ uint16(b)
	}
	return crc
}

var crc16Table = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if (crc & 0x8000) != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// VerifyTextChecksum checks the "*hh" or "*hhhh" trailer of an ASCII frame.
// The "XX" placeholder is accepted as "not checksummed". Trailing CR/LF and
// zero padding are ignored.
func VerifyTextChecksum(frame []byte) error {
	if i := bytes.IndexByte(frame, 0); i >= 0 {
		frame = frame[:i]
	}
	frame = bytes.TrimRight(frame, "\r\n")
	if len(frame) == 0 || frame[0] != '$' {
		return fmt.Errorf("%w: missing '$'", ErrMalformed)
	}
	star := bytes.LastIndexByte(frame, '*')
	if star == -1 {
		return fmt.Errorf("%w: missing checksum", ErrMalformed)
	}
	body := frame[1:star]
	ck := string(bytes.TrimSpace(frame[star+1:]))
	if strings.EqualFold(ck, checksumPlaceholder) {
		return nil
	}
	want, err := hex.DecodeString(ck)
	if err != nil {
		return fmt.Errorf("%w: bad checksum %q", ErrMalformed, ck)
	}
	switch len(want) {
	case 1:
		if Checksum8Bit(body) != want[0] {
			return ErrChecksumMismatch
		}
	case 2:
		if CRC16(body) != uint16(want[0])<<8|uint16(want[1]) {
			return ErrChecksumMismatch
		}
	default:
		return fmt.Errorf("%w: checksum length %d", ErrMalformed, len(ck))
	}
	return nil
}
