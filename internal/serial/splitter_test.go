package serial

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"vn310d/internal/vectornav"
)

func collect(s *Splitter, chunks ...[]byte) []string {
	var out []string
	for _, c := range chunks {
		s.Feed(c, func(f []byte) { out = append(out, string(f)) })
	}
	return out
}

func TestSplitter_TextAcrossChunks(t *testing.T) {
	var s Splitter
	got := collect(&s, []byte("$VNINS,1,2,"), []byte("8206,+1*XX\r"), []byte("\n"))
	require.Equal(t, []string{"$VNINS,1,2,8206,+1*XX\r\n"}, got)
}

func TestSplitter_TwoFramesOneChunk(t *testing.T) {
	var s Splitter
	got := collect(&s, []byte("$VNRRG,01,VN-310*XX\r\n$VNINS,1*XX\r\n$VNI"), []byte("NS,2*XX\r\n"))
	require.Equal(t, []string{"$VNRRG,01,VN-310*XX\r\n", "$VNINS,1*XX\r\n", "$VNINS,2*XX\r\n"}, got)
}

func TestSplitter_BinaryChunkDeliveredWhole(t *testing.T) {
	var s Splitter
	bin := []byte{0x00, 0xFA, 0x16, 0x03, '\n', 0x24, 0x01}
	got := collect(&s, bin)
	require.Equal(t, []string{string(bin)}, got)
}

func TestSplitter_BinaryAtSyncGetsLeadByte(t *testing.T) {
	var s Splitter
	bin := []byte{0xFA, 0x16, 0x03, 0x00, 0x12, 0x34}
	got := collect(&s, bin)
	require.Equal(t, []string{string(append([]byte{0x00}, bin...))}, got)
	require.Equal(t, byte(0xFA), bin[0], "input chunk untouched")

	var dst [64]byte
	require.Equal(t, vectornav.MsgBinary, vectornav.Classify([]byte(got[0]), dst[:]))
}

func TestSplitter_SkipsLineNoiseBetweenFrames(t *testing.T) {
	var s Splitter
	got := collect(&s, []byte("\r\n\n$VNERR,03*XX\r\n"))
	require.Equal(t, []string{"$VNERR,03*XX\r\n"}, got)
}

func TestSplitter_DropsOversizedText(t *testing.T) {
	var s Splitter
	long := append([]byte("$VNINS,"), bytes.Repeat([]byte{'9'}, maxTextFrame)...)
	got := collect(&s, long, []byte("$VNINS,1*XX\n"))
	require.Equal(t, 1, s.Dropped())
	require.Equal(t, []string{"$VNINS,1*XX\n"}, got)
}

func TestSplitter_Reset(t *testing.T) {
	var s Splitter
	collect(&s, []byte("$VNINS,partial"))
	s.Reset()
	got := collect(&s, []byte("$VNERR,01*XX\n"))
	require.Len(t, got, 1)
	require.True(t, strings.HasPrefix(got[0], "$VNERR"))
}
