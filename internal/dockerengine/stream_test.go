package dockerengine

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func frame(kind byte, payload string) []byte {
	header := make([]byte, headerLen)
	header[0] = kind
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, []byte(payload)...)
}

func TestDemuxSingleStdoutFrame(t *testing.T) {
	raw := frame(streamKindStdout, "hello world\n")
	assert.Equal(t, "hello world", Demux(raw))
}

func TestDemuxConcatenatesStdoutAndStderr(t *testing.T) {
	var raw []byte
	raw = append(raw, frame(streamKindStdout, "out-part ")...)
	raw = append(raw, frame(streamKindStderr, "err-part")...)
	assert.Equal(t, "out-part err-part", Demux(raw))
}

func TestDemuxTrimsTrailingWhitespace(t *testing.T) {
	raw := frame(streamKindStdout, "result\n\n   ")
	assert.Equal(t, "result", Demux(raw))
}

func TestDemuxDropsTruncatedHeader(t *testing.T) {
	raw := frame(streamKindStdout, "complete frame")
	raw = append(raw, []byte{1, 0, 0}...) // 3 stray header bytes, not 8
	assert.Equal(t, "complete frame", Demux(raw))
}

func TestDemuxDropsTruncatedPayload(t *testing.T) {
	full := frame(streamKindStdout, "complete frame")
	truncated := frame(streamKindStdout, "never arrives")
	truncated = truncated[:headerLen+3] // header claims more than remains
	assert.Equal(t, "complete frame", Demux(append(full, truncated...)))
}

func TestDemuxEmptyInput(t *testing.T) {
	assert.Equal(t, "", Demux(nil))
	assert.Equal(t, "", Demux([]byte{}))
}

func TestDemuxDropsStdinFrames(t *testing.T) {
	var raw []byte
	raw = append(raw, frame(streamKindStdin, "echoed input")...)
	raw = append(raw, frame(streamKindStdout, "actual output")...)
	assert.Equal(t, "actual output", Demux(raw))
}
