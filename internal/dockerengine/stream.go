package dockerengine

import "strings"

// Frame stream kinds as emitted in byte 0 of the 8-byte multiplexed header
// the container runtime's exec-attach endpoint produces.
const (
	streamKindStdin  = 0
	streamKindStdout = 1
	streamKindStderr = 2
)

const headerLen = 8

// Demux decodes a raw multiplexed exec-attach stream into its concatenated
// payload text.
//
// Each frame is an 8-byte header followed by a big-endian uint32 payload
// length at header bytes [4:8) and that many payload bytes. Both stdout and
// stderr frames are concatenated into one output stream — this
// implementation does not attempt to keep them separate (see the Execution
// Engine for how the merged text is classified between the response's
// stdout/stderr fields based on exit code).
//
// A trailing partial frame — fewer than 8 header bytes, or a header
// announcing more payload than remains — is silently dropped rather than
// treated as an error.
func Demux(raw []byte) string {
	var out []byte

	for len(raw) > 0 {
		if len(raw) < headerLen {
			break
		}

		kind := raw[0]
		length := uint32(raw[4])<<24 | uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7])
		raw = raw[headerLen:]

		if uint64(len(raw)) < uint64(length) {
			break
		}

		switch kind {
		case streamKindStdout, streamKindStderr:
			out = append(out, raw[:length]...)
		case streamKindStdin:
			// The exec-attach endpoint never actually emits stdin frames
			// back to us, but if it ever did, they carry nothing worth
			// echoing into the response.
		}
		raw = raw[length:]
	}

	return strings.TrimRight(string(out), " \t\r\n")
}
