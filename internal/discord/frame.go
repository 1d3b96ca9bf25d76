package discord

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Frame opcodes.
const (
	opHandshake uint32 = 0
	opFrame     uint32 = 1
	opClose     uint32 = 2
	opPing      uint32 = 3
	opPong      uint32 = 4
)

// maxFrameSize bounds the payload accepted from the socket.
const maxFrameSize = 64 << 10

// writeFrame encodes v as JSON behind an 8-byte little-endian header of
// opcode and payload length.
func writeFrame(w io.Writer, op uint32, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	buf := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], op)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload))) //nolint:gosec // bounded by json size
	copy(buf[8:], payload)
	_, err = w.Write(buf)
	return err
}

// readFrame reads one frame and returns its opcode and raw JSON payload.
func readFrame(r io.Reader) (uint32, []byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}
	op := binary.LittleEndian.Uint32(header[0:4])
	n := binary.LittleEndian.Uint32(header[4:8])
	if n > maxFrameSize {
		return 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return op, payload, nil
}
