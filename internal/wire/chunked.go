package wire

import (
	"strconv"

	"github.com/wfxhttp/wfx/internal/buffer"
)

// WriteChunk appends one chunked-transfer frame, "<hex-len>\r\n<bytes>\r\n",
// for payload into w. The spec describes the C reactor reserving 10
// leading bytes and back-filling the hex length in reverse to avoid a
// second pass over a scatter-gather buffer; Go's buffer.Write is a single
// contiguous slice, so the equivalent here is computing the header once
// and appending header+payload+trailer in one shot — same on-wire bytes,
// no reserve/rewind dance needed.
func WriteChunk(w *buffer.Write, payload []byte) error {
	header := strconv.AppendInt(make([]byte, 0, 10), int64(len(payload)), 16)
	header = append(header, '\r', '\n')

	if err := w.Append(header); err != nil {
		return err
	}
	if err := w.Append(payload); err != nil {
		return err
	}
	return w.Append([]byte{'\r', '\n'})
}

// WriteChunkTerminator appends the terminal "0\r\n\r\n" marking end of a
// chunked body.
func WriteChunkTerminator(w *buffer.Write) error {
	return w.Append([]byte("0\r\n\r\n"))
}
