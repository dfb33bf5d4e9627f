// Package buffer implements the per-connection read/write buffers: a
// growable read buffer and a fixed-size write buffer, both cleared (not
// released) between keep-alive requests.
package buffer

import "errors"

// ErrWriteOverflow is returned by AppendWrite when the write buffer has no
// room left; the write buffer never grows.
var ErrWriteOverflow = errors.New("buffer: write buffer full")

// Read is a growable byte buffer fed by the reactor's recv path.
type Read struct {
	data []byte
	n    int // dataLength
}

// NewRead allocates a read buffer starting at incr bytes.
func NewRead(incr int) *Read {
	if incr <= 0 {
		incr = 4096
	}
	return &Read{data: make([]byte, incr)}
}

// Len returns the number of valid bytes currently buffered.
func (r *Read) Len() int { return r.n }

// Cap returns the current backing capacity.
func (r *Read) Cap() int { return len(r.data) }

// Bytes returns the valid region [0:n).
func (r *Read) Bytes() []byte { return r.data[:r.n] }

// WritableRegion returns the slice the reactor should read(2) into.
func (r *Read) WritableRegion() []byte { return r.data[r.n:] }

// Grow extends the backing array by incr bytes, capped at max. It is a
// no-op returning true if the buffer isn't full yet, and returns false
// without growing if the buffer is full and already at max, matching the spec invariant that growth only happens "when full and
// still reading".
func (r *Read) Grow(incr, max int) bool {
	if r.n < len(r.data) {
		return true
	}
	if len(r.data) >= max {
		return false
	}
	newSize := len(r.data) + incr
	if newSize > max {
		newSize = max
	}
	if newSize <= len(r.data) {
		return false
	}
	grown := make([]byte, newSize)
	copy(grown, r.data[:r.n])
	r.data = grown
	return true
}

// Advance records n more valid bytes after a successful read(2).
func (r *Read) Advance(n int) {
	r.n += n
	if r.n > len(r.data) {
		r.n = len(r.data)
	}
}

// Reset zeroes the valid length but keeps the backing array — used between
// keep-alive requests.
func (r *Read) Reset() { r.n = 0 }

// Release drops the backing array entirely — used on context teardown.
func (r *Read) Release() {
	r.data = nil
	r.n = 0
}

// Write is a fixed-capacity buffer the reactor drains to the socket.
type Write struct {
	data    []byte
	n       int // dataLength: bytes queued
	written int // writtenLength: bytes actually sent
}

// NewWrite allocates a fixed write buffer of size bytes.
func NewWrite(size int) *Write {
	if size <= 0 {
		size = 4096
	}
	return &Write{data: make([]byte, size)}
}

// Len returns bytes queued (dataLength).
func (w *Write) Len() int { return w.n }

// Written returns bytes actually sent so far (writtenLength).
func (w *Write) Written() int { return w.written }

// Pending returns the slice still awaiting transmission.
func (w *Write) Pending() []byte { return w.data[w.written:w.n] }

// Done reports whether everything queued has been sent.
func (w *Write) Done() bool { return w.written >= w.n }

// Append copies data into the write buffer, failing if it would overflow
// the fixed capacity — the write buffer never grows.
func (w *Write) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if len(p) > len(w.data)-w.n {
		return ErrWriteOverflow
	}
	copy(w.data[w.n:], p)
	w.n += len(p)
	return nil
}

// Reserve carves out n bytes at the current write position without
// copying anything into them yet, returning the slice to fill in (used by
// the chunked-encoding writer to backfill a hex length header). It fails
// the same way Append does on overflow.
func (w *Write) Reserve(n int) ([]byte, error) {
	if n > len(w.data)-w.n {
		return nil, ErrWriteOverflow
	}
	region := w.data[w.n : w.n+n]
	w.n += n
	return region, nil
}

// Rewind gives back the last n reserved-but-unused bytes (used when a
// chunk header needs fewer than the 10 reserved bytes).
func (w *Write) Rewind(n int) {
	if n > w.n {
		n = w.n
	}
	w.n -= n
}

// AdvanceWritten records n more bytes as actually transmitted.
func (w *Write) AdvanceWritten(n int) {
	w.written += n
	if w.written > w.n {
		w.written = w.n
	}
}

// Reset zeroes dataLength/writtenLength but keeps the backing array.
func (w *Write) Reset() {
	w.n = 0
	w.written = 0
}

// Release drops the backing array.
func (w *Write) Release() {
	w.data = nil
	w.n = 0
	w.written = 0
}

// Invariant reports whether written <= n <= cap, as required by spec §3.
func (w *Write) Invariant() bool {
	return w.written <= w.n && w.n <= len(w.data)
}
