package reactor

import (
	"net/netip"
	"sync"

	"github.com/wfxhttp/wfx/internal/buffer"
	"github.com/wfxhttp/wfx/internal/wire"
)

// connState is the coarse connection lifecycle position, exactly the
// Accept→Handshake→Recv→Send→SendFile→Shutdown states of spec §4.L.
type connState uint8

const (
	stateAccept connState = iota
	stateHandshake
	stateRecv
	stateSend
	stateSendFile
	stateStreaming
	stateShutdown
	stateClosed
)

// flags is the packed bitset backing Context's boolean state, the Go shape
// of spec §3.A's packed connectionState/flag union — kept as bit ops
// instead of a handful of separate bool fields so the context stays one
// fixed-size value suitable for a slab pool.
type flags uint16

const (
	flagTLS flags = 1 << iota
	// flagAsync marks a connection mid SEND_FILE or streaming. The wheel's
	// expire callback does not read it: an expired connection is closed
	// through forceClose whether or not the flag is set.
	flagAsync
)

func (f flags) has(bit flags) bool { return f&bit != 0 }
func (f *flags) set(bit flags)     { *f |= bit }
func (f *flags) clear(bit flags)   { *f &^= bit }

// Context is one connection's stable, bounded state: the Go shape of spec
// §3.A's Connection Context. It lives in a slot of the worker's alloc.Pool
// addressed by SlotIndex, stamped with Generation so a timer-wheel
// expiration that fires after the slot has been freed and reused for a
// different connection is recognized as stale instead of acted on.
type Context struct {
	SlotIndex  uint32
	Generation uint32

	conn   transport
	remote netip.Addr

	readBuf  *buffer.Read
	writeBuf *buffer.Write
	parse    wire.ParseResult

	state connState
	fl    flags

	closeMu sync.Mutex
	closed  bool
}

// token returns this context's completion token, as threaded through the
// timer wheel and heap.
func (c *Context) token() uint64 { return EncodeToken(c.SlotIndex, c.Generation) }

// reset clears per-request parse state and buffer contents between
// keep-alive requests on the same connection, keeping backing arrays.
func (c *Context) reset() {
	c.readBuf.Reset()
	c.writeBuf.Reset()
	c.parse = wire.ParseResult{}
}

// forceClose closes the underlying transport at most once. Safe to call
// from the connection's own goroutine (normal close) or from the
// wheel-tick goroutine (timeout-driven abort); both go through the same
// transport Close, so a TLS connection is closed via the adapter's
// graceful Shutdown (close_notify) in either case. The Go difference is
// that this needs a lock where the single-threaded C original needed none
// (§5 Shared resources).
func (c *Context) forceClose() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Context) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// wireRequest is the parsed request view engine.HandleRequest consumes,
// valid once parse.State reaches wire.StateSuccess.
func (c *Context) wireRequest() *wire.Request { return &c.parse.Request }
