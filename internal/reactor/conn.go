package reactor

import (
	"io"
	"net"
	"time"

	"github.com/wfxhttp/wfx/internal/buffer"
	"github.com/wfxhttp/wfx/internal/engine"
	"github.com/wfxhttp/wfx/internal/filecache"
	"github.com/wfxhttp/wfx/internal/tlsadapter"
	"github.com/wfxhttp/wfx/internal/wire"
)

// streamChunkSize is the largest buffer a generator fills per invocation
// while streaming; stream shrinks it so that one chunk plus its framing
// overhead fits the connection's write buffer.
const streamChunkSize = 4096

// handleConn runs one connection end to end: ACCEPT, optional HANDSHAKE,
// then repeated RECV→(route/middleware/handler)→SEND cycles for as many
// keep-alive requests as the connection and client agree to, per spec
// §4.L. It always runs on its own goroutine; every field it touches on ctx
// is otherwise untouched by any other goroutine except the wheel's
// expiration callback, which only ever calls ctx.forceClose.
func (w *Worker) handleConn(raw net.Conn) {
	remote, ok := addrFromConn(raw)
	if !ok {
		raw.Close()
		return
	}
	if !w.limiter.AllowConnection(remote) {
		if w.mx != nil {
			w.mx.LimiterRejections.WithLabelValues("connection").Inc()
		}
		raw.Close()
		return
	}
	defer w.limiter.ReleaseConnection(remote)

	slot, gen, ctx, ok := w.slots.Alloc()
	if !ok {
		raw.Close()
		return
	}
	defer w.slots.Free(slot)

	ctx.SlotIndex = uint32(slot)
	ctx.Generation = gen
	ctx.remote = remote
	ctx.readBuf = buffer.NewRead(w.cfg.RecvBufferIncrSize)
	ctx.writeBuf = buffer.NewWrite(w.cfg.SendBufferSize)
	ctx.state = stateAccept

	var conn transport = raw
	if w.tlsCfg != nil {
		ctx.state = stateHandshake
		ctx.fl.set(flagTLS)
		adapter := tlsadapter.Wrap(raw, w.tlsCfg)
		if err := adapter.Handshake(time.Now().Add(w.cfg.HeaderTimeout)); err != nil {
			raw.Close()
			return
		}
		conn = tlsWrapper{adapter}
	}
	ctx.conn = conn

	if w.mx != nil {
		w.mx.ConnectionsTotal.Inc()
		w.mx.ConnectionsActive.Inc()
		defer w.mx.ConnectionsActive.Dec()
	}

	defer ctx.forceClose()
	defer w.cancelDeadline(ctx.SlotIndex)

	ctx.state = stateRecv
	parser := wire.NewParser(wire.Limits{
		MaxHeaderTotalSize:  w.cfg.MaxHeaderTotalSize,
		MaxHeaderTotalCount: w.cfg.MaxHeaderTotalCount,
		MaxBodyTotalSize:    w.cfg.MaxBodyTotalSize,
		MaxRecvBufferSize:   w.cfg.MaxRecvBufferSize,
	})

	for w.recvAndHandle(ctx, parser) {
	}
}

// recvAndHandle drains the socket until one full request is parsed and
// answered, or the connection must close. It returns true when the caller
// should loop back for another keep-alive request, false otherwise.
func (w *Worker) recvAndHandle(ctx *Context, parser *wire.Parser) bool {
	for {
		if ctx.isClosed() {
			return false
		}

		// Per-connection deadline, spec §4.L: idleTimeout while nothing
		// of the next request has arrived yet (StateIdle — true on a
		// fresh connection and after a keep-alive reset), headerTimeout
		// once header bytes are trickling in, bodyTimeout once the
		// parser needs more body (including a 100-continue still
		// awaiting its payload). Re-arming on every partial read resets
		// the countdown on progress rather than enforcing a single
		// deadline from phase entry; a client that stops trickling
		// bytes mid-phase still times out within one timeout window.
		switch ctx.parse.State {
		case wire.StateIdle:
			w.armDeadline(ctx.SlotIndex, uint32(w.cfg.IdleTimeout.Seconds()))
		case wire.StateIncompleteBody, wire.StateExpect100:
			w.armDeadline(ctx.SlotIndex, uint32(w.cfg.BodyTimeout.Seconds()))
		default:
			w.armDeadline(ctx.SlotIndex, uint32(w.cfg.HeaderTimeout.Seconds()))
		}

		n, err := ctx.conn.Read(ctx.readBuf.WritableRegion())
		if n > 0 {
			ctx.readBuf.Advance(n)
			if w.mx != nil {
				w.mx.BytesRead.Add(float64(n))
			}
		}
		if err != nil {
			return false
		}
		if n == 0 {
			continue
		}

		switch parser.Parse(ctx.readBuf.Bytes(), &ctx.parse) {
		case wire.StateIncompleteHeaders, wire.StateIncompleteBody:
			if !ctx.readBuf.Grow(w.cfg.RecvBufferIncrSize, w.cfg.MaxRecvBufferSize) {
				w.writeStatic(ctx, 413)
				return false
			}
		case wire.StateExpect100:
			if _, werr := ctx.conn.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n")); werr != nil {
				return false
			}
		case wire.StateExpect417:
			w.writeStatic(ctx, 417)
			return false
		case wire.StateStreamingBody:
			// Chunked *request* bodies are out of scope (§9 Open
			// Question (a)): spec §4.M calls for a static 501 here
			// rather than de-chunking.
			w.writeStatic(ctx, 501)
			return false
		case wire.StateError:
			w.writeStatic(ctx, 400)
			return false
		case wire.StateSuccess:
			return w.dispatch(ctx)
		}
	}
}

// dispatch runs one fully-parsed request through the engine and writes
// its response, then decides whether the connection stays open for
// another keep-alive request.
func (w *Worker) dispatch(ctx *Context) bool {
	if !w.limiter.AllowRequest(ctx.remote) {
		if w.mx != nil {
			w.mx.LimiterRejections.WithLabelValues("request").Inc()
		}
		w.writeStatic(ctx, 429)
		return false
	}

	req := ctx.wireRequest()
	version := req.Version
	reqConnHeader := req.Headers.Get("Connection")

	res := w.eng.HandleRequest(req, ctx.remote)
	keepAlive := engine.KeepAlive(version, reqConnHeader, res.Headers.Get("Connection"))

	resolved := w.eng.HandleResponse(version, res)
	forceClose, err := w.writeResolved(ctx, resolved)
	if err != nil || forceClose || !keepAlive {
		return false
	}

	ctx.reset()
	ctx.state = stateRecv
	return true
}

func (w *Worker) writeStatic(ctx *Context, status int) {
	_, _ = ctx.conn.Write(wire.StaticError(status))
}

// writeResolved writes a resolved response head and body to the
// connection. forceClose is true when the body union itself demands the
// connection close regardless of the Connection-header negotiation (a
// write error, or a streaming generator reporting abnormal termination).
func (w *Worker) writeResolved(ctx *Context, r *engine.ResolvedBody) (forceClose bool, err error) {
	if _, err = ctx.conn.Write(r.Head); err != nil {
		return true, err
	}

	switch r.Op {
	case wire.OpText:
		if len(r.Text) == 0 {
			return false, nil
		}
		if _, err = ctx.conn.Write(r.Text); err != nil {
			return true, err
		}
		if w.mx != nil {
			w.mx.BytesWritten.Add(float64(len(r.Text)))
		}
		return false, nil

	case wire.OpFile:
		ctx.state = stateSendFile
		ctx.fl.set(flagAsync)
		defer ctx.fl.clear(flagAsync)
		if err = w.sendFile(ctx, r.File); err != nil {
			return true, err
		}
		return false, nil

	case wire.OpStreamChunked, wire.OpStreamFixed:
		ctx.state = stateStreaming
		ctx.fl.set(flagAsync)
		defer ctx.fl.clear(flagAsync)
		return w.stream(ctx, r.Generator)

	default:
		return false, nil
	}
}

// sendFile writes entry zero-copy where the underlying transport supports
// it. io.Copy's destination type assertion sees through the transport
// interface to the concrete *net.TCPConn, so a plaintext connection takes
// the sendfile(2) fast path automatically; a TLS connection (which has no
// such fast path) falls back to a plain read/write loop — exactly the
// "TLS adapter returns NO_IMPL, fall back to a generator that preads
// chunks" behavior spec §4.L describes, minus the explicit generator
// since io.Copy already is that loop. entry.File is shared across
// connections, so reads go through a SectionReader (pread-style, via
// ReadAt) rather than the file's shared offset.
func (w *Worker) sendFile(ctx *Context, entry *filecache.Entry) error {
	src := io.NewSectionReader(entry.File, 0, entry.Size)
	n, err := io.Copy(ctx.conn, src)
	if w.mx != nil {
		w.mx.BytesWritten.Add(float64(n))
	}
	return err
}

// stream drives a Stream-registered generator to completion, chunk-framing
// each non-empty write per spec §4.L's streaming contract. The generator's
// three-way CONTINUE/STOP_AND_ALIVE_CONN/STOP_AND_CLOSE_CONN action
// collapses onto wire.Generator's (done bool, err error) the way io.Reader
// collapses "more data"/"clean EOF"/"error" onto (n, err): done=false is
// CONTINUE, done=true with err=nil is STOP_AND_ALIVE_CONN, and a non-nil
// err is STOP_AND_CLOSE_CONN.
func (w *Worker) stream(ctx *Context, gen wire.Generator) (forceClose bool, err error) {
	if gen == nil {
		return false, nil
	}
	size := streamChunkSize
	// Leave room for the hex length line and the trailing CRLF of a chunk.
	if limit := w.cfg.SendBufferSize - 12; limit > 0 && limit < size {
		size = limit
	}
	buf := make([]byte, size)
	for {
		n, done, gerr := gen(buf)
		if n > 0 {
			if werr := wire.WriteChunk(ctx.writeBuf, buf[:n]); werr != nil {
				return true, werr
			}
			if _, werr := ctx.conn.Write(ctx.writeBuf.Pending()); werr != nil {
				return true, werr
			}
			if w.mx != nil {
				w.mx.BytesWritten.Add(float64(n))
			}
			ctx.writeBuf.Reset()
		}
		if gerr != nil {
			return true, nil
		}
		if done {
			if werr := wire.WriteChunkTerminator(ctx.writeBuf); werr != nil {
				return true, werr
			}
			_, werr := ctx.conn.Write(ctx.writeBuf.Pending())
			ctx.writeBuf.Reset()
			return werr != nil, werr
		}
	}
}
