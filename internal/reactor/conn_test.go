package reactor

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/wfxhttp/wfx/internal/engine"
	"github.com/wfxhttp/wfx/internal/wire"
)

func TestWorkerIdleTimeoutForceClosesSilentConnection(t *testing.T) {
	eng := newTestEngine(t)
	cfg := testNetworkConfig()
	cfg.HeaderTimeout = 1 * time.Second
	cfg.IdleTimeout = 1 * time.Second

	addr, stop := startTestWorker(t, cfg, eng)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Send nothing; the wheel should force-close the connection once the
	// idle deadline ticks past, well inside this read deadline.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 1)
	n, err := conn.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("Read = (%d, %v), want (0, io.EOF-like error) once the deadline force-closes the connection", n, err)
	}
}

func TestWorkerConnectionCapRejectsExtraConnectionFromSameIP(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Router.RegisterRoute(wire.MethodGET, "/ping", func(req *engine.Request, res *engine.Response) {
		res.SendText("text/plain", []byte("pong"))
	}); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}

	cfg := testNetworkConfig()
	cfg.MaxConnectionsPerIP = 1

	addr, stop := startTestWorker(t, cfg, eng)
	defer stop()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial #1: %v", err)
	}
	defer first.Close()

	// Give the accept goroutine time to register the first connection
	// against the limiter before the second dial races it.
	time.Sleep(50 * time.Millisecond)

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial #2: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	n, err := second.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("second connection Read = (%d, %v), want an immediate close (connection cap reached)", n, err)
	}

	// The first connection is unaffected.
	if _, err := first.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("Write on first conn: %v", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(first), nil)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "pong" {
		t.Fatalf("first conn response = %d %q, want 200 pong", resp.StatusCode, body)
	}
}

func TestFlagsSetHasClear(t *testing.T) {
	var f flags
	if f.has(flagTLS) {
		t.Fatalf("zero-value flags must not report flagTLS set")
	}
	f.set(flagTLS)
	if !f.has(flagTLS) {
		t.Fatalf("flagTLS should be set after set()")
	}
	if f.has(flagAsync) {
		t.Fatalf("flagAsync must remain unset")
	}
	f.set(flagAsync)
	f.clear(flagTLS)
	if f.has(flagTLS) {
		t.Fatalf("flagTLS should be cleared")
	}
	if !f.has(flagAsync) {
		t.Fatalf("flagAsync should remain set after clearing flagTLS")
	}
}

func TestContextForceCloseIsIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	ctx := &Context{conn: server}
	ctx.forceClose()
	if !ctx.isClosed() {
		t.Fatalf("isClosed() = false after forceClose")
	}
	// A second call must not panic or double-close.
	ctx.forceClose()
}
