package engine

import (
	"bytes"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/wfxhttp/wfx/internal/filecache"
	"github.com/wfxhttp/wfx/internal/wire"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(filecache.New(64), "/public/", nil)
}

func TestHandleRequestRoutesAndExecutesHandler(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Router.RegisterRoute(wire.MethodGET, "/hello", func(req *Request, res *Response) {
		res.SendText("text/plain", []byte("hi"))
	}); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}

	parsed := &wire.Request{Method: wire.MethodGET, Version: wire.Version11, Path: []byte("/hello"), Headers: wire.NewHeader()}
	res := e.HandleRequest(parsed, netip.MustParseAddr("127.0.0.1"))

	if res.Status != 200 {
		t.Fatalf("Status = %d, want 200", res.Status)
	}
	if string(res.textBody) != "hi" {
		t.Fatalf("textBody = %q, want %q", res.textBody, "hi")
	}
}

func TestHandleRequestUnmatchedRouteIs404(t *testing.T) {
	e := newTestEngine(t)
	parsed := &wire.Request{Method: wire.MethodGET, Version: wire.Version11, Path: []byte("/nope"), Headers: wire.NewHeader()}
	res := e.HandleRequest(parsed, netip.MustParseAddr("127.0.0.1"))
	if res.Status != 404 {
		t.Fatalf("Status = %d, want 404", res.Status)
	}
}

func TestHandleRequestPublicPrefixShortCircuitsToFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	filePath := filepath.Join(dir, "style.css")
	if err := os.WriteFile(filePath, []byte("body{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	parsed := &wire.Request{Method: wire.MethodGET, Version: wire.Version11, Path: []byte("/public/" + filePath), Headers: wire.NewHeader()}
	res := e.HandleRequest(parsed, netip.MustParseAddr("127.0.0.1"))

	resolved := e.HandleResponse(wire.Version11, res)
	if resolved.Op != wire.OpFile {
		t.Fatalf("Op = %v, want OpFile", resolved.Op)
	}
	if resolved.File == nil || resolved.File.Size != int64(len("body{}")) {
		t.Fatalf("File = %+v, want size %d", resolved.File, len("body{}"))
	}
}

func TestHandleRequestRecoversHandlerPanic(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Router.RegisterRoute(wire.MethodGET, "/boom", func(req *Request, res *Response) {
		panic("kaboom")
	}); err != nil {
		t.Fatalf("RegisterRoute: %v", err)
	}

	parsed := &wire.Request{Method: wire.MethodGET, Version: wire.Version11, Path: []byte("/boom"), Headers: wire.NewHeader()}
	res := e.HandleRequest(parsed, netip.MustParseAddr("127.0.0.1"))
	if res.Status != 500 {
		t.Fatalf("Status = %d, want 500", res.Status)
	}
}

func TestHandleResponseOwnedBodySetsContentLength(t *testing.T) {
	e := newTestEngine(t)
	res := NewResponse()
	res.SendText("text/plain", []byte("abcde"))

	resolved := e.HandleResponse(wire.Version11, res)
	if resolved.Op != wire.OpText {
		t.Fatalf("Op = %v, want OpText", resolved.Op)
	}
	if string(resolved.Text) != "abcde" {
		t.Fatalf("Text = %q", resolved.Text)
	}
	if !bytes.Contains(resolved.Head, []byte("Content-Length: 5\r\n")) {
		t.Fatalf("Head = %q, want Content-Length: 5", resolved.Head)
	}
}

func TestHandleResponseMissingFileIs404(t *testing.T) {
	e := newTestEngine(t)
	res := NewResponse()
	res.SendFile("/does/not/exist")

	resolved := e.HandleResponse(wire.Version11, res)
	if resolved.Op != wire.OpText {
		t.Fatalf("Op = %v, want OpText (404 fallback)", resolved.Op)
	}
	if string(resolved.Text) != wire.StatusText(404) {
		t.Fatalf("Text = %q, want %q", resolved.Text, wire.StatusText(404))
	}
}

func TestResponseDoubleSendPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double Send")
		}
	}()
	res := NewResponse()
	res.SendText("text/plain", []byte("a"))
	res.SendText("text/plain", []byte("b"))
}

func TestKeepAliveDefaultsByVersion(t *testing.T) {
	if !KeepAlive(wire.Version11, "", "") {
		t.Fatalf("HTTP/1.1 should default to keep-alive")
	}
	if KeepAlive(wire.Version10, "", "") {
		t.Fatalf("HTTP/1.0 should default to close")
	}
	if KeepAlive(wire.Version11, "", "close") {
		t.Fatalf("response Connection: close should override the version default")
	}
	if !KeepAlive(wire.Version10, "", "keep-alive") {
		t.Fatalf("response Connection: keep-alive should override the version default")
	}
}
