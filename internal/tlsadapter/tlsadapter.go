// Package tlsadapter wraps crypto/tls.Conn behind the same narrow surface
// the reactor uses for a plain net.Conn: Wrap, Handshake, Read, Write,
// WriteFile, Shutdown, ForceShutdown. crypto/tls.Conn is the idiomatic Go
// substitute for the spec's opaque OpenSSL session pointer — grounded on
// nabbar-golib/certificates, which wraps crypto/tls the same way (a
// TLSConfig builder producing a *tls.Config, handed to tls.Server).
package tlsadapter

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"time"
)

// ErrNoImpl is returned by operations crypto/tls.Conn has no path for.
// WriteFile always returns it: tls.Conn exposes no splice/sendfile
// equivalent, so callers must fall back to a Read/Write copy loop
// unconditionally, not just when one isn't available.
var ErrNoImpl = errors.New("tlsadapter: not implemented over crypto/tls")

// Adapter wraps one *tls.Conn, giving it the Read/Write/Shutdown surface
// the reactor drives regardless of whether a connection is plaintext or
// TLS.
type Adapter struct {
	conn *tls.Conn
}

// Wrap turns a raw net.Conn into a server-side TLS connection using cfg.
// The handshake is not performed; call Handshake once the reactor is
// ready to block on it.
func Wrap(raw net.Conn, cfg *tls.Config) *Adapter {
	return &Adapter{conn: tls.Server(raw, cfg)}
}

// Handshake performs (or waits for) the TLS handshake, honoring deadline
// (zero means none) by pushing it onto the underlying connection before calling
// in to crypto/tls, which has no context-aware handshake of its own.
func (a *Adapter) Handshake(deadline time.Time) error {
	if !deadline.IsZero() {
		if err := a.conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	return a.conn.HandshakeContext(context.Background())
}

// Read reads decrypted application data.
func (a *Adapter) Read(p []byte) (int, error) {
	return a.conn.Read(p)
}

// Write writes plaintext, encrypting it onto the wire.
func (a *Adapter) Write(p []byte) (int, error) {
	return a.conn.Write(p)
}

// WriteFile always fails with ErrNoImpl: crypto/tls.Conn has no
// splice/sendfile path, so the caller (the reactor's SendFile state) must
// fall back to streaming the file through Read/Write unconditionally.
func (a *Adapter) WriteFile(_ string, _ int64, _ int64) (int64, error) {
	return 0, ErrNoImpl
}

// SetDeadline forwards to the underlying connection. It is part of the
// reactor's transport surface; the reactor's own per-connection timeouts
// come from the timer wheel, not from socket deadlines.
func (a *Adapter) SetDeadline(t time.Time) error {
	return a.conn.SetDeadline(t)
}

// Shutdown performs a TLS close_notify and closes the underlying socket,
// the graceful path.
func (a *Adapter) Shutdown() error {
	_ = a.conn.CloseWrite()
	return a.conn.Close()
}

// ForceShutdown closes the underlying socket immediately without
// attempting close_notify, for the timeout/abort path where the spec
// requires Close(ctx, forceClose=true) to bypass graceful teardown.
func (a *Adapter) ForceShutdown() error {
	return a.conn.NetConn().Close()
}

// ConnectionState exposes the negotiated TLS parameters (version, cipher,
// ALPN) once the handshake has completed, for logging/metrics.
func (a *Adapter) ConnectionState() tls.ConnectionState {
	return a.conn.ConnectionState()
}
