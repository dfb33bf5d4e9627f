package reactor

import (
	"time"

	"github.com/wfxhttp/wfx/internal/tlsadapter"
)

// transport is the minimal socket surface the connection loop drives,
// satisfied directly by net.Conn for plaintext connections and by
// tlsWrapper for TLS ones.
type transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetDeadline(t time.Time) error
	Close() error
}

// tlsWrapper adapts tlsadapter.Adapter's graceful Shutdown to the Close()
// the connection loop expects (ForceShutdown is not used), so both plaintext
// and TLS connections can be driven by the same code path.
type tlsWrapper struct {
	*tlsadapter.Adapter
}

func (w tlsWrapper) Close() error { return w.Shutdown() }
