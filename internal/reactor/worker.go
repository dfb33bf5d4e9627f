package reactor

import (
	"context"
	"crypto/tls"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/wfxhttp/wfx/internal/alloc"
	cfgpkg "github.com/wfxhttp/wfx/internal/config"
	"github.com/wfxhttp/wfx/internal/engine"
	"github.com/wfxhttp/wfx/internal/metrics"
	"github.com/wfxhttp/wfx/internal/ratelimit"
	"github.com/wfxhttp/wfx/internal/timer"
	"github.com/wfxhttp/wfx/internal/wlog"
)

const (
	// wheelSlotCount is the hashed wheel's bucket count; a power of two
	// comfortably covering an hour-long idleTimeout at 1-second
	// resolution without excessive rounds per slot.
	wheelSlotCount = 4096
	wheelTickSize  = time.Second

	// heapPollInterval is how often the async-timer heap is drained,
	// matching the ±10ms coalesce window spec §4.L describes — polling
	// any finer would just spend wakeups without tightening precision.
	heapPollInterval     = 10 * time.Millisecond
	heapCoalesceWindowMs = 10
)

// Worker drives every connection accepted on one listener. It owns the
// resources spec §5 says live inside one worker and nowhere else: the slab
// allocator, the timer wheel, the timer heap, and the per-IP limiter (the
// file cache, router, middleware stacks, and template table live in the
// Engine it wraps). One goroutine per net.Conn, serialized per connection,
// stands in for the spec's single-threaded epoll/kqueue loop: Go's runtime
// netpoller already multiplexes many blocked goroutines onto one readiness
// mechanism, which is the language-native expression of "single-threaded
// cooperative event loop" (§4.L re-architecture note). The wheel and heap
// still need real mutexes here, since nothing guarantees only one
// goroutine touches them at a time the way a hand-rolled single OS thread
// would (§5 Shared resources).
type Worker struct {
	cfg     cfgpkg.Network
	eng     *engine.Engine
	log     wlog.Logger
	mx      *metrics.Metrics
	tlsCfg  *tls.Config
	limiter *ratelimit.Limiter

	slots *alloc.Pool[Context]

	wheelMu sync.Mutex
	wheel   *timer.Wheel

	heapMu  sync.Mutex
	heap    *timer.Heap
	asyncFn map[uint64]func()

	started  time.Time
	listener net.Listener
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker builds a worker bound to eng, with capacity connection slots.
// tlsCfg may be nil for a plaintext listener. mx and log may be nil.
func NewWorker(cfg cfgpkg.Network, eng *engine.Engine, log wlog.Logger, mx *metrics.Metrics, tlsCfg *tls.Config, capacity int) *Worker {
	if log == nil {
		log = wlog.Discard()
	}
	if capacity <= 0 {
		capacity = 4096
	}
	w := &Worker{
		cfg:    cfg,
		eng:    eng,
		log:    log,
		mx:     mx,
		tlsCfg: tlsCfg,
		limiter: ratelimit.New(ratelimit.Config{
			MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
			MaxBurst:            cfg.MaxRequestBurstPerIP,
			RefillPerSecond:     cfg.MaxRequestsPerIPSec,
		}),
		slots:   alloc.New[Context](capacity),
		heap:    timer.NewHeap(),
		asyncFn: make(map[uint64]func()),
		started: time.Now(),
		stopCh:  make(chan struct{}),
	}
	w.wheel = timer.NewWheel(capacity, wheelSlotCount, uint32(wheelTickSize.Seconds()), w.onWheelExpire)
	return w
}

// Serve accepts connections from ln until it is closed or Stop is called,
// spawning one goroutine per accepted connection. It returns nil on a
// clean shutdown, or the Accept error otherwise.
func (w *Worker) Serve(ln net.Listener) error {
	w.listener = ln

	w.wg.Add(2)
	go w.tickWheel()
	go w.pollHeap()

	for {
		raw, err := ln.Accept()
		if err != nil {
			select {
			case <-w.stopCh:
				return nil
			default:
				return err
			}
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.handleConn(raw)
		}()
	}
}

// Stop signals the accept loop and every in-flight connection to wind
// down, per spec §4.L "Stop() sets a flag; the loop wakes ... drains
// outstanding completions; listening socket is closed; in-flight contexts
// are force-closed." Connections that finish before ctx is done close
// gracefully; anything still running when ctx expires is force-closed.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.listener != nil {
			_ = w.listener.Close()
		}
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.forceCloseAll()
		<-done
		return ctx.Err()
	}
}

func (w *Worker) forceCloseAll() {
	for i := 0; i < w.slots.Cap(); i++ {
		if c := w.slots.Get(i); c != nil {
			c.forceClose()
		}
	}
}

func (w *Worker) tickWheel() {
	defer w.wg.Done()
	ticker := time.NewTicker(wheelTickSize)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.wheelMu.Lock()
			w.wheel.Tick(w.wheel.Now() + 1)
			w.wheelMu.Unlock()
		}
	}
}

// onWheelExpire is the wheel's single expiration callback (§4.C precondition:
// invoked exactly once per slot, must not reschedule itself). It validates
// the slot's generation before acting, so a deadline that fires after the
// connection already finished and the slot was reused for someone else is
// recognized as stale and ignored.
func (w *Worker) onWheelExpire(slot uint32) {
	ctx := w.slots.Get(int(slot))
	if ctx == nil {
		return
	}
	if !w.slots.Valid(int(slot), ctx.Generation) {
		return
	}
	ctx.forceClose()
}

func (w *Worker) armDeadline(slot uint32, seconds uint32) {
	if seconds == 0 {
		seconds = 1
	}
	w.wheelMu.Lock()
	w.wheel.Schedule(slot, seconds)
	w.wheelMu.Unlock()
}

func (w *Worker) cancelDeadline(slot uint32) {
	w.wheelMu.Lock()
	w.wheel.Cancel(slot)
	w.wheelMu.Unlock()
}

func (w *Worker) pollHeap() {
	defer w.wg.Done()
	ticker := time.NewTicker(heapPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drainHeap()
		}
	}
}

func (w *Worker) drainHeap() {
	now := uint64(time.Since(w.started).Milliseconds())
	for {
		w.heapMu.Lock()
		key, ok := w.heap.PopExpired(now)
		var fn func()
		if ok {
			fn = w.asyncFn[key]
			delete(w.asyncFn, key)
		}
		w.heapMu.Unlock()
		if !ok {
			return
		}
		if fn != nil {
			fn()
		}
	}
}

// ScheduleAsync arms a one-shot timer keyed by token, the Go shape of spec
// §4.L's "user code can request a delay via the API table": on fire, fn
// runs on the heap-polling goroutine (never the connection's own), so it
// must not block. Returns false if token already has a pending timer.
func (w *Worker) ScheduleAsync(token uint64, delay time.Duration, fn func()) bool {
	expire := uint64(time.Since(w.started).Milliseconds()) + uint64(delay.Milliseconds())
	w.heapMu.Lock()
	defer w.heapMu.Unlock()
	if !w.heap.Insert(token, expire, heapCoalesceWindowMs) {
		return false
	}
	w.asyncFn[token] = fn
	return true
}

// CancelAsync cancels a pending async timer; a no-op if token isn't armed.
func (w *Worker) CancelAsync(token uint64) {
	w.heapMu.Lock()
	defer w.heapMu.Unlock()
	w.heap.Remove(token)
	delete(w.asyncFn, token)
}

func addrFromConn(c net.Conn) (netip.Addr, bool) {
	tcpAddr, ok := c.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(tcpAddr.IP)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
