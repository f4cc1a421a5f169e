package echonet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"
)

// Transport defaults.
const (
	// DefaultPort is the ECHONET Lite UDP port.
	DefaultPort = 3610

	// DefaultMulticastGroup is the ECHONET Lite IPv4 multicast group.
	DefaultMulticastGroup = "224.0.23.0"

	defaultReadTimeout  = 1 * time.Second
	defaultWriteTimeout = 2 * time.Second

	// readBufferSize covers the largest frame a single datagram can carry
	// on a standard Ethernet MTU.
	readBufferSize = 1500

	// Callback worker pool
	callbackQueueSize   = 100
	callbackWorkerCount = 4
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Transport carries frames for a Node.
type Transport interface {
	// Open binds the transport. Frames received afterwards are passed to
	// the callback registered with SetOnFrame.
	Open(ctx context.Context) error

	// Close releases the transport and waits for in-flight callbacks.
	Close() error

	// Send writes a frame to one peer.
	Send(ctx context.Context, f Frame, to net.Addr) error

	// Multicast writes a frame to every node on the link.
	Multicast(ctx context.Context, f Frame) error

	SetOnFrame(callback func(Frame, net.Addr))
	Stats() TransportStats
}

// TransportStats holds transport statistics.
type TransportStats struct {
	PacketsRx      uint64
	PacketsTx      uint64
	PacketsDropped uint64 // Dropped due to a full callback queue
	ParseErrors    uint64
	ErrorsTotal    uint64
	LastActivity   time.Time
	Open           bool
}

// UDPConfig configures a UDPTransport.
type UDPConfig struct {
	// ListenAddress is the local UDP address. Default ":3610".
	ListenAddress string

	// MulticastGroup is joined on Open. Empty disables multicast.
	MulticastGroup string

	// Interface names the interface for multicast. Empty lets the kernel choose.
	Interface string

	// Port is the destination port for multicast sends. Default 3610.
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// UDPTransport is the IPv4 UDP transport with multicast group membership.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Frame callbacks run on a bounded worker pool.
type UDPTransport struct {
	cfg UDPConfig

	conn   net.PacketConn
	group  *net.UDPAddr
	open   bool
	connMu sync.RWMutex

	onFrame    func(Frame, net.Addr)
	callbackMu sync.RWMutex

	callbackQueue chan inbound

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	packetsRx      atomic.Uint64
	packetsTx      atomic.Uint64
	packetsDropped atomic.Uint64
	parseErrors    atomic.Uint64
	errorsTotal    atomic.Uint64
	lastActivity   atomic.Int64
}

type inbound struct {
	frame Frame
	from  net.Addr
}

// NewUDPTransport creates an unopened transport, applying defaults.
func NewUDPTransport(cfg UDPConfig) *UDPTransport {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = fmt.Sprintf(":%d", DefaultPort)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &UDPTransport{
		cfg:    cfg,
		logger: noopLogger{},
	}
}

// Open binds the socket, joins the multicast group and starts the receive loop.
func (t *UDPTransport) Open(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.open {
		return nil
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", t.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", t.cfg.ListenAddress, err)
	}

	t.group = nil
	if t.cfg.MulticastGroup != "" {
		group, err := t.joinGroup(conn)
		if err != nil {
			conn.Close()
			return err
		}
		t.group = group
	}

	t.conn = conn
	t.open = true
	t.done = newCloseOnce()
	t.callbackQueue = make(chan inbound, callbackQueueSize)
	t.lastActivity.Store(time.Now().Unix())

	for range callbackWorkerCount {
		t.wg.Add(1)
		go t.callbackWorker(t.done, t.callbackQueue)
	}
	t.wg.Add(1)
	go t.receiveLoop(conn, t.done, t.callbackQueue)

	t.getLogger().Info("udp transport open",
		"address", conn.LocalAddr().String(),
		"multicast", t.cfg.MulticastGroup,
	)
	return nil
}

// joinGroup joins the configured multicast group on conn.
func (t *UDPTransport) joinGroup(conn net.PacketConn) (*net.UDPAddr, error) {
	ip := net.ParseIP(t.cfg.MulticastGroup)
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return nil, fmt.Errorf("invalid multicast group %q", t.cfg.MulticastGroup)
	}

	var iface *net.Interface
	if t.cfg.Interface != "" {
		var err error
		if iface, err = net.InterfaceByName(t.cfg.Interface); err != nil {
			return nil, fmt.Errorf("interface %s: %w", t.cfg.Interface, err)
		}
	}

	pc := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: ip, Port: t.cfg.Port}
	if err := pc.JoinGroup(iface, &net.UDPAddr{IP: ip}); err != nil {
		return nil, fmt.Errorf("join %s: %w", ip, err)
	}
	if iface != nil {
		if err := pc.SetMulticastInterface(iface); err != nil {
			return nil, fmt.Errorf("multicast interface %s: %w", iface.Name, err)
		}
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		t.getLogger().Warn("failed to disable multicast loopback", "error", err)
	}
	return group, nil
}

// receiveLoop reads datagrams until the transport is closed.
func (t *UDPTransport) receiveLoop(conn net.PacketConn, done *closeOnce, queue chan<- inbound) {
	defer t.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-done.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout)); err != nil {
			if isClosed(done) {
				return
			}
			t.getLogger().Error("set read deadline failed", "error", err)
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if isClosed(done) || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			t.errorsTotal.Add(1)
			t.getLogger().Error("read failed", "error", err)
			continue
		}

		t.packetsRx.Add(1)
		t.lastActivity.Store(time.Now().Unix())

		f, err := ParseFrame(buf[:n])
		if err != nil {
			t.parseErrors.Add(1)
			t.getLogger().Debug("discarding malformed datagram", "source", from.String(), "error", err)
			continue
		}

		select {
		case queue <- inbound{frame: f, from: from}:
		default:
			t.packetsDropped.Add(1)
			t.errorsTotal.Add(1)
			t.getLogger().Warn("callback queue full, dropping frame", "source", from.String())
		}
	}
}

// callbackWorker hands queued frames to the frame callback.
func (t *UDPTransport) callbackWorker(done *closeOnce, queue <-chan inbound) {
	defer t.wg.Done()

	for {
		select {
		case <-done.Done():
			return
		case in := <-queue:
			t.callbackMu.RLock()
			callback := t.onFrame
			t.callbackMu.RUnlock()

			if callback == nil {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.errorsTotal.Add(1)
						t.getLogger().Error("frame callback panic", "panic", r)
					}
				}()
				callback(in.frame, in.from)
			}()
		}
	}
}

func isClosed(done *closeOnce) bool {
	select {
	case <-done.Done():
		return true
	default:
		return false
	}
}

// Close stops the receive loop and closes the socket. Safe to call more than once.
func (t *UDPTransport) Close() error {
	t.connMu.Lock()
	if !t.open {
		t.connMu.Unlock()
		return nil
	}
	t.open = false
	t.done.Close()
	err := t.conn.Close()
	t.connMu.Unlock()

	t.wg.Wait()

	t.getLogger().Info("udp transport closed")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Send writes a frame to one peer.
func (t *UDPTransport) Send(ctx context.Context, f Frame, to net.Addr) error {
	if to == nil {
		return fmt.Errorf("%w: no destination", ErrTransportFailed)
	}
	return t.write(ctx, f, to)
}

// Multicast writes a frame to the multicast group.
func (t *UDPTransport) Multicast(ctx context.Context, f Frame) error {
	t.connMu.RLock()
	group := t.group
	t.connMu.RUnlock()

	if group == nil {
		return fmt.Errorf("%w: multicast disabled", ErrTransportFailed)
	}
	return t.write(ctx, f, group)
}

func (t *UDPTransport) write(ctx context.Context, f Frame, to net.Addr) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTransportFailed, ctx.Err())
	default:
	}

	data, err := f.Encode()
	if err != nil {
		return err
	}

	t.connMu.RLock()
	conn, open := t.conn, t.open
	t.connMu.RUnlock()
	if !open {
		return ErrNotRunning
	}

	deadline := time.Now().Add(t.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrTransportFailed, err)
	}

	if _, err := conn.WriteTo(data, to); err != nil {
		t.errorsTotal.Add(1)
		return fmt.Errorf("%w: write to %s: %w", ErrTransportFailed, to, err)
	}

	t.packetsTx.Add(1)
	t.lastActivity.Store(time.Now().Unix())
	return nil
}

// LocalAddr returns the bound address, or nil before Open.
func (t *UDPTransport) LocalAddr() net.Addr {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// SetOnFrame sets the callback for received frames.
func (t *UDPTransport) SetOnFrame(callback func(Frame, net.Addr)) {
	t.callbackMu.Lock()
	t.onFrame = callback
	t.callbackMu.Unlock()
}

// SetLogger sets the logger for this transport.
func (t *UDPTransport) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

func (t *UDPTransport) getLogger() Logger {
	t.loggerMu.RLock()
	defer t.loggerMu.RUnlock()
	return t.logger
}

// IsOpen reports whether the socket is bound.
func (t *UDPTransport) IsOpen() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.open
}

// Stats returns current transport statistics.
func (t *UDPTransport) Stats() TransportStats {
	return TransportStats{
		PacketsRx:      t.packetsRx.Load(),
		PacketsTx:      t.packetsTx.Load(),
		PacketsDropped: t.packetsDropped.Load(),
		ParseErrors:    t.parseErrors.Load(),
		ErrorsTotal:    t.errorsTotal.Load(),
		LastActivity:   time.Unix(t.lastActivity.Load(), 0),
		Open:           t.IsOpen(),
	}
}
