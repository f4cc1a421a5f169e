package echonet

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Node operation constants.
const (
	// sendTimeout bounds a single response write.
	sendTimeout = 2 * time.Second

	// ControllerObject is the SEOJ used for locally originated requests.
	ControllerObject ObjectCode = 0x05FF01
)

// NodeConfig holds node identity settings.
type NodeConfig struct {
	// ManufacturerCode is the 3-byte manufacturer code (EPC 0x8A).
	// Zero means 0xFFFFFF (experimental).
	ManufacturerCode uint32

	// NodeID seeds the identification number (EPC 0x83). Empty picks a random one.
	NodeID string
}

// NodeStats holds operational statistics.
type NodeStats struct {
	FramesRx         uint64
	FramesTx         uint64
	FramesIgnored    uint64 // Non-request frames and unknown destinations
	PropertiesDenied uint64 // Properties rejected by a handler
	ErrorsTotal      uint64
	LastActivity     time.Time
	Running          bool
	Transport        TransportStats
}

// Node is an ECHONET Lite node: a registry of device objects, the node
// profile, and the transport that carries their frames.
//
// Thread Safety: All methods are safe for concurrent use.
type Node struct {
	transport Transport
	profile   *nodeProfile

	devices   map[ObjectCode]RequestHandler
	devicesMu sync.RWMutex

	running bool
	runMu   sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	ctxMu  sync.RWMutex

	tid atomic.Uint32

	onRequest  func(RequestEvent)
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex

	framesRx         atomic.Uint64
	framesTx         atomic.Uint64
	framesIgnored    atomic.Uint64
	propertiesDenied atomic.Uint64
	errorsTotal      atomic.Uint64
	lastActivity     atomic.Int64
}

// NewNode creates a node bound to a transport and registers its node profile.
// Call RegisterDevice for each device object, then Start.
func NewNode(cfg NodeConfig, transport Transport) *Node {
	n := &Node{
		transport: transport,
		devices:   make(map[ObjectCode]RequestHandler),
		logger:    noopLogger{},
		ctx:       context.Background(),
	}
	n.profile = newNodeProfile(cfg, n.Devices)
	n.devices[NodeProfileObject] = n.profile
	return n
}

// RegisterDevice associates an object code with a handler.
//
// Returns:
//   - ErrInvalidObject for instance 0 or codes wider than 24 bits
//   - ErrDuplicateObject if the code is already registered
//   - ErrNodeRunning if the node has been started
func (n *Node) RegisterDevice(code ObjectCode, handler RequestHandler) error {
	if !code.Valid() || code.Instance() == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidObject, code)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrInvalidObject, code)
	}

	n.runMu.Lock()
	defer n.runMu.Unlock()
	if n.running {
		return ErrNodeRunning
	}

	n.devicesMu.Lock()
	defer n.devicesMu.Unlock()
	if _, exists := n.devices[code]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateObject, code)
	}
	n.devices[code] = handler
	return nil
}

// Devices returns the registered device objects in ascending order,
// excluding the node profile.
func (n *Node) Devices() []ObjectCode {
	n.devicesMu.RLock()
	codes := make([]ObjectCode, 0, len(n.devices))
	for code := range n.devices {
		if code.ClassCode() == NodeProfileClass {
			continue
		}
		codes = append(codes, code)
	}
	n.devicesMu.RUnlock()

	slices.Sort(codes)
	return codes
}

// Start opens the transport and announces the instance list.
func (n *Node) Start(ctx context.Context) error {
	n.runMu.Lock()
	defer n.runMu.Unlock()

	if n.running {
		return ErrNodeRunning
	}
	if n.transport == nil {
		return fmt.Errorf("%w: no transport configured", ErrTransportFailed)
	}

	n.transport.SetOnFrame(n.handleFrame)
	if err := n.transport.Open(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	n.ctxMu.Lock()
	n.ctx, n.cancel = context.WithCancel(context.Background())
	n.ctxMu.Unlock()
	n.running = true
	n.lastActivity.Store(time.Now().Unix())

	if err := n.announce(ctx); err != nil {
		n.getLogger().Warn("instance list announcement failed", "error", err)
	}

	n.getLogger().Info("echonet node started", "devices", len(n.Devices()))
	return nil
}

// Stop closes the transport. In-flight handlers finish before it returns.
func (n *Node) Stop() error {
	n.runMu.Lock()
	defer n.runMu.Unlock()

	if !n.running {
		return ErrNotRunning
	}
	n.running = false
	n.ctxMu.RLock()
	n.cancel()
	n.ctxMu.RUnlock()

	if err := n.transport.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFailed, err)
	}

	n.getLogger().Info("echonet node stopped")
	return nil
}

// IsRunning reports whether Start has succeeded and Stop has not been called.
func (n *Node) IsRunning() bool {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	return n.running
}

// announce multicasts the instance list notification from the node profile.
func (n *Node) announce(ctx context.Context) error {
	prop, ok := n.profile.HandleProperty(NodeProfileObject, ESVNotificationRequest,
		Property{Code: EPCInstanceListNotification})
	if !ok {
		return fmt.Errorf("%w: instance list unavailable", ErrEncodingFailed)
	}

	f := Frame{
		TID:        n.nextTID(),
		SEOJ:       NodeProfileObject,
		DEOJ:       NodeProfileObject,
		ESV:        ESVNotification,
		Properties: []Property{prop},
	}
	return n.send(ctx, f, nil)
}

// Request runs a locally originated request against one object without
// touching the network. SetI requests that succeed return a zero Frame.
// For SetGet, properties carrying data form the set list and empty ones the
// get list.
func (n *Node) Request(deoj ObjectCode, esv ESV, props ...Property) (Frame, error) {
	if !esv.IsRequest() {
		return Frame{}, fmt.Errorf("%w: %s is not a request", ErrInvalidFrame, esv)
	}
	if deoj.Instance() == 0 {
		return Frame{}, fmt.Errorf("%w: local requests need a concrete instance", ErrInvalidObject)
	}

	req := Frame{
		TID:        n.nextTID(),
		SEOJ:       ControllerObject,
		DEOJ:       deoj,
		ESV:        esv,
		Properties: props,
	}
	if esv == ESVWriteReadRequest {
		req.Properties = nil
		for _, p := range props {
			if len(p.Data) > 0 {
				req.Properties = append(req.Properties, p)
			} else {
				req.GetProperties = append(req.GetProperties, p)
			}
		}
	}

	if _, ok := n.lookup(deoj); !ok {
		return Frame{}, fmt.Errorf("%w: %s not registered", ErrInvalidObject, deoj)
	}

	responses := n.Dispatch(req, SourceLocal)
	if len(responses) == 0 {
		return Frame{}, nil
	}
	return responses[0], nil
}

// Dispatch resolves a request against the registry and returns the response
// frames to send. It returns nil for non-request frames, unknown destinations
// and successful SetI requests.
//
// A destination with instance 0 addresses every registered instance of the
// class; each one answers with its own frame.
func (n *Node) Dispatch(req Frame, source string) []Frame {
	if !req.ESV.IsRequest() {
		n.framesIgnored.Add(1)
		return nil
	}

	targets := n.targets(req.DEOJ)
	if len(targets) == 0 {
		n.framesIgnored.Add(1)
		n.getLogger().Debug("request for unknown object", "deoj", req.DEOJ.String(), "source", source)
		return nil
	}

	var responses []Frame
	for _, code := range targets {
		handler, ok := n.lookup(code)
		if !ok {
			continue
		}
		if resp, send := n.dispatchOne(code, handler, req, source); send {
			responses = append(responses, resp)
		}
	}
	return responses
}

// dispatchOne runs every property of req through one handler.
func (n *Node) dispatchOne(code ObjectCode, handler RequestHandler, req Frame, source string) (Frame, bool) {
	resp := Frame{
		TID:  req.TID,
		SEOJ: code,
		DEOJ: req.SEOJ,
	}

	var accepted bool
	if req.ESV == ESVWriteReadRequest {
		// An empty get list is a plain write that still wants a SetGet answer.
		var getOK bool
		resp.Properties, accepted = n.handleProperties(code, handler, ESVWriteReadRequest, req.Properties, source)
		resp.GetProperties, getOK = n.handleProperties(code, handler, ESVReadRequest, req.GetProperties, source)
		accepted = accepted && (getOK || len(req.GetProperties) == 0)
	} else {
		resp.Properties, accepted = n.handleProperties(code, handler, req.ESV, req.Properties, source)
	}

	resp.ESV = req.ESV.Response(accepted)
	if resp.ESV == 0 {
		return Frame{}, false
	}
	if resp.ESV == ESVNotification {
		resp.DEOJ = NodeProfileObject
	}
	return resp, true
}

// handleProperties invokes the handler for each property and builds the
// response list. Reads answer with the handler's payload or an empty PDC on
// rejection; writes answer with an empty PDC on success or echo the request.
func (n *Node) handleProperties(code ObjectCode, handler RequestHandler, esv ESV, props []Property, source string) ([]Property, bool) {
	if len(props) == 0 {
		return nil, false
	}

	out := make([]Property, 0, len(props))
	all := true
	for _, p := range props {
		res, ok := n.invoke(handler, code, esv, p)
		res.Code = p.Code

		switch {
		case esv.IsWrite() && ok:
			out = append(out, Property{Code: p.Code})
		case esv.IsWrite():
			out = append(out, p)
		case ok:
			out = append(out, res)
		default:
			out = append(out, Property{Code: p.Code})
		}

		if !ok {
			all = false
			n.propertiesDenied.Add(1)
		}

		n.notify(RequestEvent{
			Object:   code,
			ESV:      esv,
			Request:  p,
			Response: res,
			Accepted: ok,
			Source:   source,
			Time:     time.Now(),
		})
	}
	return out, all
}

// invoke calls a handler, converting a panic into a rejection.
func (n *Node) invoke(handler RequestHandler, code ObjectCode, esv ESV, p Property) (res Property, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.errorsTotal.Add(1)
			n.getLogger().Error("request handler panic",
				"object", code.String(), "esv", esv.String(), "panic", r)
			res, ok = p, false
		}
	}()
	return handler.HandleProperty(code, esv, p)
}

// targets returns the registered objects a destination addresses.
func (n *Node) targets(deoj ObjectCode) []ObjectCode {
	n.devicesMu.RLock()
	defer n.devicesMu.RUnlock()

	if deoj.Instance() != 0 {
		if _, ok := n.devices[deoj]; ok {
			return []ObjectCode{deoj}
		}
		return nil
	}

	var codes []ObjectCode
	for code := range n.devices {
		if code.ClassCode() == deoj.ClassCode() {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes
}

func (n *Node) lookup(code ObjectCode) (RequestHandler, bool) {
	n.devicesMu.RLock()
	defer n.devicesMu.RUnlock()
	h, ok := n.devices[code]
	return h, ok
}

// handleFrame is the transport callback for inbound frames.
func (n *Node) handleFrame(f Frame, from net.Addr) {
	n.framesRx.Add(1)
	n.lastActivity.Store(time.Now().Unix())

	source := SourceLocal
	if from != nil {
		source = from.String()
	}
	n.getLogger().Debug("frame received", "frame", f.String(), "source", source)

	for _, resp := range n.Dispatch(f, source) {
		ctx, cancel := context.WithTimeout(n.runContext(), sendTimeout)
		dst := from
		if resp.ESV == ESVNotification {
			dst = nil
		}
		if err := n.send(ctx, resp, dst); err != nil {
			n.errorsTotal.Add(1)
			n.getLogger().Warn("failed to send response", "frame", resp.String(), "error", err)
		}
		cancel()
	}
}

// send writes a frame to dst, or to the multicast group when dst is nil.
func (n *Node) send(ctx context.Context, f Frame, dst net.Addr) error {
	var err error
	if dst == nil {
		err = n.transport.Multicast(ctx, f)
	} else {
		err = n.transport.Send(ctx, f, dst)
	}
	if err != nil {
		return err
	}
	n.framesTx.Add(1)
	n.lastActivity.Store(time.Now().Unix())
	return nil
}

func (n *Node) runContext() context.Context {
	n.ctxMu.RLock()
	defer n.ctxMu.RUnlock()
	return n.ctx
}

func (n *Node) nextTID() uint16 {
	return uint16(n.tid.Add(1))
}

// notify delivers an event to the request observer, if any.
func (n *Node) notify(ev RequestEvent) {
	n.callbackMu.RLock()
	callback := n.onRequest
	n.callbackMu.RUnlock()

	if callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			n.getLogger().Error("request observer panic", "panic", r)
		}
	}()
	callback(ev)
}

// SetOnRequest sets the observer called after each dispatched property.
// It runs on the dispatching goroutine and must not block.
func (n *Node) SetOnRequest(callback func(RequestEvent)) {
	n.callbackMu.Lock()
	n.onRequest = callback
	n.callbackMu.Unlock()
}

// SetLogger sets the logger for the node and its transport.
func (n *Node) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	n.loggerMu.Lock()
	n.logger = logger
	n.loggerMu.Unlock()

	if t, ok := n.transport.(interface{ SetLogger(Logger) }); ok {
		t.SetLogger(logger)
	}
}

func (n *Node) getLogger() Logger {
	n.loggerMu.RLock()
	defer n.loggerMu.RUnlock()
	return n.logger
}

// Stats returns current operational statistics.
func (n *Node) Stats() NodeStats {
	stats := NodeStats{
		FramesRx:         n.framesRx.Load(),
		FramesTx:         n.framesTx.Load(),
		FramesIgnored:    n.framesIgnored.Load(),
		PropertiesDenied: n.propertiesDenied.Load(),
		ErrorsTotal:      n.errorsTotal.Load(),
		LastActivity:     time.Unix(n.lastActivity.Load(), 0),
		Running:          n.IsRunning(),
	}
	if n.transport != nil {
		stats.Transport = n.transport.Stats()
	}
	return stats
}
