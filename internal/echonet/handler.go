package echonet

import "time"

// RequestHandler is implemented by every device object registered on a Node.
//
// HandleProperty is called once per property of an incoming request. It must
// compare deoj against its own object code and reject any mismatch. The
// returned property is the response payload for read requests; for write
// requests only the accept flag is used.
//
// Handlers are pure with respect to the request: they never mutate prop.
type RequestHandler interface {
	HandleProperty(deoj ObjectCode, esv ESV, prop Property) (Property, bool)
}

// RequestHandlerFunc adapts a function to the RequestHandler interface.
type RequestHandlerFunc func(deoj ObjectCode, esv ESV, prop Property) (Property, bool)

// HandleProperty calls f.
func (f RequestHandlerFunc) HandleProperty(deoj ObjectCode, esv ESV, prop Property) (Property, bool) {
	return f(deoj, esv, prop)
}

// SourceLocal marks requests that did not arrive over the network.
const SourceLocal = "local"

// RequestEvent describes one dispatched property request.
type RequestEvent struct {
	// Object is the device object that handled the property.
	Object ObjectCode

	// ESV is the service code the handler was called with.
	ESV ESV

	// Request is the property as received.
	Request Property

	// Response is the property the handler returned.
	Response Property

	// Accepted is the handler's verdict.
	Accepted bool

	// Source is the remote address, or SourceLocal.
	Source string

	// Time is when the handler returned.
	Time time.Time
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
