// Package echonet implements the small slice of ECHONET Lite needed to expose
// local device objects on a home network.
//
// The package provides:
//   - ObjectCode and ESV types with the standard request/response codes
//   - A frame codec for the ECHONET Lite format 1 message (EHD 0x1081)
//   - A Node that owns a registry of device objects and dispatches incoming
//     property requests to them
//   - A built-in node profile object (0x0EF001) for controller discovery
//   - A UDP multicast transport on port 3610 / group 224.0.23.0
//
// # Dispatch Model
//
// Device objects implement RequestHandler. The node resolves the destination
// object code of each request, calls HandleProperty once per property and
// builds the response frame from the returned properties. A handler that
// rejects any property turns the whole response into the matching _SNA code.
//
//	node := echonet.NewNode(echonet.NodeConfig{}, transport)
//	node.RegisterDevice(0x001101, temperature)
//	if err := node.Start(ctx); err != nil {
//	    return err
//	}
//	defer node.Stop()
//
// # Thread Safety
//
// Handlers may be invoked concurrently from the transport's worker pool.
// Implementations must guard their own state.
package echonet
