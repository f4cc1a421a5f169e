// Package devices implements the ECHONET Lite device objects backed by the
// Sense HAT: air pressure, humidity and temperature sensors, and the LED
// matrix as a mono functional light.
//
// Each adapter is an echonet.RequestHandler bound to one object code. The
// sensors are read-only; the light accepts operating status writes.
package devices
