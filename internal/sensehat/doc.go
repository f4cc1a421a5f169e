// Package sensehat drives the Raspberry Pi Sense HAT.
//
// It provides the Backend contract consumed by the ECHONET device objects,
// a hardware implementation talking to the LPS25H pressure sensor and the
// HTS221 humidity sensor over I2C and to the LED matrix framebuffer, and a
// Simulator for development machines without the board.
//
// Backends are not safe for concurrent use on their own. Wrap one in a
// Shared and hand the same *Shared to every consumer:
//
//	hat, err := sensehat.Open(sensehat.Config{I2CBus: 1})
//	if err != nil {
//	    return err
//	}
//	backend := sensehat.NewShared(hat)
//	defer backend.Close()
//
//	celsius, err := backend.ReadTemperature()
package sensehat
