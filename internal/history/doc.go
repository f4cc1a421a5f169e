// Package history keeps a queryable record of property traffic.
//
// Every write the node accepts or rejects, and every sample the bridge
// takes of the sensors, becomes one row of the property_events table:
//
//	object    esv  epc  edt   accepted  source           created_at
//	0x029101  97   128  30    1         192.168.1.20     2026-10-18T09:00:00.000000Z
//	0x001101  98   224  00d7  1         sampler          2026-10-18T09:01:00.000000Z
//
// Recorder takes events off the dispatch path through a bounded queue and
// prunes rows older than the configured retention once a day.
package history
