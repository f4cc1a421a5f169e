// Package influxdb stores the node's sensor readings as time series.
//
// Readings arrive from the bridge sampler every telemetry interval and are
// written through the non-blocking, batched write API of
// influxdb-client-go v2:
//
//	sensor_readings,object=0x001101,measurement=temperature value=21.5
//	light_state,object=0x029101 on=true
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("0x001101", "temperature", 21.5)
//
// Write failures surface asynchronously through SetOnError.
package influxdb
