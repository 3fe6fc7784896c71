// Package power reads bus voltage and current from the supply monitor.
// The real implementation talks to a TI INA260 over I2C.
package power

// Sensor reports instantaneous bus power readings.
type Sensor interface {
	// ReadVoltageMV returns the bus voltage in millivolts.
	ReadVoltageMV() (int32, error)

	// ReadCurrentMA returns the load current in milliamps.
	ReadCurrentMA() (int32, error)
}
